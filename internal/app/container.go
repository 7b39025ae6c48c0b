package app

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"hospital-jobs/internal/config"
	"hospital-jobs/internal/database"
	"hospital-jobs/internal/database/migration"
	dbpostgres "hospital-jobs/internal/database/postgres"
	"hospital-jobs/internal/database/schemacheck"
	"hospital-jobs/internal/infrastructure/cache"
	"hospital-jobs/internal/infrastructure/classifier"
	"hospital-jobs/internal/pipeline"
	"hospital-jobs/internal/pkg/jwt"
	"hospital-jobs/internal/repository"
	"hospital-jobs/internal/scraper"
	"hospital-jobs/internal/usecase"
	"hospital-jobs/internal/ws"
	"hospital-jobs/migrations"
)

// Container owns every long-lived dependency. Both binaries build one.
type Container struct {
	Config config.Config
	Logger *log.Logger

	DB    database.DB
	Redis *cache.Redis
	Hub   *ws.Hub
	JWT   jwt.Service

	Rules      *scraper.Rules
	HTMLFetch  scraper.Fetcher
	Discoverer *scraper.Discoverer
	Extractor  *scraper.Extractor

	Hospitals *repository.PostgresHospitalRepository
	Jobs      *repository.PostgresJobRepository
	Roles     *repository.PostgresUserRoleRepository

	Batch          *pipeline.HospitalBatch
	PipelineUC     *usecase.Pipeline
	PipelineStatus *usecase.PipelineStatus
}

func NewContainer(cfg config.Config, logger *log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.Default()
	}

	rules, err := loadRules(cfg.Scraper.PatternsFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Rules: rules}

	c.Redis = cache.NewRedis(cfg.Redis, logger)
	c.Hub = ws.NewHub(logger)
	if cfg.Auth.JWTSecret != "" {
		c.JWT = jwt.NewHMACService(cfg.Auth.JWTSecret)
	}

	c.Hospitals = repository.NewPostgresHospitalRepository(db)
	c.Jobs = repository.NewPostgresJobRepository(db)
	c.Roles = repository.NewPostgresUserRoleRepository(db)

	limiter := scraper.NewHostLimiter(cfg.Scraper.HostRPS)
	opts := scraper.FetchOptions{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.FetchTimeout,
		Limiter:   limiter,
	}
	c.HTMLFetch = scraper.NewCollyFetcher(opts)
	apiFetch := scraper.NewHTTPFetcher(opts)

	var labeler scraper.Labeler
	if cl := classifier.New(cfg.Classifier, logger); cl != nil {
		labeler = cl
	}
	filter := scraper.NewRoleFilter(cfg.Scraper.RoleKeywords, labeler, logger)

	c.Discoverer = scraper.NewDiscoverer(c.HTMLFetch, rules, logger)
	c.Extractor = scraper.NewExtractor(c.HTMLFetch, apiFetch, rules, filter, logger)

	c.Batch = pipeline.NewHospitalBatch(
		c.Hospitals,
		c.Jobs,
		c.Discoverer,
		c.Extractor,
		ws.NewNotifier(c.Hub),
		pipeline.BatchOptions{
			Workers:      cfg.Scraper.Workers,
			UnitTimeout:  cfg.Scraper.UnitTimeout,
			BatchTimeout: cfg.Scraper.BatchTimeout,
		},
		logger,
	)

	c.PipelineUC = usecase.NewPipelineUsecase(c.Batch, c.Redis, usecase.BatchSizes{
		Discovery: cfg.Scraper.DiscoverySize,
		Scrape:    cfg.Scraper.ScrapeSize,
		Max:       cfg.Scraper.MaxBatchSize,
		LockTTL:   cfg.Scraper.BatchTimeout + time.Minute,
	}, logger)
	c.PipelineStatus = usecase.NewPipelineStatusUsecase(
		repository.NewPostgresPipelineStatusRepository(db),
		c.Redis,
		logger,
	)

	return c, nil
}

// Migrate applies pending migrations and then checks the columns the
// pipeline depends on.
func (c *Container) Migrate(ctx context.Context) (int, error) {
	runner := migration.Runner{FS: migrationsFS(c.Config.App.MigrationsDir), Logger: c.Logger}
	applied, err := runner.Run(ctx, c.DB.SQLDB())
	if err != nil {
		return applied, fmt.Errorf("migrate: %w", err)
	}
	if err := schemacheck.Verify(ctx, c.DB); err != nil {
		return applied, fmt.Errorf("schema check: %w", err)
	}
	return applied, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if err := c.Redis.Close(); err != nil {
		c.Logger.Printf("[Cache] close error: %v", err)
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func loadRules(patternsFile string) (*scraper.Rules, error) {
	tables, err := scraper.LoadPatterns(patternsFile)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	rules, err := tables.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}
	return rules, nil
}

// migrationsFS uses dir when it exists on disk, else the embedded files.
func migrationsFS(dir string) fs.FS {
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return os.DirFS(dir)
		}
	}
	return migrations.FS
}
