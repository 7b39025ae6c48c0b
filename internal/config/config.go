package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Redis      RedisConfig
	Scraper    ScraperConfig
	Classifier ClassifierConfig
}

type AppConfig struct {
	AppName          string
	Environment      string
	HTTPPort         string
	CORSAllowOrigins []string
	MigrationsDir    string
}

type DatabaseConfig struct {
	URL string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	// SimpleProtocol disables prepared statements for transaction poolers.
	SimpleProtocol bool
}

type AuthConfig struct {
	CronSecret string
	JWTSecret  string
	AdminRole  string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type ScraperConfig struct {
	UserAgent     string
	FetchTimeout  time.Duration
	UnitTimeout   time.Duration
	BatchTimeout  time.Duration
	Workers       int
	HostRPS       float64
	DiscoverySize int
	ScrapeSize    int
	MaxBatchSize  int
	RoleKeywords  []string
	PatternsFile  string
}

type ClassifierConfig struct {
	URL    string
	APIKey string
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{}

	var missing, invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optInt := func(key string, def int) int {
		raw := opt(key)
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return def
		}
		return v
	}
	optFloat := func(key string, def float64) float64 {
		raw := opt(key)
		if raw == "" {
			return def
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return def
		}
		return v
	}
	optDuration := func(key string, def time.Duration) time.Duration {
		raw := opt(key)
		if raw == "" {
			return def
		}
		v, err := time.ParseDuration(raw)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return def
		}
		return v
	}
	optBool := func(key string) bool {
		raw := opt(key)
		if raw == "" {
			return false
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			invalid = append(invalid, key)
			return false
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:          req("APP_NAME"),
		Environment:      req("APP_ENV"),
		HTTPPort:         req("HTTP_PORT"),
		CORSAllowOrigins: splitList(opt("CORS_ALLOW_ORIGINS")),
		MigrationsDir:    opt("MIGRATIONS_DIR"),
	}
	if len(cfg.App.CORSAllowOrigins) == 0 {
		cfg.App.CORSAllowOrigins = []string{"*"}
	}
	if cfg.App.MigrationsDir == "" {
		cfg.App.MigrationsDir = "migrations"
	}

	cfg.Database = DatabaseConfig{
		URL:                   req("DATABASE_URL"),
		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(optInt("DB_MAX_CONNS", 10)),
		PoolMinConns:          int32(optInt("DB_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		PoolMaxConnIdleTime:   optDuration("DB_MAX_CONN_IDLE_TIME", 15*time.Minute),
		PoolHealthCheckPeriod: optDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
		SimpleProtocol:        optBool("DB_SIMPLE_PROTOCOL"),
	}

	cfg.Auth = AuthConfig{
		CronSecret: opt("CRON_SECRET"),
		JWTSecret:  opt("JWT_SECRET"),
		AdminRole:  opt("ADMIN_ROLE"),
	}
	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = "admin"
	}
	if cfg.Auth.CronSecret == "" && cfg.Auth.JWTSecret == "" {
		missing = append(missing, "CRON_SECRET|JWT_SECRET")
	}

	cfg.Redis = RedisConfig{
		Addr:     opt("REDIS_ADDR"),
		Password: opt("REDIS_PASSWORD"),
	}

	cfg.Scraper = ScraperConfig{
		UserAgent:     opt("SCRAPER_USER_AGENT"),
		FetchTimeout:  optDuration("SCRAPER_FETCH_TIMEOUT", 15*time.Second),
		UnitTimeout:   optDuration("SCRAPER_UNIT_TIMEOUT", 45*time.Second),
		BatchTimeout:  optDuration("SCRAPER_BATCH_TIMEOUT", 140*time.Second),
		Workers:       optInt("SCRAPER_WORKERS", 4),
		HostRPS:       optFloat("SCRAPER_HOST_RPS", 1),
		DiscoverySize: optInt("DISCOVERY_BATCH_SIZE", 20),
		ScrapeSize:    optInt("SCRAPE_BATCH_SIZE", 10),
		MaxBatchSize:  optInt("MAX_BATCH_SIZE", 100),
		RoleKeywords:  splitList(opt("ROLE_KEYWORDS")),
		PatternsFile:  opt("PATTERNS_FILE"),
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = DefaultUserAgent
	}

	cfg.Classifier = ClassifierConfig{
		URL:    opt("CLASSIFIER_URL"),
		APIKey: opt("CLASSIFIER_API_KEY"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
