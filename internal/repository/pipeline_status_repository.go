package repository

import (
	"context"
	"time"

	"hospital-jobs/internal/database"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/job"
)

type PipelineHospitalSummary struct {
	Total               int
	Active              int
	WithCareerPage      int
	LastScrapeSucceeded int
	LastScrapeFailed    int
}

type PipelineJobSummary struct {
	Total int
	Today int
}

type PipelineStatusRepository interface {
	GetHospitalSummary(ctx context.Context) (PipelineHospitalSummary, error)
	ListPlatformCounts(ctx context.Context) ([]domain.PlatformStat, error)
	GetJobSummary(ctx context.Context, since time.Time) (PipelineJobSummary, error)
	Ping(ctx context.Context) error
}

type PostgresPipelineStatusRepository struct {
	db database.DB
}

func NewPostgresPipelineStatusRepository(db database.DB) *PostgresPipelineStatusRepository {
	return &PostgresPipelineStatusRepository{db: db}
}

func (r *PostgresPipelineStatusRepository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return database.ErrNilDB
	}
	return r.db.Ping(ctx)
}

func (r *PostgresPipelineStatusRepository) GetHospitalSummary(ctx context.Context) (PipelineHospitalSummary, error) {
	var out PipelineHospitalSummary
	row := r.db.QueryRow(ctx,
		`SELECT
			COUNT(1),
			COUNT(1) FILTER (WHERE is_active),
			COUNT(1) FILTER (WHERE career_page_url IS NOT NULL),
			COUNT(1) FILTER (WHERE last_scraped_at IS NOT NULL AND last_scrape_success),
			COUNT(1) FILTER (WHERE last_scraped_at IS NOT NULL AND NOT last_scrape_success)
		 FROM hospitals`,
	)
	if err := row.Scan(&out.Total, &out.Active, &out.WithCareerPage, &out.LastScrapeSucceeded, &out.LastScrapeFailed); err != nil {
		return PipelineHospitalSummary{}, err
	}
	return out, nil
}

func (r *PostgresPipelineStatusRepository) ListPlatformCounts(ctx context.Context) ([]domain.PlatformStat, error) {
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(career_platform, 'unknown'), COUNT(1) AS hospitals
		 FROM hospitals
		 WHERE career_page_url IS NOT NULL
		 GROUP BY 1
		 ORDER BY hospitals DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PlatformStat, 0)
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out = append(out, domain.PlatformStat{Platform: domain.ParsePlatform(p), Hospitals: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresPipelineStatusRepository) GetJobSummary(ctx context.Context, since time.Time) (PipelineJobSummary, error) {
	var out PipelineJobSummary
	row := r.db.QueryRow(ctx,
		`SELECT COUNT(1), COUNT(1) FILTER (WHERE created_at >= $2)
		 FROM jobs
		 WHERE source = $1`,
		job.SourceHospitalScrape, since.UTC(),
	)
	if err := row.Scan(&out.Total, &out.Today); err != nil {
		return PipelineJobSummary{}, err
	}
	return out, nil
}
