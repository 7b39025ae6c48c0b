package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-jobs/internal/database"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/hospital"

	"github.com/google/uuid"
)

var ErrHospitalNotFound = errors.New("hospital not found")

// HospitalRepository is the hospital half of the persistence gateway. List
// queries own the staleness ordering; callers only consume the page.
type HospitalRepository interface {
	ListPendingDiscovery(ctx context.Context, limit int) ([]hospital.Hospital, error)
	ListForScrape(ctx context.Context, limit int) ([]hospital.Hospital, error)
	UpdateDiscovery(ctx context.Context, id uuid.UUID, careerURL string, platform domain.Platform, at time.Time) error
	MarkDiscoveryAttempt(ctx context.Context, id uuid.UUID, at time.Time, errMsg string) error
	UpdateScrapeResult(ctx context.Context, id uuid.UUID, out hospital.ScrapeOutcome) error
}

type PostgresHospitalRepository struct {
	db database.DB
}

func NewPostgresHospitalRepository(db database.DB) *PostgresHospitalRepository {
	return &PostgresHospitalRepository{db: db}
}

const hospitalColumns = `id, name, website, career_page_url, career_platform, is_active,
	discovery_attempted_at, last_scraped_at, last_scrape_success,
	scrape_success_count, scrape_error_count, last_error_message, job_postings_count`

func (r *PostgresHospitalRepository) ListPendingDiscovery(ctx context.Context, limit int) ([]hospital.Hospital, error) {
	return r.list(ctx,
		`SELECT `+hospitalColumns+`
		 FROM hospitals
		 WHERE is_active = true AND career_page_url IS NULL
		 ORDER BY discovery_attempted_at ASC NULLS FIRST, created_at ASC
		 LIMIT $1`,
		clampLimit(limit),
	)
}

func (r *PostgresHospitalRepository) ListForScrape(ctx context.Context, limit int) ([]hospital.Hospital, error) {
	return r.list(ctx,
		`SELECT `+hospitalColumns+`
		 FROM hospitals
		 WHERE is_active = true AND career_page_url IS NOT NULL
		 ORDER BY last_scraped_at ASC NULLS FIRST, created_at ASC
		 LIMIT $1`,
		clampLimit(limit),
	)
}

func (r *PostgresHospitalRepository) list(ctx context.Context, query string, limit int) ([]hospital.Hospital, error) {
	if r == nil || r.db == nil {
		return nil, database.ErrNilDB
	}
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	defer rows.Close()

	out := make([]hospital.Hospital, 0, limit)
	for rows.Next() {
		var h hospital.Hospital
		var platform *string
		if err := rows.Scan(
			&h.ID, &h.Name, &h.Website, &h.CareerPageURL, &platform, &h.IsActive,
			&h.DiscoveryAttemptedAt, &h.LastScrapedAt, &h.LastScrapeSuccess,
			&h.ScrapeSuccessCount, &h.ScrapeErrorCount, &h.LastErrorMessage, &h.JobPostingsCount,
		); err != nil {
			return nil, err
		}
		if platform != nil {
			p := domain.ParsePlatform(*platform)
			h.CareerPlatform = &p
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresHospitalRepository) UpdateDiscovery(ctx context.Context, id uuid.UUID, careerURL string, platform domain.Platform, at time.Time) error {
	if r == nil || r.db == nil {
		return database.ErrNilDB
	}
	if careerURL == "" {
		return fmt.Errorf("empty career url")
	}
	n, err := r.db.Exec(ctx,
		`UPDATE hospitals SET
			career_page_url = $2,
			career_platform = $3,
			discovery_attempted_at = $4,
			last_error_message = NULL,
			updated_at = now()
		 WHERE id = $1`,
		id, careerURL, string(platform), at.UTC(),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHospitalNotFound
	}
	return nil
}

func (r *PostgresHospitalRepository) MarkDiscoveryAttempt(ctx context.Context, id uuid.UUID, at time.Time, errMsg string) error {
	if r == nil || r.db == nil {
		return database.ErrNilDB
	}
	n, err := r.db.Exec(ctx,
		`UPDATE hospitals SET
			discovery_attempted_at = $2,
			last_error_message = $3,
			updated_at = now()
		 WHERE id = $1`,
		id, at.UTC(), nullableText(hospital.TruncateError(errMsg)),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHospitalNotFound
	}
	return nil
}

// UpdateScrapeResult increments exactly one of the two counters and always stamps last_scraped_at.
func (r *PostgresHospitalRepository) UpdateScrapeResult(ctx context.Context, id uuid.UUID, out hospital.ScrapeOutcome) error {
	if r == nil || r.db == nil {
		return database.ErrNilDB
	}
	at := out.At
	if at.IsZero() {
		at = time.Now()
	}

	var (
		n   int64
		err error
	)
	if out.Success {
		n, err = r.db.Exec(ctx,
			`UPDATE hospitals SET
				last_scraped_at = $2,
				last_scrape_success = true,
				scrape_success_count = scrape_success_count + 1,
				last_error_message = NULL,
				job_postings_count = $3,
				updated_at = now()
			 WHERE id = $1`,
			id, at.UTC(), out.JobsFound,
		)
	} else {
		msg := hospital.TruncateError(out.ErrorMessage)
		if msg == "" {
			msg = "scrape failed"
		}
		n, err = r.db.Exec(ctx,
			`UPDATE hospitals SET
				last_scraped_at = $2,
				last_scrape_success = false,
				scrape_error_count = scrape_error_count + 1,
				last_error_message = $3,
				updated_at = now()
			 WHERE id = $1`,
			id, at.UTC(), msg,
		)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrHospitalNotFound
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
