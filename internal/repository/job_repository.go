package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hospital-jobs/internal/database"
	"hospital-jobs/internal/domain/job"

	"github.com/google/uuid"
)

// JobRepository is the posting half of the persistence gateway.
type JobRepository interface {
	// Upsert inserts rec unless its GUID exists; an existing row only gets
	// last_seen_at refreshed. It reports whether a new row was written.
	Upsert(ctx context.Context, hospitalID uuid.UUID, rec job.Record) (bool, error)
	// UpsertBatch writes all records of one hospital in a single transaction
	// and returns how many were new.
	UpsertBatch(ctx context.Context, hospitalID uuid.UUID, recs []job.Record) (int, error)
}

type PostgresJobRepository struct {
	db  database.DB
	now func() time.Time
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db, now: time.Now}
}

const upsertJobSQL = `INSERT INTO jobs (
		id, guid, title, apply_url, hospital_id, hospital_name, location, source, created_at, last_seen_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
	ON CONFLICT (guid) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
	RETURNING (xmax = 0)`

type queryRower interface {
	QueryRow(ctx context.Context, query string, args ...any) database.Row
}

func (r *PostgresJobRepository) Upsert(ctx context.Context, hospitalID uuid.UUID, rec job.Record) (bool, error) {
	if r == nil || r.db == nil {
		return false, database.ErrNilDB
	}
	return r.upsert(ctx, r.db, hospitalID, rec)
}

func (r *PostgresJobRepository) UpsertBatch(ctx context.Context, hospitalID uuid.UUID, recs []job.Record) (int, error) {
	if r == nil || r.db == nil {
		return 0, database.ErrNilDB
	}
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin job upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	added := 0
	for _, rec := range recs {
		inserted, err := r.upsert(ctx, tx, hospitalID, rec)
		if err != nil {
			return 0, err
		}
		if inserted {
			added++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit job upsert: %w", err)
	}
	return added, nil
}

func (r *PostgresJobRepository) upsert(ctx context.Context, q queryRower, hospitalID uuid.UUID, rec job.Record) (bool, error) {
	guid := strings.TrimSpace(rec.GUID)
	if guid == "" {
		return false, fmt.Errorf("upsert job: empty guid")
	}
	if strings.TrimSpace(rec.Title) == "" {
		return false, fmt.Errorf("upsert job %s: empty title", guid)
	}
	link := strings.TrimSpace(rec.Link)
	if link == "" {
		link = guid
	}

	var hid any
	if hospitalID != uuid.Nil {
		hid = hospitalID
	}

	var inserted bool
	row := q.QueryRow(ctx, upsertJobSQL,
		uuid.New(),
		guid,
		rec.Title,
		link,
		hid,
		nullableText(rec.Company),
		nullableText(rec.Location),
		job.SourceHospitalScrape,
		r.now().UTC(),
	)
	if err := row.Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert job %s: %w", guid, err)
	}
	return inserted, nil
}
