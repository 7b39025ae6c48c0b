package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"hospital-jobs/internal/database"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/hospital"
	"hospital-jobs/internal/domain/job"

	"github.com/google/uuid"
)

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("scan dest mismatch")
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *bool:
			val, ok := r.vals[i].(bool)
			if !ok {
				return fmt.Errorf("scan type mismatch bool")
			}
			*d = val
		default:
			return fmt.Errorf("unsupported scan type")
		}
	}
	return nil
}

type hospitalRow struct {
	careerURL    string
	platform     string
	successCount int
	errorCount   int
	lastSuccess  bool
	lastError    any
	lastScraped  time.Time
	jobsCount    int
	attemptedAt  time.Time
}

type fakeDB struct {
	mu sync.Mutex

	hospitals map[uuid.UUID]*hospitalRow
	jobs      map[string]job.Record
	roles     map[string]bool

	failGUID string
	commits  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		hospitals: map[uuid.UUID]*hospitalRow{},
		jobs:      map[string]job.Record{},
		roles:     map[string]bool{},
	}
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close() error                   { return nil }
func (db *fakeDB) SQLDB() *sql.DB                 { return nil }

func (db *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	db.mu.Lock()
	snapshot := make(map[string]job.Record, len(db.jobs))
	for k, v := range db.jobs {
		snapshot[k] = v
	}
	db.mu.Unlock()
	return &fakeTx{db: db, snapshot: snapshot}, nil
}

func (db *fakeDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(q, "update hospitals set") {
		return 0, nil
	}
	h, ok := db.hospitals[args[0].(uuid.UUID)]
	if !ok {
		return 0, nil
	}
	switch {
	case strings.Contains(q, "career_page_url = $2"):
		h.careerURL = args[1].(string)
		h.platform = args[2].(string)
		h.attemptedAt = args[3].(time.Time)
		h.lastError = nil
	case strings.Contains(q, "scrape_success_count = scrape_success_count + 1"):
		h.lastScraped = args[1].(time.Time)
		h.successCount++
		h.lastSuccess = true
		h.lastError = nil
		h.jobsCount = args[2].(int)
	case strings.Contains(q, "scrape_error_count = scrape_error_count + 1"):
		h.lastScraped = args[1].(time.Time)
		h.errorCount++
		h.lastSuccess = false
		h.lastError = args[2]
	case strings.Contains(q, "discovery_attempted_at = $2"):
		h.attemptedAt = args[1].(time.Time)
		h.lastError = args[2]
	}
	return 1, nil
}

func (db *fakeDB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (db *fakeDB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(q, "insert into jobs"):
		// args: id, guid, title, apply_url, hospital_id, hospital_name, location, source, created_at
		guid := args[1].(string)
		if guid == db.failGUID {
			return fakeRow{err: fmt.Errorf("constraint violation")}
		}
		if _, ok := db.jobs[guid]; ok {
			return fakeRow{vals: []any{false}}
		}
		rec := job.Record{GUID: guid, Title: args[2].(string), Link: args[3].(string)}
		if v := args[5]; v != nil {
			rec.Company = v.(string)
		}
		db.jobs[guid] = rec
		return fakeRow{vals: []any{true}}

	case strings.HasPrefix(q, "select exists(select 1 from user_roles"):
		key := args[0].(uuid.UUID).String() + "|" + args[1].(string)
		return fakeRow{vals: []any{db.roles[key]}}

	default:
		return fakeRow{err: fmt.Errorf("unsupported queryrow")}
	}
}

type fakeTx struct {
	db       *fakeDB
	snapshot map[string]job.Record
	done     bool
}

func (t *fakeTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return t.db.Exec(ctx, query, args...)
}
func (t *fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return t.db.Query(ctx, query, args...)
}
func (t *fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return t.db.QueryRow(ctx, query, args...)
}
func (t *fakeTx) Commit(ctx context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.done = true
	t.db.commits++
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("tx closed")
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	t.db.jobs = t.snapshot
	t.done = true
	return nil
}

func TestJobRepository_UpsertIsIdempotent(t *testing.T) {
	db := newFakeDB()
	repo := NewPostgresJobRepository(db)
	ctx := context.Background()
	hid := uuid.New()

	rec := job.Record{
		Title:   "Assistenzarzt (m/w/d) Neurologie",
		Link:    "https://karriere.charite.de/stellenangebote/detail/6756",
		Company: "Charité",
		GUID:    "https://karriere.charite.de/stellenangebote/detail/6756",
	}

	first, err := repo.Upsert(ctx, hid, rec)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, hid, rec)
	if err != nil {
		t.Fatalf("upsert (2nd): %v", err)
	}

	if !first || second {
		t.Fatalf("expected inserted=true then false, got %v %v", first, second)
	}
	if got := len(db.jobs); got != 1 {
		t.Fatalf("expected 1 job row, got %d", got)
	}
}

func TestJobRepository_UpsertRejectsEmptyGUID(t *testing.T) {
	repo := NewPostgresJobRepository(newFakeDB())
	if _, err := repo.Upsert(context.Background(), uuid.New(), job.Record{Title: "x"}); err == nil {
		t.Fatalf("expected error for empty guid")
	}
}

func TestJobRepository_UpsertBatchCountsOnlyNew(t *testing.T) {
	db := newFakeDB()
	repo := NewPostgresJobRepository(db)
	ctx := context.Background()
	hid := uuid.New()

	recs := []job.Record{
		{Title: "Pflegefachkraft", Link: "https://h.example/jobs/1", GUID: "https://h.example/jobs/1"},
		{Title: "Hebamme", Link: "https://h.example/jobs/2", GUID: "https://h.example/jobs/2"},
	}
	added, err := repo.UpsertBatch(ctx, hid, recs)
	if err != nil || added != 2 {
		t.Fatalf("expected 2 added, got %d err=%v", added, err)
	}

	recs = append(recs, job.Record{Title: "MTRA", Link: "https://h.example/jobs/3", GUID: "https://h.example/jobs/3"})
	added, err = repo.UpsertBatch(ctx, hid, recs)
	if err != nil || added != 1 {
		t.Fatalf("expected 1 added, got %d err=%v", added, err)
	}
	if len(db.jobs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(db.jobs))
	}
}

func TestJobRepository_UpsertBatchRollsBackOnFailure(t *testing.T) {
	db := newFakeDB()
	db.failGUID = "https://h.example/jobs/bad"
	repo := NewPostgresJobRepository(db)

	recs := []job.Record{
		{Title: "Pflegefachkraft", Link: "https://h.example/jobs/1", GUID: "https://h.example/jobs/1"},
		{Title: "Broken", Link: db.failGUID, GUID: db.failGUID},
	}
	if _, err := repo.UpsertBatch(context.Background(), uuid.New(), recs); err == nil {
		t.Fatalf("expected error")
	}
	if len(db.jobs) != 0 {
		t.Fatalf("expected rollback to leave 0 rows, got %d", len(db.jobs))
	}
}

func TestHospitalRepository_UpdateScrapeResultCounters(t *testing.T) {
	db := newFakeDB()
	id := uuid.New()
	db.hospitals[id] = &hospitalRow{careerURL: "https://h.example/karriere"}
	repo := NewPostgresHospitalRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.UpdateScrapeResult(ctx, id, hospital.ScrapeOutcome{Success: true, JobsFound: 7, At: now}); err != nil {
		t.Fatalf("update success: %v", err)
	}
	h := db.hospitals[id]
	if h.successCount != 1 || h.errorCount != 0 || !h.lastSuccess || h.jobsCount != 7 {
		t.Fatalf("unexpected state after success: %+v", h)
	}

	long := strings.Repeat("x", hospital.MaxErrorMessageLen+50)
	if err := repo.UpdateScrapeResult(ctx, id, hospital.ScrapeOutcome{ErrorMessage: long, At: now.Add(time.Hour)}); err != nil {
		t.Fatalf("update error: %v", err)
	}
	if h.successCount != 1 || h.errorCount != 1 || h.lastSuccess {
		t.Fatalf("unexpected counters after error: %+v", h)
	}
	if !h.lastScraped.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected last_scraped_at to be set on error")
	}
	msg, _ := h.lastError.(string)
	if n := len([]rune(msg)); n != hospital.MaxErrorMessageLen {
		t.Fatalf("expected truncated message of %d runes, got %d", hospital.MaxErrorMessageLen, n)
	}
	if h.jobsCount != 7 {
		t.Fatalf("expected job_postings_count untouched by failure, got %d", h.jobsCount)
	}
}

func TestHospitalRepository_UpdateUnknownHospital(t *testing.T) {
	repo := NewPostgresHospitalRepository(newFakeDB())
	err := repo.UpdateDiscovery(context.Background(), uuid.New(), "https://h.example/jobs", domain.PlatformGenericHTML, time.Now())
	if err != ErrHospitalNotFound {
		t.Fatalf("expected ErrHospitalNotFound, got %v", err)
	}
}

func TestHospitalRepository_UpdateDiscovery(t *testing.T) {
	db := newFakeDB()
	id := uuid.New()
	db.hospitals[id] = &hospitalRow{lastError: "old"}
	repo := NewPostgresHospitalRepository(db)

	err := repo.UpdateDiscovery(context.Background(), id, "https://h.example/stellenangebote", domain.PlatformGenericHTML, time.Now())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	h := db.hospitals[id]
	if h.careerURL != "https://h.example/stellenangebote" || h.platform != "generic_html" {
		t.Fatalf("unexpected discovery state: %+v", h)
	}
	if h.lastError != nil {
		t.Fatalf("expected error cleared")
	}
}

func TestUserRoleRepository_HasRole(t *testing.T) {
	db := newFakeDB()
	uid := uuid.New()
	db.roles[uid.String()+"|admin"] = true
	repo := NewPostgresUserRoleRepository(db)

	ok, err := repo.HasRole(context.Background(), uid, "admin")
	if err != nil || !ok {
		t.Fatalf("expected admin role, got %v err=%v", ok, err)
	}
	ok, err = repo.HasRole(context.Background(), uuid.New(), "admin")
	if err != nil || ok {
		t.Fatalf("expected no role, got %v err=%v", ok, err)
	}
}
