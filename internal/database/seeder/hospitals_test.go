package seeder

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hospital-jobs/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insertedRow struct {
	name      string
	careerURL any
	platform  any
	active    bool
}

// fakeDB keeps hospitals keyed by lower-cased website and only understands
// the roster insert.
type fakeDB struct {
	rows map[string]insertedRow
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close() error                   { return nil }
func (db *fakeDB) SQLDB() *sql.DB                 { return nil }

func (db *fakeDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, errors.New("exec outside tx")
}

func (db *fakeDB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}

func (db *fakeDB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return nil
}

func (db *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	return &fakeTx{db: db, pending: map[string]insertedRow{}}, nil
}

type fakeTx struct {
	db      *fakeDB
	pending map[string]insertedRow
}

func (tx *fakeTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if !strings.HasPrefix(strings.TrimSpace(query), "INSERT INTO hospitals") {
		return 0, errors.New("unexpected statement")
	}
	key := strings.ToLower(args[1].(string))
	if _, ok := tx.db.rows[key]; ok {
		return 0, nil
	}
	if _, ok := tx.pending[key]; ok {
		return 0, nil
	}
	tx.pending[key] = insertedRow{name: args[0].(string), careerURL: args[2], platform: args[3], active: args[4].(bool)}
	return 1, nil
}

func (tx *fakeTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}

func (tx *fakeTx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	for k, v := range tx.pending {
		tx.db.rows[k] = v
	}
	tx.pending = nil
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error { return nil }

const rosterYAML = `
hospitals:
  - name: "Klinikum  Nord &amp; Süd"
    website: klinikum-nord.example
  - name: Asklepios Test
    website: https://asklepios.example/
    careerPageUrl: https://asklepios.softgarden.io/de/vacancies
  - name: Duplicate Nord
    website: HTTPS://KLINIKUM-NORD.EXAMPLE
  - name: Closed Clinic
    website: https://closed.example
    active: false
`

func TestHospitalRosterSeeder_InsertsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rosterYAML), 0o600))

	s, err := LoadRoster(path)
	require.NoError(t, err)
	require.Len(t, s.Entries, 4)

	db := &fakeDB{rows: map[string]insertedRow{}}
	n, err := s.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	nord := db.rows["https://klinikum-nord.example"]
	assert.Equal(t, "Klinikum Nord & Süd", nord.name)
	assert.Nil(t, nord.careerURL)
	assert.True(t, nord.active)

	ask := db.rows["https://asklepios.example/"]
	assert.Equal(t, "https://asklepios.softgarden.io/de/vacancies", ask.careerURL)
	assert.Equal(t, "softgarden", ask.platform)

	assert.False(t, db.rows["https://closed.example"].active)

	again, err := s.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestHospitalRosterSeeder_RejectsIncompleteEntry(t *testing.T) {
	s := HospitalRosterSeeder{Entries: []RosterEntry{{Name: "No Site"}}}
	db := &fakeDB{rows: map[string]insertedRow{}}

	err := Runner{Seeders: []Seeder{s}}.Run(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed hospitals")
	assert.Empty(t, db.rows)
}
