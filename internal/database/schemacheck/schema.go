package schemacheck

import (
	"context"
	"fmt"
	"sort"

	"hospital-jobs/internal/database"
)

// Required lists the columns the pipeline reads or writes, per table.
var Required = map[string][]string{
	"hospitals": {
		"id", "name", "website", "career_page_url", "career_platform", "is_active",
		"discovery_attempted_at", "last_scraped_at", "last_scrape_success",
		"scrape_success_count", "scrape_error_count", "last_error_message", "job_postings_count",
	},
	"jobs":       {"guid", "title", "apply_url", "hospital_id", "hospital_name", "location", "source", "created_at", "last_seen_at"},
	"user_roles": {"user_id", "role"},
}

// Verify fails on the first table missing a required column.
func Verify(ctx context.Context, db database.DB) error {
	tables := make([]string, 0, len(Required))
	for t := range Required {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	for _, t := range tables {
		if err := EnsureTableColumns(ctx, db, t, Required[t]...); err != nil {
			return err
		}
	}
	return nil
}

func EnsureTableColumns(ctx context.Context, db database.DB, table string, columns ...string) error {
	if db == nil {
		return database.ErrNilDB
	}
	if table == "" {
		return fmt.Errorf("empty table")
	}

	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return err
		}
		existing[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, col := range columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mismatch: table %s missing columns %v", table, missing)
	}
	return nil
}
