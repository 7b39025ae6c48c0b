package seeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"hospital-jobs/internal/database"
	"hospital-jobs/internal/scraper"

	"gopkg.in/yaml.v3"
)

// RosterEntry is one hospital in a roster file. Active defaults to true.
type RosterEntry struct {
	Name          string `yaml:"name"`
	Website       string `yaml:"website"`
	CareerPageURL string `yaml:"careerPageUrl"`
	Active        *bool  `yaml:"active"`
}

type roster struct {
	Hospitals []RosterEntry `yaml:"hospitals"`
}

// HospitalRosterSeeder inserts hospitals that are not stored yet, matched by
// website. Existing rows are never touched, so rerunning a roster is safe.
type HospitalRosterSeeder struct {
	Entries []RosterEntry
}

func LoadRoster(path string) (HospitalRosterSeeder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return HospitalRosterSeeder{}, fmt.Errorf("read roster: %w", err)
	}
	var r roster
	if err := yaml.Unmarshal(b, &r); err != nil {
		return HospitalRosterSeeder{}, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return HospitalRosterSeeder{Entries: r.Hospitals}, nil
}

func (HospitalRosterSeeder) Name() string { return "hospitals" }

func (s HospitalRosterSeeder) Run(ctx context.Context, db database.DB) (int, error) {
	if db == nil {
		return 0, database.ErrNilDB
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	inserted := 0
	for i, e := range s.Entries {
		row, err := rosterRow(e)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		n, err := tx.Exec(
			ctx,
			`INSERT INTO hospitals (name, website, career_page_url, career_platform, is_active)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (SELECT 1 FROM hospitals WHERE lower(website) = lower($2))`,
			row.name, row.website, row.careerURL, row.platform, row.active,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", row.website, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

type hospitalRow struct {
	name      string
	website   string
	careerURL any
	platform  any
	active    bool
}

func rosterRow(e RosterEntry) (hospitalRow, error) {
	name := scraper.Clean(e.Name)
	website := strings.TrimSpace(e.Website)
	if website != "" && !strings.Contains(website, "://") {
		website = "https://" + website
	}
	website = scraper.NormalizeURL(website)
	if name == "" {
		return hospitalRow{}, errors.New("missing name")
	}
	if website == "" {
		return hospitalRow{}, fmt.Errorf("%s: missing or invalid website", name)
	}

	row := hospitalRow{name: name, website: website, active: true}
	if e.Active != nil {
		row.active = *e.Active
	}
	if career := scraper.NormalizeURL(strings.TrimSpace(e.CareerPageURL)); career != "" {
		row.careerURL = career
		row.platform = string(scraper.Classify(career, ""))
	}
	return row, nil
}
