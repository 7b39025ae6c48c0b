package config

import (
	"errors"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_NAME", "hospital-jobs")
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("CRON_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Scraper.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Scraper.Workers)
	}
	if cfg.Scraper.FetchTimeout != 15*time.Second {
		t.Fatalf("expected 15s fetch timeout, got %s", cfg.Scraper.FetchTimeout)
	}
	if cfg.Scraper.UserAgent != DefaultUserAgent {
		t.Fatalf("expected default user agent")
	}
	if cfg.Auth.AdminRole != "admin" {
		t.Fatalf("expected admin role default, got %q", cfg.Auth.AdminRole)
	}
	if len(cfg.App.CORSAllowOrigins) != 1 || cfg.App.CORSAllowOrigins[0] != "*" {
		t.Fatalf("expected wildcard cors, got %v", cfg.App.CORSAllowOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if !errors.Is(err, errMissingRequiredEnv) {
		t.Fatalf("expected errMissingRequiredEnv, got %v", err)
	}
}

func TestLoad_RequiresSomeTriggerCredential(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CRON_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if !errors.Is(err, errMissingRequiredEnv) {
		t.Fatalf("expected errMissingRequiredEnv, got %v", err)
	}
}

func TestLoad_InvalidNumber(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SCRAPER_WORKERS", "many")

	_, err := Load()
	if !errors.Is(err, errInvalidEnv) {
		t.Fatalf("expected errInvalidEnv, got %v", err)
	}
}

func TestLoad_RoleKeywords(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ROLE_KEYWORDS", " Pflege, Arzt ,,Ärztin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{"Pflege", "Arzt", "Ärztin"}
	if len(cfg.Scraper.RoleKeywords) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Scraper.RoleKeywords)
	}
	for i := range want {
		if cfg.Scraper.RoleKeywords[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.Scraper.RoleKeywords)
		}
	}
}
