package domain

import "time"

type BatchKind string

const (
	BatchDiscovery BatchKind = "discovery"
	BatchScrape    BatchKind = "scrape"
)

type PlatformStat struct {
	Platform  Platform `json:"platform"`
	Hospitals int      `json:"hospitals"`
}

type PipelineStatus struct {
	HospitalsTotal      int            `json:"hospitals_total"`
	HospitalsActive     int            `json:"hospitals_active"`
	HospitalsWithCareer int            `json:"hospitals_with_career_page"`
	LastScrapeSucceeded int            `json:"last_scrape_succeeded"`
	LastScrapeFailed    int            `json:"last_scrape_failed"`
	Platforms           []PlatformStat `json:"platforms"`
	TotalJobs           int            `json:"total_jobs"`
	JobsToday           int            `json:"jobs_today"`
	DatabaseHealthy     bool           `json:"database_healthy"`
	RedisHealthy        bool           `json:"redis_healthy"`
	ServerTime          time.Time      `json:"server_time"`
}

// BatchEvent is pushed to dashboard subscribers after every completed batch.
type BatchEvent struct {
	Type      string    `json:"type"`
	Kind      BatchKind `json:"kind"`
	Processed int       `json:"processed"`
	Found     int       `json:"found"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}
