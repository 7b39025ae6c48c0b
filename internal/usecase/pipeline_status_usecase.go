package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/repository"
)

const statusCacheKey = "hospital-jobs:pipeline:status"

type PipelineStatusUsecase interface {
	GetStatus(ctx context.Context) (domain.PipelineStatus, error)
}

// StatusCache keeps the last status for a few seconds so dashboards polling
// it do not hit the store on every request.
type StatusCache interface {
	Ping(ctx context.Context) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type PipelineStatus struct {
	repo  repository.PipelineStatusRepository
	cache StatusCache
	ttl   time.Duration
	log   *log.Logger
	now   func() time.Time
}

func NewPipelineStatusUsecase(repo repository.PipelineStatusRepository, cache StatusCache, logger *log.Logger) *PipelineStatus {
	if logger == nil {
		logger = log.Default()
	}
	return &PipelineStatus{repo: repo, cache: cache, ttl: 15 * time.Second, log: logger, now: time.Now}
}

// GetStatus collects counters concurrently. A failing counter is logged and
// left at zero; database health is reported separately.
func (u *PipelineStatus) GetStatus(ctx context.Context) (domain.PipelineStatus, error) {
	if u == nil || u.repo == nil {
		return domain.PipelineStatus{ServerTime: time.Now().UTC()}, nil
	}

	redisHealthy := false
	if u.cache != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		redisHealthy = u.cache.Ping(pingCtx) == nil
		cancel()
	}
	if redisHealthy {
		var cached domain.PipelineStatus
		if ok, err := u.cache.GetJSON(ctx, statusCacheKey, &cached); err == nil && ok {
			cached.RedisHealthy = true
			return cached, nil
		}
	}

	now := u.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var (
		hospitals repository.PipelineHospitalSummary
		platforms []domain.PlatformStat
		jobs      repository.PipelineJobSummary

		errHospitals error
		errPlatforms error
		errJobs      error
		errPing      error
	)

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		hospitals, errHospitals = u.repo.GetHospitalSummary(ctx)
		if errHospitals != nil {
			u.log.Printf("pipeline_status step=hospitals status=error err=%v", errHospitals)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		platforms, errPlatforms = u.repo.ListPlatformCounts(ctx)
		if errPlatforms != nil {
			u.log.Printf("pipeline_status step=platforms status=error err=%v", errPlatforms)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		jobs, errJobs = u.repo.GetJobSummary(ctx, startOfDay)
		if errJobs != nil {
			u.log.Printf("pipeline_status step=jobs status=error err=%v", errJobs)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		errPing = u.repo.Ping(pingCtx)
	}()

	wg.Wait()

	if platforms == nil {
		platforms = make([]domain.PlatformStat, 0)
	}
	data := domain.PipelineStatus{
		HospitalsTotal:      hospitals.Total,
		HospitalsActive:     hospitals.Active,
		HospitalsWithCareer: hospitals.WithCareerPage,
		LastScrapeSucceeded: hospitals.LastScrapeSucceeded,
		LastScrapeFailed:    hospitals.LastScrapeFailed,
		Platforms:           platforms,
		TotalJobs:           jobs.Total,
		JobsToday:           jobs.Today,
		DatabaseHealthy:     errPing == nil,
		RedisHealthy:        redisHealthy,
		ServerTime:          now,
	}

	if redisHealthy && errHospitals == nil && errPlatforms == nil && errJobs == nil {
		if err := u.cache.SetJSON(ctx, statusCacheKey, data, u.ttl); err != nil {
			u.log.Printf("pipeline_status step=cache status=error err=%v", err)
		}
	}
	return data, nil
}
