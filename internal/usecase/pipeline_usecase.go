package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/pipeline"
)

var (
	ErrBatchRunning     = errors.New("batch already running")
	ErrInvalidBatchSize = errors.New("batchSize must be a positive integer")
)

type BatchRunner interface {
	RunDiscoveryBatch(ctx context.Context, limit int) (pipeline.DiscoverySummary, error)
	RunScrapeBatch(ctx context.Context, limit int) (pipeline.ScrapeSummary, error)
}

// BatchLocker keeps two invocations of the same batch kind from overlapping.
type BatchLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type PipelineUsecase interface {
	RunDiscovery(ctx context.Context, batchSize *int) (pipeline.DiscoverySummary, error)
	RunScrape(ctx context.Context, batchSize *int) (pipeline.ScrapeSummary, error)
}

type BatchSizes struct {
	Discovery int
	Scrape    int
	Max       int
	// LockTTL should outlive the batch deadline.
	LockTTL time.Duration
}

type Pipeline struct {
	runner BatchRunner
	locker BatchLocker
	sizes  BatchSizes
	log    *log.Logger
}

func NewPipelineUsecase(runner BatchRunner, locker BatchLocker, sizes BatchSizes, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if sizes.Discovery <= 0 {
		sizes.Discovery = 20
	}
	if sizes.Scrape <= 0 {
		sizes.Scrape = 10
	}
	if sizes.Max <= 0 {
		sizes.Max = 100
	}
	if sizes.LockTTL <= 0 {
		sizes.LockTTL = 5 * time.Minute
	}
	return &Pipeline{runner: runner, locker: locker, sizes: sizes, log: logger}
}

func (u *Pipeline) RunDiscovery(ctx context.Context, batchSize *int) (pipeline.DiscoverySummary, error) {
	limit, err := u.limit(batchSize, u.sizes.Discovery)
	if err != nil {
		return pipeline.DiscoverySummary{}, err
	}
	release, err := u.lock(ctx, domain.BatchDiscovery)
	if err != nil {
		return pipeline.DiscoverySummary{}, err
	}
	defer release()

	return u.runner.RunDiscoveryBatch(ctx, limit)
}

func (u *Pipeline) RunScrape(ctx context.Context, batchSize *int) (pipeline.ScrapeSummary, error) {
	limit, err := u.limit(batchSize, u.sizes.Scrape)
	if err != nil {
		return pipeline.ScrapeSummary{}, err
	}
	release, err := u.lock(ctx, domain.BatchScrape)
	if err != nil {
		return pipeline.ScrapeSummary{}, err
	}
	defer release()

	return u.runner.RunScrapeBatch(ctx, limit)
}

func (u *Pipeline) limit(batchSize *int, def int) (int, error) {
	if batchSize == nil {
		return def, nil
	}
	if *batchSize < 1 {
		return 0, ErrInvalidBatchSize
	}
	if *batchSize > u.sizes.Max {
		return u.sizes.Max, nil
	}
	return *batchSize, nil
}

// lock takes the per-kind batch lock. A lock store that errors is logged and
// bypassed; only a lock held by someone else blocks the batch.
func (u *Pipeline) lock(ctx context.Context, kind domain.BatchKind) (func(), error) {
	if u.locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("hospital-jobs:batch:%s", kind)
	token, ok, err := u.locker.AcquireLock(ctx, key, u.sizes.LockTTL)
	if err != nil {
		u.log.Printf("pipeline=%s step=lock status=bypassed err=%v", kind, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrBatchRunning
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := u.locker.ReleaseLock(rctx, key, token); err != nil {
			u.log.Printf("pipeline=%s step=unlock status=error err=%v", kind, err)
		}
	}, nil
}
