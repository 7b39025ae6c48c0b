package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/hospital"
	"hospital-jobs/internal/repository"
	"hospital-jobs/internal/scraper"
)

// writeTimeout bounds the bookkeeping writes of one unit. They run detached
// from the batch deadline so a finished unit is never left half-recorded.
const writeTimeout = 10 * time.Second

var (
	ErrNilBatch     = errors.New("hospital batch not configured")
	ErrNoCareerPage = errors.New("no career page url")
)

type Discoverer interface {
	Discover(ctx context.Context, website string) scraper.DiscoveryResult
}

type Extractor interface {
	Extract(ctx context.Context, careerURL string, platform domain.Platform, company string) (scraper.Extraction, error)
}

// Notifier is told about every finished batch.
type Notifier interface {
	BatchCompleted(evt domain.BatchEvent)
}

type BatchOptions struct {
	Workers      int
	UnitTimeout  time.Duration
	BatchTimeout time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.UnitTimeout <= 0 {
		o.UnitTimeout = 45 * time.Second
	}
	return o
}

// HospitalBatch runs one discovery or scrape batch over hospitals pulled from
// the store. Every hospital is an independent unit whose outcome is written as
// soon as it finishes; no transaction spans hospitals.
type HospitalBatch struct {
	hospitals  repository.HospitalRepository
	jobs       repository.JobRepository
	discoverer Discoverer
	extractor  Extractor
	notifier   Notifier
	opts       BatchOptions
	log        *log.Logger
	now        func() time.Time
}

func NewHospitalBatch(
	hospitals repository.HospitalRepository,
	jobs repository.JobRepository,
	discoverer Discoverer,
	extractor Extractor,
	notifier Notifier,
	opts BatchOptions,
	logger *log.Logger,
) *HospitalBatch {
	if logger == nil {
		logger = log.Default()
	}
	return &HospitalBatch{
		hospitals:  hospitals,
		jobs:       jobs,
		discoverer: discoverer,
		extractor:  extractor,
		notifier:   notifier,
		opts:       opts.withDefaults(),
		log:        logger,
		now:        time.Now,
	}
}

type DiscoveryItem struct {
	Hospital  string                    `json:"hospital"`
	Outcome   hospital.DiscoveryOutcome `json:"outcome"`
	CareerURL string                    `json:"careerUrl,omitempty"`
	Platform  domain.Platform           `json:"platform,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

type DiscoverySummary struct {
	Processed  int                     `json:"processed"`
	Found      int                     `json:"found"`
	NotFound   int                     `json:"notFound"`
	Errors     int                     `json:"errors"`
	ByPlatform map[domain.Platform]int `json:"byPlatform"`
	Results    []DiscoveryItem         `json:"results"`
}

type ScrapeItem struct {
	Hospital  string          `json:"hospital"`
	Platform  domain.Platform `json:"platform,omitempty"`
	JobsFound int             `json:"jobsFound"`
	JobsAdded int             `json:"jobsAdded"`
	Error     string          `json:"error,omitempty"`
}

type ScrapeSummary struct {
	Processed      int                     `json:"processed"`
	TotalJobsFound int                     `json:"totalJobsFound"`
	TotalJobsAdded int                     `json:"totalJobsAdded"`
	Errors         int                     `json:"errors"`
	ByPlatform     map[domain.Platform]int `json:"byPlatform"`
	Results        []ScrapeItem            `json:"results"`
}

type indexed[T any] struct {
	idx  int
	item T
}

// RunDiscoveryBatch looks for career pages of up to limit hospitals that have
// none yet. Only a failure to list hospitals is returned as an error.
func (b *HospitalBatch) RunDiscoveryBatch(ctx context.Context, limit int) (DiscoverySummary, error) {
	if b == nil || b.hospitals == nil || b.discoverer == nil {
		return DiscoverySummary{}, ErrNilBatch
	}
	start := b.now()
	ctx, cancel := b.batchContext(ctx)
	defer cancel()

	list, err := b.hospitals.ListPendingDiscovery(ctx, limit)
	if err != nil {
		return DiscoverySummary{}, fmt.Errorf("list hospitals for discovery: %w", err)
	}
	b.log.Printf("pipeline=hospital_discovery status=started hospitals=%d workers=%d", len(list), b.opts.Workers)

	items := runUnits(ctx, b.opts.Workers, list, b.discoverOne)

	sum := DiscoverySummary{ByPlatform: map[domain.Platform]int{}, Results: make([]DiscoveryItem, 0, len(items))}
	for _, it := range items {
		sum.Processed++
		switch it.Outcome {
		case hospital.DiscoveryFound:
			sum.Found++
			sum.ByPlatform[it.Platform]++
		case hospital.DiscoveryNotFound:
			sum.NotFound++
		default:
			sum.Errors++
		}
		sum.Results = append(sum.Results, it)
	}

	b.log.Printf("pipeline=hospital_discovery status=finished processed=%d found=%d not_found=%d errors=%d duration=%s",
		sum.Processed, sum.Found, sum.NotFound, sum.Errors, time.Since(start))
	b.notify(domain.BatchDiscovery, sum.Processed, sum.Found, sum.Errors)
	return sum, nil
}

// RunScrapeBatch extracts and stores postings for up to limit hospitals with
// a known career page, oldest attempt first.
func (b *HospitalBatch) RunScrapeBatch(ctx context.Context, limit int) (ScrapeSummary, error) {
	if b == nil || b.hospitals == nil || b.jobs == nil || b.extractor == nil {
		return ScrapeSummary{}, ErrNilBatch
	}
	start := b.now()
	ctx, cancel := b.batchContext(ctx)
	defer cancel()

	list, err := b.hospitals.ListForScrape(ctx, limit)
	if err != nil {
		return ScrapeSummary{}, fmt.Errorf("list hospitals for scrape: %w", err)
	}
	b.log.Printf("pipeline=hospital_scrape status=started hospitals=%d workers=%d", len(list), b.opts.Workers)

	items := runUnits(ctx, b.opts.Workers, list, b.scrapeOne)

	sum := ScrapeSummary{ByPlatform: map[domain.Platform]int{}, Results: make([]ScrapeItem, 0, len(items))}
	for _, it := range items {
		sum.Processed++
		sum.TotalJobsFound += it.JobsFound
		sum.TotalJobsAdded += it.JobsAdded
		if it.Error != "" {
			sum.Errors++
		} else {
			sum.ByPlatform[it.Platform]++
		}
		sum.Results = append(sum.Results, it)
	}

	b.log.Printf("pipeline=hospital_scrape status=finished processed=%d jobs_found=%d jobs_added=%d errors=%d duration=%s",
		sum.Processed, sum.TotalJobsFound, sum.TotalJobsAdded, sum.Errors, time.Since(start))
	b.notify(domain.BatchScrape, sum.Processed, sum.TotalJobsAdded, sum.Errors)
	return sum, nil
}

func (b *HospitalBatch) discoverOne(ctx context.Context, h hospital.Hospital) DiscoveryItem {
	start := time.Now()
	unitCtx, cancel := context.WithTimeout(ctx, b.opts.UnitTimeout)
	defer cancel()

	res := b.discoverer.Discover(unitCtx, h.Website)
	item := DiscoveryItem{Hospital: h.Name, Outcome: res.Outcome}

	wctx, wcancel := writeContext(ctx)
	defer wcancel()
	at := b.now().UTC()

	var err error
	switch res.Outcome {
	case hospital.DiscoveryFound:
		item.CareerURL, item.Platform = res.CareerURL, res.Platform
		err = b.hospitals.UpdateDiscovery(wctx, h.ID, res.CareerURL, res.Platform, at)
	case hospital.DiscoveryNotFound:
		err = b.hospitals.MarkDiscoveryAttempt(wctx, h.ID, at, "")
	default:
		item.Outcome = hospital.DiscoveryError
		item.Error = hospital.TruncateError(res.Detail)
		err = b.hospitals.MarkDiscoveryAttempt(wctx, h.ID, at, item.Error)
	}
	if err != nil {
		item.Outcome = hospital.DiscoveryError
		item.CareerURL, item.Platform = "", ""
		item.Error = hospital.TruncateError(fmt.Sprintf("store discovery result: %v", err))
	}

	b.log.Printf("pipeline=hospital_discovery hospital=%q outcome=%s platform=%s career_url=%q duration=%s",
		h.Name, item.Outcome, item.Platform, item.CareerURL, time.Since(start))
	return item
}

func (b *HospitalBatch) scrapeOne(ctx context.Context, h hospital.Hospital) ScrapeItem {
	start := time.Now()
	unitCtx, cancel := context.WithTimeout(ctx, b.opts.UnitTimeout)
	defer cancel()

	item := ScrapeItem{Hospital: h.Name, Platform: h.Platform()}
	var (
		ex  scraper.Extraction
		err error = ErrNoCareerPage
	)
	if h.HasCareerPage() {
		ex, err = b.extractor.Extract(unitCtx, *h.CareerPageURL, h.Platform(), h.Name)
	}

	wctx, wcancel := writeContext(ctx)
	defer wcancel()

	if err == nil {
		item.Platform = ex.Platform
		item.JobsFound = len(ex.Records)
		added, uerr := b.jobs.UpsertBatch(wctx, h.ID, ex.Records)
		if uerr != nil {
			err = fmt.Errorf("store jobs: %w", uerr)
		} else {
			item.JobsAdded = added
		}
	}

	out := hospital.ScrapeOutcome{Success: err == nil, JobsFound: item.JobsFound, At: b.now().UTC()}
	if err != nil {
		item.Error = hospital.TruncateError(err.Error())
		out.ErrorMessage = item.Error
	}
	if werr := b.hospitals.UpdateScrapeResult(wctx, h.ID, out); werr != nil {
		b.log.Printf("pipeline=hospital_scrape hospital=%q status=bookkeeping_error err=%v", h.Name, werr)
		if item.Error == "" {
			item.Error = hospital.TruncateError(fmt.Sprintf("store scrape result: %v", werr))
		}
	}

	status := "ok"
	if item.Error != "" {
		status = "error"
	}
	b.log.Printf("pipeline=hospital_scrape status=%s hospital=%q platform=%s jobs_found=%d jobs_added=%d duration=%s",
		status, h.Name, item.Platform, item.JobsFound, item.JobsAdded, time.Since(start))
	return item
}

// runUnits fans list out over a worker pool and folds the results back in
// input order. Units never started because the batch deadline passed are
// absent from the result.
func runUnits[T any](ctx context.Context, workers int, list []hospital.Hospital, unit func(context.Context, hospital.Hospital) T) []T {
	if len(list) == 0 {
		return nil
	}
	if workers > len(list) {
		workers = len(list)
	}

	pool := NewWorkerPool[indexed[T]](workers, workers)
	results := pool.Run(ctx)

	go func() {
		defer pool.Close()
		for i, h := range list {
			ok := pool.Submit(ctx, func(ctx context.Context) indexed[T] {
				return indexed[T]{idx: i, item: unit(ctx, h)}
			})
			if !ok {
				return
			}
		}
	}()

	collected := make([]indexed[T], 0, len(list))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(a, c int) bool { return collected[a].idx < collected[c].idx })

	out := make([]T, 0, len(collected))
	for _, r := range collected {
		out = append(out, r.item)
	}
	return out
}

func (b *HospitalBatch) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opts.BatchTimeout > 0 {
		return context.WithTimeout(ctx, b.opts.BatchTimeout)
	}
	return context.WithCancel(ctx)
}

func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

func (b *HospitalBatch) notify(kind domain.BatchKind, processed, found, errs int) {
	if b.notifier == nil {
		return
	}
	b.notifier.BatchCompleted(domain.BatchEvent{
		Type:      "batch_completed",
		Kind:      kind,
		Processed: processed,
		Found:     found,
		Errors:    errs,
		Timestamp: b.now().UTC(),
	})
}
