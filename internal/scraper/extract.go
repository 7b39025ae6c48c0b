package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
)

// Extraction is what one scrape of a career page produced. Platform names the
// strategy that yielded the records, which differs from the requested one
// after a fallback.
type Extraction struct {
	Records  []job.Record    `json:"records"`
	Platform domain.Platform `json:"platform"`
	Fallback bool            `json:"fallback"`
}

type strategy func(ctx context.Context, e *Extractor, src *source) ([]job.Record, domain.Platform, error)

// source is one career page being extracted. The HTML is fetched at most once
// and shared by every strategy that needs it.
type source struct {
	careerURL string
	page      *Page
	doc       *goquery.Document
}

type Extractor struct {
	html       Fetcher
	api        Fetcher
	rules      *Rules
	filter     *RoleFilter
	log        *log.Logger
	strategies map[domain.Platform]strategy
}

// NewExtractor wires the per-platform strategies. html serves career pages;
// api serves structured feeds. filter may be nil.
func NewExtractor(html, api Fetcher, rules *Rules, filter *RoleFilter, logger *log.Logger) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = log.Default()
	}
	if api == nil {
		api = html
	}
	e := &Extractor{html: html, api: api, rules: rules, filter: filter, log: logger}
	e.strategies = map[domain.Platform]strategy{
		domain.PlatformSoftgarden:     feedStrategy(softgardenFeed),
		domain.PlatformPersonio:       feedStrategy(personioFeed),
		domain.PlatformRexx:           feedStrategy(rexxFeed),
		domain.PlatformSuccessFactors: feedStrategy(successFactorsFeed),
		domain.PlatformXing:           extractXing,
		domain.PlatformJSONLD:         extractJSONLD,
		domain.PlatformGenericHTML:    extractGeneric,
		domain.PlatformUnknown:        extractNone,
	}
	return e
}

// Extract runs the strategy for platform against careerURL and returns the
// cleaned, deduplicated and role-filtered records. A stored platform that no
// longer parses is re-derived from the URL. An error means the career page
// itself could not be read; "no jobs" is an empty Extraction.
func (e *Extractor) Extract(ctx context.Context, careerURL string, platform domain.Platform, company string) (Extraction, error) {
	careerURL = NormalizeURL(careerURL)
	if careerURL == "" {
		return Extraction{Platform: domain.PlatformUnknown}, nil
	}
	if !platform.Valid() || platform == domain.PlatformUnknown {
		platform = e.rules.Classify(careerURL, "")
	}

	run, ok := e.strategies[platform]
	if !ok {
		run = extractNone
	}

	src := &source{careerURL: careerURL}
	recs, used, err := run(ctx, e, src)
	if err != nil {
		return Extraction{Platform: platform}, err
	}

	recs = finalize(recs, company)
	if e.filter != nil {
		recs = e.filter.Apply(ctx, recs)
	}
	return Extraction{Records: recs, Platform: used, Fallback: used != platform}, nil
}

func (s *source) load(ctx context.Context, f Fetcher) (*goquery.Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	page, err := f.Fetch(ctx, s.careerURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	s.page, s.doc = page, doc
	return doc, nil
}

func extractNone(_ context.Context, _ *Extractor, _ *source) ([]job.Record, domain.Platform, error) {
	return nil, domain.PlatformUnknown, nil
}

// extractJSONLD reads schema.org JobPosting blocks and falls back to anchor
// scanning on the same page when none are embedded.
func extractJSONLD(ctx context.Context, e *Extractor, src *source) ([]job.Record, domain.Platform, error) {
	doc, err := src.load(ctx, e.html)
	if err != nil {
		return nil, domain.PlatformUnknown, err
	}
	postings := jsonLDJobPostings(doc)
	if len(postings) == 0 {
		return e.rules.genericRecords(doc, src.page.URL), domain.PlatformGenericHTML, nil
	}

	out := make([]job.Record, 0, len(postings))
	for _, p := range postings {
		if rec, ok := jsonLDRecord(p, src.page.URL); ok {
			out = append(out, rec)
		}
	}
	return out, domain.PlatformJSONLD, nil
}

func extractGeneric(ctx context.Context, e *Extractor, src *source) ([]job.Record, domain.Platform, error) {
	doc, err := src.load(ctx, e.html)
	if err != nil {
		return nil, domain.PlatformUnknown, err
	}
	return e.rules.genericRecords(doc, src.page.URL), domain.PlatformGenericHTML, nil
}

// finalize cleans every field, drops records without title or link, defaults
// the guid to the link and keeps the first record per guid.
func finalize(in []job.Record, company string) []job.Record {
	company = Clean(company)
	seen := make(map[string]struct{}, len(in))
	out := make([]job.Record, 0, len(in))
	for _, r := range in {
		r.Title = Clean(r.Title)
		r.Link = NormalizeURL(r.Link)
		if r.Title == "" || r.Link == "" {
			continue
		}
		r.Company = Clean(pickNonEmpty(r.Company, company))
		r.Location = Clean(r.Location)
		if r.GUID == "" {
			r.GUID = r.Link
		}
		if _, dup := seen[r.GUID]; dup {
			continue
		}
		seen[r.GUID] = struct{}{}
		out = append(out, r)
	}
	return out
}
