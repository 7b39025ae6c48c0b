package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/hospital"

	"github.com/PuerkitoBio/goquery"
)

// DiscoveryResult keeps "nothing there" (not_found) apart from "something
// broke" (error); both leave the hospital eligible for a later retry.
type DiscoveryResult struct {
	Outcome           hospital.DiscoveryOutcome `json:"outcome"`
	CareerURL         string                    `json:"careerUrl,omitempty"`
	Platform          domain.Platform           `json:"platform,omitempty"`
	JobLinksOnLanding int                       `json:"jobLinksOnLanding"`
	Detail            string                    `json:"detail,omitempty"`
}

type Discoverer struct {
	fetcher Fetcher
	rules   *Rules
	log     *log.Logger
}

func NewDiscoverer(fetcher Fetcher, rules *Rules, logger *log.Logger) *Discoverer {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Discoverer{fetcher: fetcher, rules: rules, log: logger}
}

type anchor struct {
	url  string
	text string
}

type candidate struct {
	anchor
	score int
}

var assetRe = regexp.MustCompile(`(?i)\.(pdf|jpe?g|png|gif|svg|webp|docx?|xlsx?|zip|mp4|ics)$`)

// Discover fetches the landing page, then at most one listing candidate.
func (d *Discoverer) Discover(ctx context.Context, website string) DiscoveryResult {
	landingURL := websiteURL(website)
	if landingURL == "" {
		return DiscoveryResult{Outcome: hospital.DiscoveryError, Platform: domain.PlatformUnknown, Detail: "invalid website url"}
	}

	landing, err := d.fetcher.Fetch(ctx, landingURL)
	if err != nil {
		return DiscoveryResult{Outcome: hospital.DiscoveryError, Platform: domain.PlatformUnknown, Detail: fmt.Sprintf("landing page: %v", err)}
	}

	anchors, err := parseAnchors(landing)
	if err != nil {
		return DiscoveryResult{Outcome: hospital.DiscoveryError, Platform: domain.PlatformUnknown, Detail: fmt.Sprintf("landing page parse: %v", err)}
	}

	jobLinks := 0
	var best *candidate
	seen := map[string]struct{}{}
	self := trimSlash(landing.URL)
	for _, a := range anchors {
		if d.rules.LooksLikeJobPostingURL(a.url) {
			jobLinks++
			continue
		}
		key := trimSlash(a.url)
		if key == self || assetRe.MatchString(key) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		score := d.rules.listingScore(a)
		if score == 0 {
			continue
		}
		if best == nil || score > best.score {
			best = &candidate{anchor: a, score: score}
		}
	}

	res := DiscoveryResult{JobLinksOnLanding: jobLinks}
	candidateFailed := false

	if best != nil {
		listing, err := d.fetcher.Fetch(ctx, best.url)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return DiscoveryResult{Outcome: hospital.DiscoveryError, Platform: domain.PlatformUnknown, JobLinksOnLanding: jobLinks, Detail: ctx.Err().Error()}
			}
			candidateFailed = true
			d.log.Printf("discovery=candidate url=%s status=error err=%v", best.url, err)
			res.Detail = fmt.Sprintf("listing candidate %s: %v", best.url, err)
		case d.confirmsListing(listing):
			res.Outcome = hospital.DiscoveryFound
			res.CareerURL = listing.URL
			res.Platform = d.rules.Classify(listing.URL, string(listing.Body))
			return res
		default:
			res.Detail = fmt.Sprintf("listing candidate %s has no job links", best.url)
		}
	}

	if jobLinks > 0 {
		res.Outcome = hospital.DiscoveryFound
		res.CareerURL = landing.URL
		res.Platform = d.rules.Classify(landing.URL, string(landing.Body))
		res.Detail = ""
		return res
	}

	res.Platform = domain.PlatformUnknown
	if candidateFailed {
		res.Outcome = hospital.DiscoveryError
		return res
	}
	res.Outcome = hospital.DiscoveryNotFound
	if res.Detail == "" {
		res.Detail = "no listing link on landing page"
	}
	return res
}

// confirmsListing accepts a candidate with at least one posting link, or one
// that needs no links because its platform has a feed or embeds JobPostings.
func (d *Discoverer) confirmsListing(p *Page) bool {
	anchors, err := parseAnchors(p)
	if err == nil {
		for _, a := range anchors {
			if d.rules.LooksLikeJobPostingURL(a.url) {
				return true
			}
		}
	}
	if platform, ok := d.rules.PlatformFromURL(p.URL); ok {
		if platform.HasAPI() || platform == domain.PlatformXing {
			return true
		}
	}
	return HasJobPostingJSONLD(string(p.Body))
}

// listingScore rates how strongly an anchor suggests a job listing page:
// listing vocabulary in the text scores 3, a listing-shaped path 2, and
// generic career hints 1 each.
func (r *Rules) listingScore(a anchor) int {
	text := strings.ToLower(strings.TrimSpace(a.text))
	score := 0
	switch {
	case containsAny(text, r.listingPhrases):
		score += 3
	case containsAny(text, r.careerPhrases):
		score++
	}

	u, err := url.Parse(a.url)
	if err != nil {
		return score
	}
	path := strings.ToLower(u.EscapedPath())
	switch {
	case matchAny(r.listingPaths, path):
		score += 2
	case matchAny(r.careerPaths, path):
		score++
	}
	return score
}

func parseAnchors(p *Page) ([]anchor, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	base := documentBase(doc, p.URL)

	out := make([]anchor, 0, 64)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		abs := ResolveURL(base, s.AttrOr("href", ""))
		if abs == "" {
			return
		}
		text := Clean(s.Text())
		if text == "" {
			text = Clean(pickNonEmpty(s.AttrOr("title", ""), s.AttrOr("aria-label", "")))
		}
		out = append(out, anchor{url: abs, text: text})
	})
	return out, nil
}

func websiteURL(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	return NormalizeURL(website)
}

func trimSlash(u string) string {
	return strings.TrimRight(u, "/")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
