package scraper

import (
	"net/url"
	"strings"
)

// LooksLikeJobPostingURL reports whether u plausibly points at a single
// posting rather than a listing or index page. It is a cheap pre-filter:
// false positives and negatives show up as lower yield, never as errors.
func LooksLikeJobPostingURL(u string) bool {
	return defaultRules.LooksLikeJobPostingURL(u)
}

func (r *Rules) LooksLikeJobPostingURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	full := strings.ToLower(u.String())
	if !matchAny(r.jobLinks, full) {
		return false
	}

	bare := *u
	bare.RawQuery = ""
	bare.Fragment = ""
	bare.RawFragment = ""
	return !matchAny(r.blacklist, strings.ToLower(bare.String()))
}
