package scraper

import (
	"encoding/json"
	"net/url"
	"strings"

	"hospital-jobs/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Classify picks the extraction platform for a career URL. URL signatures win;
// otherwise a JobPosting JSON-LD block in sampleHTML means jsonld; anything
// else is generic_html. Only an empty or unparseable URL is unknown.
func Classify(rawURL, sampleHTML string) domain.Platform {
	return defaultRules.Classify(rawURL, sampleHTML)
}

func (r *Rules) Classify(rawURL, sampleHTML string) domain.Platform {
	if p, ok := r.PlatformFromURL(rawURL); ok || p == domain.PlatformUnknown {
		return p
	}
	if strings.TrimSpace(sampleHTML) != "" && HasJobPostingJSONLD(sampleHTML) {
		return domain.PlatformJSONLD
	}
	return domain.PlatformGenericHTML
}

// PlatformFromURL matches rawURL against the signature table. ok is false when
// no signature matched; the returned platform is then generic_html, or unknown
// for an unusable URL.
func (r *Rules) PlatformFromURL(rawURL string) (domain.Platform, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return domain.PlatformUnknown, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return domain.PlatformUnknown, false
	}

	s := strings.ToLower(u.Host + u.EscapedPath())
	if u.RawQuery != "" {
		s += "?" + strings.ToLower(u.RawQuery)
	}
	for _, pr := range r.platforms {
		if matchAny(pr.res, s) {
			return pr.platform, true
		}
	}
	return domain.PlatformGenericHTML, false
}

// HasJobPostingJSONLD reports whether the page embeds at least one JobPosting.
func HasJobPostingJSONLD(page string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return false
	}
	return len(jsonLDJobPostings(doc)) > 0
}

// jsonLDJobPostings collects JobPosting objects from every ld+json block,
// looking through top-level arrays and @graph containers.
func jsonLDJobPostings(doc *goquery.Document) []map[string]any {
	var out []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return
		}
		out = collectJobPostings(v, out, 0)
	})
	return out
}

func collectJobPostings(v any, out []map[string]any, depth int) []map[string]any {
	if depth > 4 {
		return out
	}
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			out = collectJobPostings(it, out, depth+1)
		}
	case map[string]any:
		if isJobPostingType(t["@type"]) {
			out = append(out, t)
			return out
		}
		if g, ok := t["@graph"]; ok {
			out = collectJobPostings(g, out, depth+1)
		}
		if items, ok := t["itemListElement"]; ok {
			out = collectJobPostings(items, out, depth+1)
		}
		if item, ok := t["item"]; ok {
			out = collectJobPostings(item, out, depth+1)
		}
	}
	return out
}

func isJobPostingType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(strings.TrimPrefix(t, "schema:"), "JobPosting")
	case []any:
		for _, it := range t {
			if isJobPostingType(it) {
				return true
			}
		}
	}
	return false
}
