package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/job"

	"github.com/PuerkitoBio/goquery"
)

const headingSelector = "h1, h2, h3, h4, h5, [itemprop=title], .job-title, .title"

// extractXing reads the JobPosting blocks XING pages embed and scans posting
// links otherwise.
func extractXing(ctx context.Context, e *Extractor, src *source) ([]job.Record, domain.Platform, error) {
	recs, used, err := extractJSONLD(ctx, e, src)
	if used == domain.PlatformJSONLD {
		used = domain.PlatformXing
	}
	return recs, used, err
}

// jsonLDRecord maps one JobPosting. A posting without its own url shares the
// page link and is told apart by its identifier; with neither it is dropped.
func jsonLDRecord(p map[string]any, pageURL string) (job.Record, bool) {
	base, _ := url.Parse(pageURL)
	rec := job.Record{
		Title:    pickNonEmpty(scalarText(p["title"]), scalarText(p["name"])),
		Link:     ResolveURL(base, pickNonEmpty(scalarText(p["url"]), scalarText(p["sameAs"]))),
		Company:  orgName(p["hiringOrganization"]),
		Location: locationText(p["jobLocation"], 0),
	}
	if rec.Link != "" {
		return rec, true
	}
	id := jsonLDIdentifier(p["identifier"])
	if id == "" {
		return job.Record{}, false
	}
	rec.Link = NormalizeURL(pageURL)
	rec.GUID = rec.Link + "#" + url.PathEscape(id)
	return rec, true
}

// jsonLDIdentifier reads a schema.org identifier, which is either plain text
// or a PropertyValue.
func jsonLDIdentifier(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return pickNonEmpty(scalarText(t["value"]), scalarText(t["@value"]), scalarText(t["name"]))
	case []any:
		for _, it := range t {
			if s := jsonLDIdentifier(it); s != "" {
				return s
			}
		}
		return ""
	}
	return strings.TrimSpace(scalarText(v))
}

func orgName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return scalarText(t["name"])
	case []any:
		for _, it := range t {
			if s := orgName(it); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	}
	return ""
}

// genericRecords collects the job card selectors first, then every other
// anchor on the page. Either way only links that look like postings count.
func (r *Rules) genericRecords(doc *goquery.Document, pageURL string) []job.Record {
	base := documentBase(doc, pageURL)
	locSel := strings.Join(r.locSelectors, ", ")

	var out []job.Record
	seen := map[string]struct{}{}
	add := func(a, container *goquery.Selection) {
		link := ResolveURL(base, a.AttrOr("href", ""))
		if link == "" || !r.LooksLikeJobPostingURL(link) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		rec := job.Record{Title: r.anchorTitle(a, container), Link: link}
		if locSel != "" && container != nil {
			rec.Location = Clean(container.Find(locSel).First().Text())
		}
		out = append(out, rec)
	}

	if len(r.cardSelectors) > 0 {
		doc.Find(strings.Join(r.cardSelectors, ", ")).Each(func(_ int, card *goquery.Selection) {
			a := card
			if !card.Is("a[href]") {
				a = card.Find("a[href]").First()
			}
			if a.Length() == 0 {
				return
			}
			add(a, card)
		})
	}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		container := a.Closest("li, article, tr")
		if container.Length() == 0 {
			container = a.Parent()
		}
		add(a, container)
	})
	return out
}

// anchorTitle prefers a heading inside the link, then the link text unless it
// is a generic label like "mehr erfahren", then the nearest heading.
func (r *Rules) anchorTitle(a, container *goquery.Selection) string {
	if h := a.Find(headingSelector).First(); h.Length() > 0 {
		if t := Clean(h.Text()); t != "" {
			return t
		}
	}
	text := Clean(a.Text())
	if text != "" && !r.isGenericLabel(text) {
		return text
	}
	if container != nil {
		if t := Clean(container.Find(headingSelector).First().Text()); t != "" {
			return t
		}
	}
	return Clean(a.AttrOr("title", ""))
}

func (r *Rules) isGenericLabel(text string) bool {
	_, ok := r.genericLabels[strings.ToLower(strings.Trim(text, " .:»›>→"))]
	return ok
}

func documentBase(doc *goquery.Document, pageURL string) *url.URL {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b := ResolveURL(base, href); b != "" {
			if bu, err := url.Parse(b); err == nil {
				return bu
			}
		}
	}
	return base
}
