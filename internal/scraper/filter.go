package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"hospital-jobs/internal/domain/job"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LabelRelevant is the label a Labeler returns for postings worth keeping.
const LabelRelevant = "relevant"

// Labeler asks an external classifier for a one-word label.
type Labeler interface {
	Label(ctx context.Context, prompt string) (string, error)
}

// RoleFilter keeps postings whose title mentions a configured role keyword.
// Titles without a keyword go to the Labeler when one is set. With no keywords
// every posting is kept.
type RoleFilter struct {
	keywords []string
	labeler  Labeler
	log      *log.Logger
}

func NewRoleFilter(keywords []string, labeler Labeler, logger *log.Logger) *RoleFilter {
	if logger == nil {
		logger = log.Default()
	}
	f := &RoleFilter{labeler: labeler, log: logger}
	for _, k := range keywords {
		if k = foldText(k); k != "" {
			f.keywords = append(f.keywords, k)
		}
	}
	return f
}

func (f *RoleFilter) Keep(ctx context.Context, rec job.Record) bool {
	if f == nil || len(f.keywords) == 0 {
		return true
	}
	title := foldText(rec.Title)
	for _, k := range f.keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	if f.labeler == nil {
		return false
	}

	label, err := f.labeler.Label(ctx, rolePrompt(rec))
	if err != nil {
		f.log.Printf("filter=label title=%q status=error err=%v", rec.Title, err)
		return false
	}
	return strings.EqualFold(strings.TrimSpace(label), LabelRelevant)
}

func (f *RoleFilter) Apply(ctx context.Context, recs []job.Record) []job.Record {
	if f == nil || len(f.keywords) == 0 {
		return recs
	}
	out := recs[:0:0]
	for _, r := range recs {
		if f.Keep(ctx, r) {
			out = append(out, r)
		}
	}
	return out
}

func rolePrompt(rec job.Record) string {
	return fmt.Sprintf(
		"Is this hospital job posting a clinical or care role? Answer with exactly one word, %q or \"irrelevant\".\nTitle: %s\nEmployer: %s\nLocation: %s",
		LabelRelevant, rec.Title, rec.Company, rec.Location,
	)
}

// foldText lowercases s and strips diacritics so "Ärztin" matches "arztin".
func foldText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
