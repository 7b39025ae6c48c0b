package scraper

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"hospital-jobs/internal/domain"

	"gopkg.in/yaml.v3"
)

// PlatformSignature lists URL patterns that identify one recruiting backend.
type PlatformSignature struct {
	Platform domain.Platform `yaml:"platform"`
	Patterns []string        `yaml:"patterns"`
}

// PatternTables holds every heuristic list used for classification, link
// validation, discovery scoring and generic extraction. Regexes are matched
// case-insensitively; phrases are lowercase substrings.
type PatternTables struct {
	PlatformSignatures []PlatformSignature `yaml:"platform_signatures"`

	// A URL is a posting link when it matches a JobLinkPatterns entry and its
	// query-less form matches no JobLinkBlacklist entry.
	JobLinkPatterns  []string `yaml:"job_link_patterns"`
	JobLinkBlacklist []string `yaml:"job_link_blacklist"`

	ListingAnchorPhrases []string `yaml:"listing_anchor_phrases"`
	ListingPathPatterns  []string `yaml:"listing_path_patterns"`
	CareerHintPhrases    []string `yaml:"career_hint_phrases"`
	CareerPathPatterns   []string `yaml:"career_path_patterns"`

	JobCardSelectors  []string `yaml:"job_card_selectors"`
	LocationSelectors []string `yaml:"location_selectors"`
	GenericLinkLabels []string `yaml:"generic_link_labels"`
}

func DefaultPatterns() PatternTables {
	return PatternTables{
		PlatformSignatures: []PlatformSignature{
			{Platform: domain.PlatformSoftgarden, Patterns: []string{`(^|[/.])softgarden\.(io|de)([/:?]|$)`}},
			{Platform: domain.PlatformPersonio, Patterns: []string{`(^|[/.])personio\.(de|com)([/:?]|$)`}},
			{Platform: domain.PlatformRexx, Patterns: []string{`rexx-systems\.com`, `rexx-recruitment\.`, `(^|[/.])rexx\.[a-z]+/`}},
			{Platform: domain.PlatformSuccessFactors, Patterns: []string{`successfactors\.(com|eu)`, `(^|[/.])sapsf\.(com|eu)`}},
			{Platform: domain.PlatformXing, Patterns: []string{`(^|[/.])xing\.com/jobs`}},
		},
		JobLinkPatterns: []string{
			`/(anzeige|detail|details|view|stelle|job|jobs|position|vacancy|jobposting)/\d+`,
			`/(stelle|stellen|stellenangebot|stellenangebote|stellenanzeige|stellenanzeigen|stellenausschreibung|stellenausschreibungen|job|jobs|jobangebot|jobangebote|position|positionen|vacancy|vacancies|jobposting)/[^/?#]{3,}`,
			`softgarden\.(io|de)/.*job/\d+`,
			`personio\.(de|com)/job/\d+`,
			`successfactors\.(com|eu)/.*(jobreq|career_job_req_id=\d+)`,
			`xing\.com/jobs/[a-z0-9-]+-\d+`,
			`[?&](jobid|job_id|stellenid|stelle_id|vacancyid|positionid|career_job_req_id|jobreqid)=\w+`,
			`/[a-z0-9-]*-(m-w-d|w-m-d|m-f-d|mwd|wmd)[a-z0-9-]*(\.html?)?/?$`,
		},
		JobLinkBlacklist: []string{
			`/(karriere|career|careers|jobs?|stellen|stellenangebote|stellenanzeigen|stellenmarkt|stellenboerse|jobboerse|jobbörse|stellenbörse|offene-stellen|vacancies)/?$`,
			`/(karriere|career|careers|jobs?|stellen|stellenangebote|stellenanzeigen|offene-stellen)/(index|search|suche|list|liste|uebersicht|übersicht|alle|all|overview|filter)(\.[a-z]+)?/?$`,
			`/(page|seite)/\d+/?$`,
			`\.(pdf|jpe?g|png|gif|svg|webp|ico|docx?|xlsx?|zip|css|js|ics|xml|rss)$`,
			`/(impressum|datenschutz|imprint|privacy|kontakt|contact|login|anmelden|newsletter)(\.[a-z]+)?/?$`,
		},
		ListingAnchorPhrases: []string{
			"stellenangebote", "offene stellen", "stellenanzeigen", "stellenbörse", "stellenboerse",
			"jobbörse", "jobboerse", "stellenmarkt", "jobangebote", "job-angebote", "stellenausschreibungen",
			"aktuelle stellen", "jobs", "vacancies", "open positions",
		},
		ListingPathPatterns: []string{
			`/(stellenangebote|stellenanzeigen|offene-stellen|offenestellen|stellenboerse|jobboerse|stellenmarkt|jobangebote|stellenausschreibungen|jobs|stellen|vacancies|job-offers)(/|\.[a-z]+|$)`,
		},
		CareerHintPhrases: []string{"karriere", "career", "arbeiten bei", "arbeiten im", "ausbildung & beruf", "jobs & karriere"},
		CareerPathPatterns: []string{
			`/(karriere|career|careers|arbeiten-bei[a-z-]*|beruf-karriere)(/|\.[a-z]+|$)`,
		},
		JobCardSelectors: []string{
			".job-item", ".job-list-item", ".joblist-item", ".job-listing", ".job-entry", ".job-teaser",
			".stellenangebot", ".stellenanzeige", ".jobangebot", ".vacancy", ".position",
			"li.job", "article.job", "div.job", "tr.job", ".matching-item", ".jobposting",
		},
		LocationSelectors: []string{
			".location", ".job-location", ".ort", ".standort", "[itemprop=jobLocation]", "[itemprop=addressLocality]",
		},
		GenericLinkLabels: []string{
			"mehr erfahren", "mehr", "details", "zur stelle", "zum stellenangebot", "jetzt bewerben", "bewerben",
			"weiterlesen", "weiter", "ansehen", "read more", "more", "apply", "apply now", "view",
		},
	}
}

// Merge appends the entries of other to t, one table at a time.
func (t PatternTables) Merge(other PatternTables) PatternTables {
	out := t
	out.PlatformSignatures = append(append([]PlatformSignature{}, t.PlatformSignatures...), other.PlatformSignatures...)
	out.JobLinkPatterns = appendCopy(t.JobLinkPatterns, other.JobLinkPatterns)
	out.JobLinkBlacklist = appendCopy(t.JobLinkBlacklist, other.JobLinkBlacklist)
	out.ListingAnchorPhrases = appendCopy(t.ListingAnchorPhrases, other.ListingAnchorPhrases)
	out.ListingPathPatterns = appendCopy(t.ListingPathPatterns, other.ListingPathPatterns)
	out.CareerHintPhrases = appendCopy(t.CareerHintPhrases, other.CareerHintPhrases)
	out.CareerPathPatterns = appendCopy(t.CareerPathPatterns, other.CareerPathPatterns)
	out.JobCardSelectors = appendCopy(t.JobCardSelectors, other.JobCardSelectors)
	out.LocationSelectors = appendCopy(t.LocationSelectors, other.LocationSelectors)
	out.GenericLinkLabels = appendCopy(t.GenericLinkLabels, other.GenericLinkLabels)
	return out
}

func appendCopy(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// LoadPatterns reads a yaml file of extra table entries and merges them over
// the defaults. An empty path yields the defaults.
func LoadPatterns(path string) (PatternTables, error) {
	base := DefaultPatterns()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return PatternTables{}, fmt.Errorf("read patterns file: %w", err)
	}
	var extra PatternTables
	if err := yaml.Unmarshal(b, &extra); err != nil {
		return PatternTables{}, fmt.Errorf("parse patterns file %s: %w", path, err)
	}
	for _, sig := range extra.PlatformSignatures {
		if !sig.Platform.Valid() || sig.Platform == domain.PlatformUnknown {
			return PatternTables{}, fmt.Errorf("patterns file %s: unknown platform %q", path, sig.Platform)
		}
	}
	return base.Merge(extra), nil
}

type platformRule struct {
	platform domain.Platform
	res      []*regexp.Regexp
}

// Rules is the compiled, read-only form of PatternTables. Safe for concurrent use.
type Rules struct {
	platforms    []platformRule
	jobLinks     []*regexp.Regexp
	blacklist    []*regexp.Regexp
	listingPaths []*regexp.Regexp
	careerPaths  []*regexp.Regexp

	listingPhrases []string
	careerPhrases  []string
	cardSelectors  []string
	locSelectors   []string
	genericLabels  map[string]struct{}
}

func (t PatternTables) Compile() (*Rules, error) {
	r := &Rules{genericLabels: map[string]struct{}{}}
	var err error

	for _, sig := range t.PlatformSignatures {
		res, err := compileAll(sig.Patterns)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", sig.Platform, err)
		}
		r.platforms = append(r.platforms, platformRule{platform: sig.Platform, res: res})
	}
	if r.jobLinks, err = compileAll(t.JobLinkPatterns); err != nil {
		return nil, fmt.Errorf("job link patterns: %w", err)
	}
	if r.blacklist, err = compileAll(t.JobLinkBlacklist); err != nil {
		return nil, fmt.Errorf("job link blacklist: %w", err)
	}
	if r.listingPaths, err = compileAll(t.ListingPathPatterns); err != nil {
		return nil, fmt.Errorf("listing path patterns: %w", err)
	}
	if r.careerPaths, err = compileAll(t.CareerPathPatterns); err != nil {
		return nil, fmt.Errorf("career path patterns: %w", err)
	}

	r.listingPhrases = lowerAll(t.ListingAnchorPhrases)
	r.careerPhrases = lowerAll(t.CareerHintPhrases)
	r.cardSelectors = append([]string{}, t.JobCardSelectors...)
	r.locSelectors = append([]string{}, t.LocationSelectors...)
	for _, l := range lowerAll(t.GenericLinkLabels) {
		r.genericLabels[l] = struct{}{}
	}
	return r, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

var defaultRules = mustCompile(DefaultPatterns())

func mustCompile(t PatternTables) *Rules {
	r, err := t.Compile()
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules returns the compiled built-in tables.
func DefaultRules() *Rules {
	return defaultRules
}
