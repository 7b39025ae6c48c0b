package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	noiseFilter = "script, style, noscript, template, svg"
)

// blockTags get a separating space so adjacent blocks do not glue words together.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"td": true, "th": true, "tr": true, "table": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "footer": true, "dd": true, "dt": true,
}

// Clean turns raw markup into one line of comparable plain text: tags and
// script/style bodies removed, entities decoded, whitespace collapsed. It never
// fails; angle brackets that survive decoding are dropped so the output cannot
// be mistaken for markup.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.ContainsAny(raw, "<&") {
		text = markupText(raw)
	}

	text = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>':
			return ' '
		case '\u00a0':
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

func markupText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return html.UnescapeString(tagRe.ReplaceAllString(raw, " "))
	}
	doc.Find(noiseFilter).Remove()

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if blockTags[n.Data] {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteByte(' ')
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}

// ResolveURL resolves href against base and returns an absolute http(s) URL
// without fragment, or "" for links that cannot be fetched.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, p := range []string{"mailto:", "javascript:", "tel:", "data:", "fax:"} {
		if strings.HasPrefix(lower, p) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// NormalizeURL trims, drops the fragment, and returns "" for relative or non-http URLs.
func NormalizeURL(raw string) string {
	return ResolveURL(nil, raw)
}

func pickNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
