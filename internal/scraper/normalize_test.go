package scraper

import (
	"net/url"
	"strings"
	"testing"
)

func TestClean_StripsMarkupAndEntities(t *testing.T) {
	cases := []struct{ in, want string }{
		{"<p>Pflege&amp;Betreuung</p>", "Pflege&Betreuung"},
		{"  Assistenzarzt&nbsp;(m/w/d)\n\t", "Assistenzarzt (m/w/d)"},
		{"Pflege\u00a0\u00a0Station", "Pflege Station"},
		{"<div>Ober<b>arzt</b></div><div>Kardiologie</div>", "Oberarzt Kardiologie"},
		{"<script>var x = 1;</script>Stelle", "Stelle"},
		{"O&#039;Neill &quot;Team&quot;", "O'Neill \"Team\""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClean_IsTotal(t *testing.T) {
	inputs := []string{
		"<div>unterminated",
		"a &lt;b&gt; c",
		"&unknown; entity",
		"<<<>>>",
		"\xff\xfe<b",
		"</p></p></p>text",
		"<a href='x'",
	}
	for _, in := range inputs {
		out := Clean(in)
		if strings.ContainsAny(out, "<>") {
			t.Fatalf("Clean(%q) = %q still contains angle brackets", in, out)
		}
		if out != strings.TrimSpace(out) {
			t.Fatalf("Clean(%q) = %q is not trimmed", in, out)
		}
	}

	if got := Clean("<div>unterminated"); got != "unterminated" {
		t.Fatalf("expected best-effort text, got %q", got)
	}
	if got := Clean("a &lt;b&gt; c"); got != "a b c" {
		t.Fatalf("expected decoded brackets to be dropped, got %q", got)
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://klinikum.example/karriere/index.html")

	cases := []struct{ href, want string }{
		{"/stellenangebote", "https://klinikum.example/stellenangebote"},
		{"detail/42#bewerben", "https://klinikum.example/karriere/detail/42"},
		{"https://other.example/jobs/1", "https://other.example/jobs/1"},
		{"mailto:hr@klinikum.example", ""},
		{"javascript:void(0)", ""},
		{"#top", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ResolveURL(base, tc.href); got != tc.want {
			t.Fatalf("ResolveURL(%q) = %q, want %q", tc.href, got, tc.want)
		}
	}

	if got := NormalizeURL("/relative/only"); got != "" {
		t.Fatalf("expected relative url to normalize to empty, got %q", got)
	}
}
