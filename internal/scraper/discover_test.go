package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/hospital"
)

func newTestFetcher() *CollyFetcher {
	return NewCollyFetcher(FetchOptions{UserAgent: "hospital-jobs-test", Timeout: 5 * time.Second})
}

func serveHTML(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func TestDiscover_FollowsListingLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveHTML(`<html><body>
			<a href="/kontakt">Kontakt</a>
			<a href="/stellenangebote">Offene Stellen</a>
		</body></html>`)(w, r)
	})
	mux.HandleFunc("/stellenangebote", serveHTML(`<html><body>
		<ul><li><a href="/stellenangebote/detail/42">Pflegefachkraft (m/w/d)</a></li></ul>
	</body></html>`))
	server := httptest.NewServer(mux)
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res := d.Discover(ctx, server.URL)
	if res.Outcome != hospital.DiscoveryFound {
		t.Fatalf("expected found, got %s (%s)", res.Outcome, res.Detail)
	}
	if want := server.URL + "/stellenangebote"; res.CareerURL != want {
		t.Fatalf("expected career url %s, got %s", want, res.CareerURL)
	}
	if res.Platform != domain.PlatformGenericHTML {
		t.Fatalf("expected generic_html, got %s", res.Platform)
	}
}

func TestDiscover_FallsBackToLandingWithJobLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveHTML(`<html><body>
			<a href="/karriere">Karriere</a>
			<a href="/stellen/assistenzarzt-kardiologie">Assistenzarzt Kardiologie</a>
		</body></html>`)(w, r)
	})
	mux.HandleFunc("/karriere", serveHTML(`<html><body><p>Arbeiten bei uns</p></body></html>`))
	server := httptest.NewServer(mux)
	defer server.Close()

	res := NewDiscoverer(newTestFetcher(), nil, nil).Discover(context.Background(), server.URL)
	if res.Outcome != hospital.DiscoveryFound {
		t.Fatalf("expected found, got %s (%s)", res.Outcome, res.Detail)
	}
	if trimSlash(res.CareerURL) != server.URL {
		t.Fatalf("expected landing page as career url, got %s", res.CareerURL)
	}
	if res.JobLinksOnLanding != 1 {
		t.Fatalf("expected 1 job link on landing, got %d", res.JobLinksOnLanding)
	}
}

func TestDiscover_NotFound(t *testing.T) {
	server := httptest.NewServer(serveHTML(`<html><body><a href="/impressum">Impressum</a></body></html>`))
	defer server.Close()

	res := NewDiscoverer(newTestFetcher(), nil, nil).Discover(context.Background(), server.URL)
	if res.Outcome != hospital.DiscoveryNotFound {
		t.Fatalf("expected not_found, got %s", res.Outcome)
	}
	if res.CareerURL != "" {
		t.Fatalf("expected no career url, got %s", res.CareerURL)
	}
}

func TestDiscover_LandingFailureIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	res := NewDiscoverer(newTestFetcher(), nil, nil).Discover(context.Background(), server.URL)
	if res.Outcome != hospital.DiscoveryError {
		t.Fatalf("expected error outcome, got %s", res.Outcome)
	}
	if res.Detail == "" {
		t.Fatalf("expected error detail")
	}
}

func TestListingScore(t *testing.T) {
	r := DefaultRules()
	strong := r.listingScore(anchor{url: "https://k.example/stellenangebote", text: "Offene Stellen"})
	weak := r.listingScore(anchor{url: "https://k.example/karriere", text: "Karriere"})
	none := r.listingScore(anchor{url: "https://k.example/kontakt", text: "Kontakt"})

	if !(strong > weak && weak > none) {
		t.Fatalf("unexpected scores strong=%d weak=%d none=%d", strong, weak, none)
	}
	if none != 0 {
		t.Fatalf("expected zero score for unrelated link, got %d", none)
	}
}
