package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 5 << 20

// Page is a fetched document. URL is the final URL after redirects.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// statusCode returns the HTTP status carried by err, or 0 when the request
// never got a response.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
	Limiter   *HostLimiter
	// Attempts bounds retries on transport errors and 5xx; JSON fetches only.
	Attempts int
}

func (o FetchOptions) withDefaults() FetchOptions {
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = "Mozilla/5.0 (compatible; hospital-jobs/1.0)"
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 2
	}
	return o
}

// HostLimiter spaces requests per host so concurrent workers never burst one site.
type HostLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns nil (no limiting) when rps <= 0.
func NewHostLimiter(rps float64) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	return &HostLimiter{limit: rate.Limit(rps), limiters: map[string]*rate.Limiter{}}
}

func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	l.mu.Lock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, 1)
		l.limiters[host] = lim
	}
	l.mu.Unlock()

	return lim.Wait(ctx)
}

func browserHeaders(ua string) map[string]string {
	return map[string]string{
		"User-Agent":      ua,
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.6",
	}
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: max + 1}
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("response too large")
	}
	return b, nil
}

// ctxTransport binds every outgoing request to ctx so cancellation reaches
// clients that build requests without one.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
