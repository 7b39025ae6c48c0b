package scraper

import (
	"context"
	"net/http"
	"time"
)

// HTTPFetcher fetches JSON feeds. Transport errors and 5xx are retried with a
// linear backoff; 4xx is returned at once since the endpoint guess was wrong.
type HTTPFetcher struct {
	opts   FetchOptions
	client *http.Client
}

func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{opts: opts, client: &http.Client{Timeout: opts.Timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	for i := 0; i < f.opts.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := f.opts.Limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}

		page, retry, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(300*(i+1)) * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	for k, v := range browserHeaders(f.opts.UserAgent) {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.8, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode >= 500, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	b, err := readAllLimit(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, false, err
	}
	return &Page{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        b,
	}, false, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
