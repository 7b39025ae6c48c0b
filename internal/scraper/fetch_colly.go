package scraper

import (
	"context"
	"net/http"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches HTML pages with a fresh colly collector per call.
type CollyFetcher struct {
	opts      FetchOptions
	transport http.RoundTripper
}

func NewCollyFetcher(opts FetchOptions) *CollyFetcher {
	return &CollyFetcher{
		opts:      opts.withDefaults(),
		transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.opts.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
		colly.MaxBodySize(maxBodyBytes),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.opts.Timeout)
	c.WithTransport(ctxTransport{ctx: ctx, base: f.transport})

	c.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders(f.opts.UserAgent) {
			r.Headers.Set(k, v)
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			reqErr = &StatusError{URL: rawURL, Code: r.StatusCode}
			return
		}
		reqErr = err
	})

	if err := c.Visit(rawURL); err != nil && reqErr == nil {
		reqErr = err
	}
	c.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if reqErr != nil {
		return nil, reqErr
	}
	if page == nil {
		return nil, &StatusError{URL: rawURL, Code: 0}
	}
	return page, nil
}

var _ Fetcher = (*CollyFetcher)(nil)
