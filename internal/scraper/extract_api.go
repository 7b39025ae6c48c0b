package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/domain/job"
)

var errNoFeedList = errors.New("feed has no job list")

// apiFeed describes one platform's structured job feed.
type apiFeed struct {
	platform domain.Platform
	endpoint func(career *url.URL) string
	link     func(career *url.URL, o apiOffer) string
}

var softgardenFeed = apiFeed{
	platform: domain.PlatformSoftgarden,
	endpoint: func(u *url.URL) string { return originOf(u) + "/api/job-offers" },
	link: func(u *url.URL, o apiOffer) string {
		if l := o.link(); l != "" {
			return l
		}
		if id := o.id(); id != "" {
			return originOf(u) + "/job/" + url.PathEscape(id)
		}
		return ""
	},
}

var personioFeed = apiFeed{
	platform: domain.PlatformPersonio,
	endpoint: func(u *url.URL) string { return originOf(u) + "/search.json" },
	link: func(u *url.URL, o apiOffer) string {
		if id := o.id(); id != "" {
			return originOf(u) + "/job/" + url.PathEscape(id)
		}
		return o.link()
	},
}

var rexxFeed = apiFeed{
	platform: domain.PlatformRexx,
	endpoint: func(u *url.URL) string { return originOf(u) + "/api/joboffers" },
	link: func(_ *url.URL, o apiOffer) string {
		return o.link()
	},
}

// SuccessFactors career sites are addressed by a company query parameter,
// which posting links have to carry as well.
var successFactorsFeed = apiFeed{
	platform: domain.PlatformSuccessFactors,
	endpoint: func(u *url.URL) string {
		q := url.Values{}
		q.Set("$format", "json")
		if c := u.Query().Get("company"); c != "" {
			q.Set("company", c)
		}
		return originOf(u) + "/odata/v2/JobRequisitionLocale?" + q.Encode()
	},
	link: func(u *url.URL, o apiOffer) string {
		if l := o.link(); l != "" {
			return l
		}
		id := o.id()
		if id == "" {
			return ""
		}
		q := url.Values{}
		if c := u.Query().Get("company"); c != "" {
			q.Set("company", c)
		}
		q.Set("career_job_req_id", id)
		return originOf(u) + "/career?" + q.Encode()
	},
}

// feedStrategy reads the platform feed and falls back to generic extraction
// of the career page itself on any non-2xx or undecodable response.
func feedStrategy(feed apiFeed) strategy {
	return func(ctx context.Context, e *Extractor, src *source) ([]job.Record, domain.Platform, error) {
		recs, err := e.fetchFeed(ctx, feed, src.careerURL)
		if err == nil {
			return recs, feed.platform, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, feed.platform, ctxErr
		}
		e.log.Printf("scrape=feed platform=%s url=%s status=fallback code=%d err=%v", feed.platform, src.careerURL, statusCode(err), err)
		return extractGeneric(ctx, e, src)
	}
}

func (e *Extractor) fetchFeed(ctx context.Context, feed apiFeed, careerURL string) ([]job.Record, error) {
	u, err := url.Parse(careerURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("career url %q: not absolute", careerURL)
	}

	page, err := e.api.Fetch(ctx, feed.endpoint(u))
	if err != nil {
		return nil, err
	}
	offers, err := decodeFeed(page.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", feed.platform, err)
	}

	origin := &url.URL{Scheme: u.Scheme, Host: u.Host}
	out := make([]job.Record, 0, len(offers))
	for _, o := range offers {
		out = append(out, job.Record{
			Title:    o.title(),
			Link:     ResolveURL(origin, feed.link(u, o)),
			Location: o.location(),
		})
	}
	return out, nil
}

type apiOffer struct {
	ID       flexString `json:"id"`
	JobID    flexString `json:"jobId"`
	JobDBID  flexString `json:"jobDbId"`
	JobReqID flexString `json:"jobReqId"`

	Title        string `json:"title"`
	Name         string `json:"name"`
	PostingName  string `json:"externalPostingName"`
	JobTitle     string `json:"jobTitle"`
	ExternalName string `json:"externalTitle"`

	URL      string `json:"url"`
	JobURL   string `json:"jobUrl"`
	ApplyURL string `json:"applyUrl"`
	Link     string `json:"link"`

	Location flexLocation `json:"location"`
	City     string       `json:"city"`
	Office   string       `json:"office"`
}

func (o apiOffer) id() string {
	return pickNonEmpty(string(o.ID), string(o.JobID), string(o.JobDBID), string(o.JobReqID))
}

func (o apiOffer) title() string {
	return pickNonEmpty(o.Title, o.PostingName, o.JobTitle, o.ExternalName, o.Name)
}

func (o apiOffer) link() string {
	return pickNonEmpty(o.JobURL, o.URL, o.Link, o.ApplyURL)
}

func (o apiOffer) location() string {
	return pickNonEmpty(string(o.Location), o.City, o.Office)
}

type feedEnvelope struct {
	Data      *[]apiOffer `json:"data"`
	Items     *[]apiOffer `json:"items"`
	Results   *[]apiOffer `json:"results"`
	JobOffers *[]apiOffer `json:"jobOffers"`
	Jobs      *[]apiOffer `json:"jobs"`
	Positions *[]apiOffer `json:"positions"`
	Content   *[]apiOffer `json:"content"`
	D         *struct {
		Results *[]apiOffer `json:"results"`
	} `json:"d"`
}

// decodeFeed accepts a bare array or one of the common envelopes, including
// the OData {"d":{"results":[...]}} shape.
func decodeFeed(body []byte) ([]apiOffer, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errNoFeedList
	}
	if body[0] == '[' {
		var list []apiOffer
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var env feedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.D != nil && env.D.Results != nil {
		return *env.D.Results, nil
	}
	for _, l := range []*[]apiOffer{env.JobOffers, env.Jobs, env.Data, env.Items, env.Results, env.Positions, env.Content} {
		if l != nil {
			return *l, nil
		}
	}
	return nil, errNoFeedList
}

// flexString accepts JSON strings and numbers; ids come as either.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case b[0] == '{' || b[0] == '[':
		*f = ""
	default:
		*f = flexString(string(b))
	}
	return nil
}

// flexLocation flattens a string, object or list location to one place name.
type flexLocation string

func (f *flexLocation) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexLocation(locationText(v, 0))
	return nil
}

var locationKeys = []string{"addressLocality", "city", "address", "addressRegion", "name", "office", "location"}

func locationText(v any, depth int) string {
	if depth > 3 {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, it := range t {
			if s := locationText(it, depth+1); s != "" {
				return s
			}
		}
	case map[string]any:
		for _, k := range locationKeys {
			if s := locationText(t[k], depth+1); s != "" {
				return s
			}
		}
	}
	return ""
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
