package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyperifyio/metasearch/internal/fetch"
)

// SearxNG implements Provider against a SearxNG instance's /search endpoint.
type SearxNG struct {
	BaseURL string
	APIKey  string // optional
	Label   string
	Client  *fetch.Client
}

func (s *SearxNG) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "searxng"
}

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("missing searxng base url")
	}
	if limit <= 0 {
		limit = 10
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	// Ensure path
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", "auto")
	q.Set("safesearch", "1")
	q.Set("categories", "general")
	q.Set("count", fmt.Sprintf("%d", limit))
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()

	h := http.Header{}
	h.Set("Accept", "application/json")
	body, _, err := clientOrDefault(s.Client).Get(ctx, u.String(), h)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	results, err := NormalizeSearxNG(body, s.Name())
	if err != nil {
		return nil, err
	}
	return keepLinked(results, limit), nil
}

// keepLinked drops results without a link and truncates to limit. A missing
// title is kept as "".
func keepLinked(rs []Result, limit int) []Result {
	out := rs[:0]
	for _, r := range rs {
		if r.Link == "" {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func clientOrDefault(c *fetch.Client) *fetch.Client {
	if c != nil {
		return c
	}
	return &fetch.Client{PerRequestTimeout: defaultSurfaceTimeout}
}
