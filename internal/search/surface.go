package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hyperifyio/metasearch/internal/fetch"
)

const defaultSurfaceTimeout = 10 * time.Second

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	Endpoint string
	APIKey   string
	Label    string
	Client   *fetch.Client
}

func (s *SerpAPI) Name() string { return labelOr(s.Label, "Google") }

func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u, err := withQuery(s.Endpoint, map[string]string{
		"q":       query,
		"api_key": s.APIKey,
		"num":     strconv.Itoa(limit),
		"engine":  "google",
	})
	if err != nil {
		return nil, err
	}
	body, _, err := clientOrDefault(s.Client).Get(ctx, u, jsonAccept())
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	rs, err := NormalizeSerpAPI(body, s.Name())
	if err != nil {
		return nil, err
	}
	return Cap(rs, limit), nil
}

// Bing queries the Bing Web Search v7 API. The key travels in the
// Ocp-Apim-Subscription-Key header.
type Bing struct {
	Endpoint string
	APIKey   string
	Label    string
	Client   *fetch.Client
}

func (b *Bing) Name() string { return labelOr(b.Label, "Bing") }

func (b *Bing) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u, err := withQuery(b.Endpoint, map[string]string{
		"q":     query,
		"count": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}
	h := jsonAccept()
	h.Set("Ocp-Apim-Subscription-Key", b.APIKey)
	body, _, err := clientOrDefault(b.Client).Get(ctx, u, h)
	if err != nil {
		return nil, fmt.Errorf("bing: %w", err)
	}
	rs, err := NormalizeBing(body, b.Name())
	if err != nil {
		return nil, err
	}
	return Cap(rs, limit), nil
}

// DuckDuckGo queries the keyless instant answer API.
type DuckDuckGo struct {
	Endpoint string
	Label    string
	Client   *fetch.Client
}

func (d *DuckDuckGo) Name() string { return labelOr(d.Label, "DuckDuckGo") }

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	u, err := withQuery(d.Endpoint, map[string]string{
		"q":             query,
		"format":        "json",
		"no_html":       "1",
		"skip_disambig": "1",
	})
	if err != nil {
		return nil, err
	}
	body, _, err := clientOrDefault(d.Client).Get(ctx, u, jsonAccept())
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	rs, err := NormalizeDuckDuckGo(body, d.Name())
	if err != nil {
		return nil, err
	}
	return Cap(rs, limit), nil
}

func withQuery(endpoint string, params map[string]string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("missing endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func jsonAccept() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	return h
}

func labelOr(label, def string) string {
	if label != "" {
		return label
	}
	return def
}
