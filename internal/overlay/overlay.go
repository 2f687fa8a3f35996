// Package overlay queries search portals that live inside anonymity overlay
// networks (Tor hidden services, I2P eepsites) through a local proxy and turns
// their HTML result pages into deep-web results.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/metasearch/internal/extract"
	"github.com/hyperifyio/metasearch/internal/fetch"
	"github.com/hyperifyio/metasearch/internal/search"
)

// DefaultTimeout bounds one overlay fetch. Circuits through Tor or I2P are
// slow to build, so this is well above the surface default.
const DefaultTimeout = 30 * time.Second

// Network identifies the overlay a portal lives in.
type Network string

const (
	NetworkTor Network = "tor"
	NetworkI2P Network = "i2p"
)

// ParseNetwork accepts tor and i2p, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkTor:
		return NetworkTor, nil
	case NetworkI2P:
		return NetworkI2P, nil
	}
	return "", fmt.Errorf("unknown overlay network %q", s)
}

// Provider implements search.Provider for one overlay portal. Client must be
// built around a proxy-backed http.Client; the provider never dials directly.
type Provider struct {
	Network    Network
	Endpoint   string
	QueryParam string // defaults to q
	Label      string
	Extractor  extract.Extractor
	Client     *fetch.Client
}

var _ search.Provider = (*Provider)(nil)

func (p *Provider) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return string(p.Network)
}

// Search fetches the portal's result page for query and extracts at most
// limit hits. Results carry Kind deepweb and a neutral score of zero.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if p.Client == nil {
		return nil, errors.New("overlay provider has no client")
	}
	if p.Extractor == nil {
		return nil, errors.New("overlay provider has no extractor")
	}
	u, err := p.searchURL(query)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml")
	body, ct, err := p.Client.Get(ctx, u.String(), h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	hits, err := p.Extractor.Extract(body, ct, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	out := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		out = append(out, search.Result{
			Title:   search.CleanText(hit.Title),
			Link:    hit.Link,
			Snippet: search.CleanText(hit.Snippet),
			Source:  p.Name(),
			Kind:    search.KindDeepWeb,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (p *Provider) searchURL(query string) (*url.URL, error) {
	if strings.TrimSpace(p.Endpoint) == "" {
		return nil, errors.New("overlay provider has no endpoint")
	}
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	param := p.QueryParam
	if param == "" {
		param = "q"
	}
	q := u.Query()
	q.Set(param, query)
	u.RawQuery = q.Encode()
	return u, nil
}
