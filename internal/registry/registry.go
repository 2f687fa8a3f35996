// Package registry holds the static, immutable configuration of every search
// backend the engine may fan out to.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind separates keyed public search APIs from overlay-network portals.
type Kind string

const (
	KindSurface Kind = "surface"
	KindOverlay Kind = "overlay"
)

// Schema names the response shape (surface) or extraction rule (overlay)
// used to turn a raw payload into results.
type Schema string

const (
	SchemaSerpAPI    Schema = "serpapi"
	SchemaBing       Schema = "bing"
	SchemaDuckDuckGo Schema = "duckduckgo"
	SchemaSearxNG    Schema = "searxng"
	SchemaFile       Schema = "file"
)

var (
	ErrDuplicateID = errors.New("duplicate provider id")
	ErrEmptyID     = errors.New("empty provider id")
)

// ProviderConfig describes one backend. Values are copied in and out of the
// registry so callers never share mutable state with it.
type ProviderConfig struct {
	ID    string
	Label string // shown as Result.Source
	Kind  Kind

	// Schema selects the normalizer for surface providers and the
	// extraction rule for overlay providers.
	Schema  Schema
	Network string // overlay only: tor, i2p, ...

	Endpoint   string
	Credential string
	Proxy      string // overlay only: socks5://host:port or http://host:port

	// Keyless surface providers are usable without a credential.
	Keyless bool
	// Timeout bounds a single fetch. Zero means the engine default for Kind.
	Timeout time.Duration
}

// Available reports whether the provider can take part in a fan-out. A
// provider that is not available is skipped silently; reason says why.
func (p ProviderConfig) Available() (bool, string) {
	if strings.TrimSpace(p.Endpoint) == "" {
		return false, "no endpoint"
	}
	switch p.Kind {
	case KindSurface:
		if strings.TrimSpace(p.Credential) == "" && !p.Keyless {
			return false, "no credential"
		}
	case KindOverlay:
		if strings.TrimSpace(p.Proxy) == "" {
			return false, "no proxy"
		}
	default:
		return false, fmt.Sprintf("unknown kind %q", p.Kind)
	}
	return true, ""
}

// DisplayName returns Label, falling back to ID.
func (p ProviderConfig) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.ID
}

// Registry is a fixed table of providers built once at startup.
type Registry struct {
	order []string
	byID  map[string]ProviderConfig
}

// New builds a registry. Registration order is preserved and later used as the
// deterministic merge order.
func New(cfgs ...ProviderConfig) (*Registry, error) {
	r := &Registry{byID: make(map[string]ProviderConfig, len(cfgs))}
	for _, c := range cfgs {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, ErrEmptyID
		}
		if _, ok := r.byID[c.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}
	return r, nil
}

// Lookup returns the provider registered under id.
func (r *Registry) Lookup(id string) (ProviderConfig, bool) {
	if r == nil {
		return ProviderConfig{}, false
	}
	c, ok := r.byID[id]
	return c, ok
}

// ByKind returns every provider of the given kind in registration order,
// available or not.
func (r *Registry) ByKind(k Kind) []ProviderConfig {
	if r == nil {
		return nil
	}
	out := make([]ProviderConfig, 0, len(r.order))
	for _, id := range r.order {
		if c := r.byID[id]; c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// All returns every provider in registration order.
func (r *Registry) All() []ProviderConfig {
	if r == nil {
		return nil
	}
	out := make([]ProviderConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
