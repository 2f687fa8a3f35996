package engine

import (
	"github.com/hyperifyio/metasearch/internal/registry"
)

// ProviderInfo describes one registry entry as the engine sees it.
type ProviderInfo struct {
	ID      string        `json:"id"`
	Label   string        `json:"label"`
	Kind    registry.Kind `json:"kind"`
	Network string        `json:"network,omitempty"`
	Enabled bool          `json:"enabled"`
	Reason  string        `json:"reason,omitempty"`
	Breaker string        `json:"breaker,omitempty"`
}

// Capabilities summarises what the engine can currently search.
type Capabilities struct {
	Providers      []ProviderInfo `json:"providers"`
	SurfaceEnabled bool           `json:"surface_enabled"`
	DeepWebEnabled bool           `json:"deepweb_enabled"`
	MaxSurface     int            `json:"max_surface_results"`
	MaxDeepWeb     int            `json:"max_deepweb_results"`
	CachedQueries  int            `json:"cached_queries"`
}

// Capabilities lists every registry entry in registration order.
func (e *Engine) Capabilities() Capabilities {
	e.mu.RLock()
	defer e.mu.RUnlock()

	built := make(map[string]*source, len(e.sources))
	for _, s := range e.sources {
		built[s.cfg.ID] = s
	}
	c := Capabilities{
		MaxSurface:    e.opts.MaxSurface,
		MaxDeepWeb:    e.opts.MaxDeepWeb,
		CachedQueries: e.cache.Len(),
	}
	for _, cfg := range e.reg.All() {
		info := ProviderInfo{
			ID:      cfg.ID,
			Label:   cfg.DisplayName(),
			Kind:    cfg.Kind,
			Network: cfg.Network,
		}
		if s, ok := built[cfg.ID]; ok {
			info.Enabled = true
			info.Breaker = s.breaker.State().String()
			switch cfg.Kind {
			case registry.KindSurface:
				c.SurfaceEnabled = true
			case registry.KindOverlay:
				c.DeepWebEnabled = true
			}
		} else if reason, ok := e.disabled[cfg.ID]; ok {
			info.Reason = reason
		} else if ok, reason := cfg.Available(); !ok {
			info.Reason = reason
		} else {
			info.Reason = "not initialized"
		}
		c.Providers = append(c.Providers, info)
	}
	return c
}
