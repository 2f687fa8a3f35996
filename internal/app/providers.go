package app

import (
	"slices"

	"github.com/hyperifyio/metasearch/internal/overlay"
	"github.com/hyperifyio/metasearch/internal/registry"
)

// BuildRegistry turns cfg into the provider table and the overlay catalog the
// engine resolves overlay schemas against. Providers without credentials or
// proxies are still registered so capabilities can report why they are off.
func BuildRegistry(cfg Config) (*registry.Registry, overlay.Catalog, error) {
	catalog := overlay.Catalog{}
	for _, e := range cfg.CustomEngines {
		catalog[e.Name] = e
	}

	cfgs := []registry.ProviderConfig{
		{
			ID: "google", Label: "Google", Kind: registry.KindSurface, Schema: registry.SchemaSerpAPI,
			Endpoint: cfg.GoogleEndpoint, Credential: cfg.GoogleAPIKey, Timeout: cfg.SurfaceTimeout,
		},
		{
			ID: "bing", Label: "Bing", Kind: registry.KindSurface, Schema: registry.SchemaBing,
			Endpoint: cfg.BingEndpoint, Credential: cfg.BingAPIKey, Timeout: cfg.SurfaceTimeout,
		},
	}
	if !cfg.DisableDuckDuckGo {
		cfgs = append(cfgs, registry.ProviderConfig{
			ID: "duckduckgo", Label: "DuckDuckGo", Kind: registry.KindSurface, Schema: registry.SchemaDuckDuckGo,
			Endpoint: cfg.DDGEndpoint, Keyless: true, Timeout: cfg.SurfaceTimeout,
		})
	}
	cfgs = append(cfgs,
		registry.ProviderConfig{
			ID: "searxng", Label: "SearxNG", Kind: registry.KindSurface, Schema: registry.SchemaSearxNG,
			Endpoint: cfg.SearxURL, Credential: cfg.SearxKey, Keyless: true, Timeout: cfg.SurfaceTimeout,
		},
		registry.ProviderConfig{
			ID: "file", Label: "file", Kind: registry.KindSurface, Schema: registry.SchemaFile,
			Endpoint: cfg.FileSearchPath, Keyless: true,
		},
	)

	tor, i2p := cfg.TorEngines, cfg.I2PEngines
	for _, e := range cfg.CustomEngines {
		switch e.Network {
		case overlay.NetworkTor:
			if !slices.Contains(tor, e.Name) {
				tor = append(slices.Clone(tor), e.Name)
			}
		case overlay.NetworkI2P:
			if !slices.Contains(i2p, e.Name) {
				i2p = append(slices.Clone(i2p), e.Name)
			}
		}
	}
	cfgs = append(cfgs, overlayProviders(catalog, overlay.NetworkTor, tor, cfg.TorProxy, cfg.TorEndpoint, cfg)...)
	cfgs = append(cfgs, overlayProviders(catalog, overlay.NetworkI2P, i2p, cfg.I2PProxy, cfg.I2PEndpoint, cfg)...)

	reg, err := registry.New(cfgs...)
	if err != nil {
		return nil, nil, err
	}
	return reg, catalog, nil
}

func overlayProviders(catalog overlay.Catalog, network overlay.Network, engines []string, proxy, firstEndpoint string, cfg Config) []registry.ProviderConfig {
	out := make([]registry.ProviderConfig, 0, len(engines))
	for i, name := range engines {
		endpoint := ""
		if eng, ok := catalog.Lookup(name); ok {
			endpoint = eng.Endpoint
		}
		if i == 0 && firstEndpoint != "" {
			endpoint = firstEndpoint
		}
		out = append(out, registry.ProviderConfig{
			ID:       string(network) + ":" + name,
			Label:    name,
			Kind:     registry.KindOverlay,
			Schema:   registry.Schema(name),
			Network:  string(network),
			Endpoint: endpoint,
			Proxy:    proxy,
			Timeout:  cfg.OverlayTimeout,
		})
	}
	return out
}
