package engine

import (
	"fmt"

	"github.com/hyperifyio/metasearch/internal/extract"
	"github.com/hyperifyio/metasearch/internal/fetch"
	"github.com/hyperifyio/metasearch/internal/overlay"
	"github.com/hyperifyio/metasearch/internal/registry"
	"github.com/hyperifyio/metasearch/internal/search"
)

// Factory builds the provider for one registry entry. client is already
// bound to the entry's proxy, timeout and rate limit.
type Factory func(cfg registry.ProviderConfig, client *fetch.Client) (search.Provider, error)

// NewFactory returns the default factory. Surface entries dispatch on Schema;
// overlay entries resolve Schema as an engine name in catalog.
func NewFactory(catalog overlay.Catalog) Factory {
	return func(cfg registry.ProviderConfig, client *fetch.Client) (search.Provider, error) {
		switch cfg.Kind {
		case registry.KindSurface:
			return surfaceProvider(cfg, client)
		case registry.KindOverlay:
			eng, ok := catalog.Lookup(string(cfg.Schema))
			if !ok {
				return nil, fmt.Errorf("unknown overlay engine %q", cfg.Schema)
			}
			network := eng.Network
			if cfg.Network != "" {
				n, err := overlay.ParseNetwork(cfg.Network)
				if err != nil {
					return nil, err
				}
				network = n
			}
			endpoint := cfg.Endpoint
			if endpoint == "" {
				endpoint = eng.Endpoint
			}
			return &overlay.Provider{
				Network:    network,
				Endpoint:   endpoint,
				QueryParam: eng.QueryParam,
				Label:      cfg.DisplayName(),
				Extractor:  extract.RuleExtractor{Rule: eng.Rule},
				Client:     client,
			}, nil
		}
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

func surfaceProvider(cfg registry.ProviderConfig, client *fetch.Client) (search.Provider, error) {
	label := cfg.DisplayName()
	switch cfg.Schema {
	case registry.SchemaSerpAPI:
		return &search.SerpAPI{Endpoint: cfg.Endpoint, APIKey: cfg.Credential, Label: label, Client: client}, nil
	case registry.SchemaBing:
		return &search.Bing{Endpoint: cfg.Endpoint, APIKey: cfg.Credential, Label: label, Client: client}, nil
	case registry.SchemaDuckDuckGo:
		return &search.DuckDuckGo{Endpoint: cfg.Endpoint, Label: label, Client: client}, nil
	case registry.SchemaSearxNG:
		return &search.SearxNG{BaseURL: cfg.Endpoint, APIKey: cfg.Credential, Label: label, Client: client}, nil
	case registry.SchemaFile:
		return &search.FileProvider{Path: cfg.Endpoint, Label: label}, nil
	}
	return nil, fmt.Errorf("unknown surface schema %q", cfg.Schema)
}
