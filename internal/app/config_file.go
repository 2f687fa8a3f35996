package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/metasearch/internal/fetch"
	"github.com/hyperifyio/metasearch/internal/overlay"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Google struct {
		Key      string `yaml:"key" json:"key"`
		Endpoint string `yaml:"endpoint" json:"endpoint"`
	} `yaml:"google" json:"google"`

	Bing struct {
		Key      string `yaml:"key" json:"key"`
		Endpoint string `yaml:"endpoint" json:"endpoint"`
	} `yaml:"bing" json:"bing"`

	DuckDuckGo struct {
		Endpoint string `yaml:"endpoint" json:"endpoint"`
		Disable  bool   `yaml:"disable" json:"disable"`
	} `yaml:"duckduckgo" json:"duckduckgo"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Tor struct {
		Proxy    string   `yaml:"proxy" json:"proxy"`
		Endpoint string   `yaml:"endpoint" json:"endpoint"`
		Engines  []string `yaml:"engines" json:"engines"`
	} `yaml:"tor" json:"tor"`

	I2P struct {
		Proxy    string   `yaml:"proxy" json:"proxy"`
		Endpoint string   `yaml:"endpoint" json:"endpoint"`
		Engines  []string `yaml:"engines" json:"engines"`
	} `yaml:"i2p" json:"i2p"`

	// Engines declares extra overlay portals. Each one is enabled on its
	// network in addition to the engines listed there.
	Engines []overlay.Engine `yaml:"engines" json:"engines"`

	Max struct {
		Surface     int `yaml:"surface" json:"surface"`
		DeepWeb     int `yaml:"deepweb" json:"deepweb"`
		PerProvider int `yaml:"perProvider" json:"perProvider"`
	} `yaml:"max" json:"max"`

	Timeout struct {
		Surface time.Duration `yaml:"surface" json:"surface"`
		Overlay time.Duration `yaml:"overlay" json:"overlay"`
	} `yaml:"timeout" json:"timeout"`

	Cache struct {
		Size int           `yaml:"size" json:"size"`
		TTL  time.Duration `yaml:"ttl" json:"ttl"`
	} `yaml:"cache" json:"cache"`

	HTTP struct {
		UserAgent         string  `yaml:"userAgent" json:"userAgent"`
		MaxAttempts       int     `yaml:"maxAttempts" json:"maxAttempts"`
		RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	} `yaml:"http" json:"http"`

	Breaker struct {
		MaxFailures uint32        `yaml:"maxFailures" json:"maxFailures"`
		Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"breaker" json:"breaker"`

	CanonicalizeLinks bool   `yaml:"canonicalizeLinks" json:"canonicalizeLinks"`
	Verbose           bool   `yaml:"verbose" json:"verbose"`
	Tracing           string `yaml:"tracing" json:"tracing"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values present in fc onto cfg, which is expected to
// hold defaults. Env overrides and flags are applied afterwards.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(&cfg.GoogleAPIKey, fc.Google.Key)
	str(&cfg.GoogleEndpoint, fc.Google.Endpoint)
	str(&cfg.BingAPIKey, fc.Bing.Key)
	str(&cfg.BingEndpoint, fc.Bing.Endpoint)
	str(&cfg.DDGEndpoint, fc.DuckDuckGo.Endpoint)
	str(&cfg.SearxURL, fc.Searx.URL)
	str(&cfg.SearxKey, fc.Searx.Key)
	str(&cfg.FileSearchPath, fc.Search.File)
	str(&cfg.TorProxy, fc.Tor.Proxy)
	str(&cfg.TorEndpoint, fc.Tor.Endpoint)
	str(&cfg.I2PProxy, fc.I2P.Proxy)
	str(&cfg.I2PEndpoint, fc.I2P.Endpoint)
	str(&cfg.UserAgent, fc.HTTP.UserAgent)
	str(&cfg.Tracing, fc.Tracing)

	if len(fc.Tor.Engines) > 0 {
		cfg.TorEngines = append([]string{}, fc.Tor.Engines...)
	}
	if len(fc.I2P.Engines) > 0 {
		cfg.I2PEngines = append([]string{}, fc.I2P.Engines...)
	}
	if len(fc.Engines) > 0 {
		cfg.CustomEngines = append([]overlay.Engine{}, fc.Engines...)
	}

	if fc.Max.Surface > 0 {
		cfg.MaxSurfaceResults = fc.Max.Surface
	}
	if fc.Max.DeepWeb > 0 {
		cfg.MaxDeepWebResults = fc.Max.DeepWeb
	}
	if fc.Max.PerProvider > 0 {
		cfg.PerProviderCap = fc.Max.PerProvider
	}
	if fc.Timeout.Surface > 0 {
		cfg.SurfaceTimeout = fc.Timeout.Surface
	}
	if fc.Timeout.Overlay > 0 {
		cfg.OverlayTimeout = fc.Timeout.Overlay
	}
	if fc.Cache.Size > 0 {
		cfg.CacheSize = fc.Cache.Size
	}
	if fc.Cache.TTL != 0 {
		cfg.CacheTTL = fc.Cache.TTL
	}
	if fc.HTTP.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.HTTP.MaxAttempts
	}
	if fc.HTTP.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = fc.HTTP.RequestsPerSecond
	}
	if fc.Breaker.MaxFailures > 0 {
		cfg.BreakerFailures = fc.Breaker.MaxFailures
	}
	if fc.Breaker.Timeout > 0 {
		cfg.BreakerTimeout = fc.Breaker.Timeout
	}
	if fc.DuckDuckGo.Disable {
		cfg.DisableDuckDuckGo = true
	}
	if fc.CanonicalizeLinks {
		cfg.CanonicalizeLinks = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig rejects settings the engine cannot run with.
func ValidateConfig(cfg Config) error {
	if cfg.MaxSurfaceResults < 0 || cfg.MaxDeepWebResults < 0 || cfg.PerProviderCap < 0 || cfg.CacheSize < 0 || cfg.MaxAttempts < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.SurfaceTimeout < 0 || cfg.OverlayTimeout < 0 {
		return errors.New("config: negative timeouts are not allowed")
	}
	if cfg.RequestsPerSecond < 0 {
		return errors.New("config: requests per second must not be negative")
	}
	if err := fetch.ValidateProxyURL(cfg.TorProxy); err != nil {
		return fmt.Errorf("config: tor proxy: %w", err)
	}
	if err := fetch.ValidateProxyURL(cfg.I2PProxy); err != nil {
		return fmt.Errorf("config: i2p proxy: %w", err)
	}
	switch cfg.Tracing {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("config: unsupported tracing exporter %q", cfg.Tracing)
	}

	catalog := overlay.Catalog{}
	for _, e := range cfg.CustomEngines {
		if strings.TrimSpace(e.Name) == "" {
			return errors.New("config: overlay engine without a name")
		}
		if _, err := overlay.ParseNetwork(string(e.Network)); err != nil {
			return fmt.Errorf("config: engine %s: %w", e.Name, err)
		}
		if strings.TrimSpace(e.Endpoint) == "" {
			return fmt.Errorf("config: engine %s: endpoint is required", e.Name)
		}
		if err := e.Rule.Validate(); err != nil {
			return fmt.Errorf("config: engine %s: %w", e.Name, err)
		}
		catalog[e.Name] = e
	}
	for _, name := range append(append([]string{}, cfg.TorEngines...), cfg.I2PEngines...) {
		if _, ok := catalog.Lookup(name); !ok {
			return fmt.Errorf("config: unknown overlay engine %q", name)
		}
	}
	return nil
}
