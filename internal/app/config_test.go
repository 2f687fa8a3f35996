package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/metasearch/internal/extract"
	"github.com/hyperifyio/metasearch/internal/overlay"
)

const sampleYAML = `
google:
  key: g-key
tor:
  proxy: socks5h://127.0.0.1:9050
  engines: [ahmia]
engines:
  - name: haystak
    network: tor
    endpoint: http://haystak.onion/search.php
    queryParam: q
    rule:
      block: div.result
      title: a
      snippet: p
max:
  surface: 8
cache:
  ttl: 1h
timeout:
  overlay: 45s
verbose: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
	fc, err := LoadConfigFile(writeFile(t, "metasearch.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)

	if cfg.GoogleAPIKey != "g-key" || cfg.GoogleEndpoint != defaultGoogleEndpoint {
		t.Fatalf("google settings: %q %q", cfg.GoogleAPIKey, cfg.GoogleEndpoint)
	}
	if cfg.MaxSurfaceResults != 8 || cfg.MaxDeepWebResults != 5 {
		t.Fatalf("limits: %d %d", cfg.MaxSurfaceResults, cfg.MaxDeepWebResults)
	}
	if cfg.CacheTTL != time.Hour || cfg.OverlayTimeout != 45*time.Second {
		t.Fatalf("durations: %v %v", cfg.CacheTTL, cfg.OverlayTimeout)
	}
	if len(cfg.CustomEngines) != 1 || cfg.CustomEngines[0].Rule.Block != "div.result" || cfg.CustomEngines[0].QueryParam != "q" {
		t.Fatalf("custom engines: %+v", cfg.CustomEngines)
	}
	if !cfg.Verbose {
		t.Fatalf("verbose not applied")
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	fc, err := LoadConfigFile(writeFile(t, "metasearch.json", `{"bing":{"key":"b"},"i2p":{"proxy":"http://127.0.0.1:4444"}}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if cfg.BingAPIKey != "b" || cfg.I2PProxy != "http://127.0.0.1:4444" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	if _, err := LoadConfigFile(writeFile(t, "bad.yaml", "max: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

// Layering: env beats file, and the caller applies flags last.
func TestConfigLayering_EnvOverridesFile(t *testing.T) {
	t.Setenv("MAX_SURFACE_RESULTS", "3")
	fc, err := LoadConfigFile(writeFile(t, "c.yaml", "max:\n  surface: 8\n  deepweb: 2\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	ApplyEnvOverrides(&cfg)
	if cfg.MaxSurfaceResults != 3 {
		t.Fatalf("env should override file, got %d", cfg.MaxSurfaceResults)
	}
	if cfg.MaxDeepWebResults != 2 {
		t.Fatalf("file should override default, got %d", cfg.MaxDeepWebResults)
	}
}

func TestValidateConfig(t *testing.T) {
	good := DefaultConfig()
	if err := ValidateConfig(good); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := map[string]func(*Config){
		"negative limit":  func(c *Config) { c.MaxSurfaceResults = -1 },
		"bad proxy":       func(c *Config) { c.TorProxy = "ftp://127.0.0.1:21" },
		"unknown engine":  func(c *Config) { c.I2PEngines = []string{"nope"} },
		"bad tracing":     func(c *Config) { c.Tracing = "zipkin" },
		"negative rate":   func(c *Config) { c.RequestsPerSecond = -2 },
		"engine bad rule": func(c *Config) {
			c.CustomEngines = []overlay.Engine{{Name: "x", Network: overlay.NetworkTor, Endpoint: "http://x.onion", Rule: extract.Rule{Title: "a"}}}
		},
		"engine bad network": func(c *Config) {
			c.CustomEngines = []overlay.Engine{{Name: "x", Network: "freenet", Endpoint: "http://x", Rule: extract.Rule{Block: "li", Title: "a"}}}
		},
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := ValidateConfig(cfg)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !strings.HasPrefix(err.Error(), "config:") {
			t.Errorf("%s: error should be prefixed, got %v", name, err)
		}
	}
}
