package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. Env takes precedence over values
// from a config file while flags, applied afterwards, stay highest.
// Unparseable numbers and durations are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
			}
		}
	}
	setString(&cfg.GoogleAPIKey, "GOOGLE_API_KEY", "SERPAPI_KEY")
	setString(&cfg.GoogleEndpoint, "GOOGLE_ENDPOINT")
	setString(&cfg.BingAPIKey, "BING_API_KEY")
	setString(&cfg.BingEndpoint, "BING_ENDPOINT")
	setString(&cfg.DDGEndpoint, "DDG_ENDPOINT")
	// SEARX_URL wins over SEARXNG_URL when both are set
	setString(&cfg.SearxURL, "SEARXNG_URL", "SEARX_URL")
	setString(&cfg.SearxKey, "SEARXNG_KEY", "SEARX_KEY")
	setString(&cfg.FileSearchPath, "SEARCH_FILE")
	setString(&cfg.TorProxy, "TOR_PROXY")
	setString(&cfg.I2PProxy, "I2P_PROXY")
	setString(&cfg.TorEndpoint, "TOR_ENDPOINT")
	setString(&cfg.I2PEndpoint, "I2P_ENDPOINT")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.Tracing, "TRACING")

	if v := splitList(os.Getenv("TOR_ENGINES")); len(v) > 0 {
		cfg.TorEngines = v
	}
	if v := splitList(os.Getenv("I2P_ENGINES")); len(v) > 0 {
		cfg.I2PEngines = v
	}

	setInt := func(dst *int, key string) {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*dst = n
			}
		}
	}
	setInt(&cfg.MaxSurfaceResults, "MAX_SURFACE_RESULTS")
	setInt(&cfg.MaxDeepWebResults, "MAX_DEEPWEB_RESULTS")
	setInt(&cfg.PerProviderCap, "PER_PROVIDER_CAP")
	setInt(&cfg.CacheSize, "CACHE_SIZE")
	setInt(&cfg.MaxAttempts, "MAX_ATTEMPTS")

	setDuration := func(dst *time.Duration, key string) {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.SurfaceTimeout, "SURFACE_TIMEOUT")
	setDuration(&cfg.OverlayTimeout, "OVERLAY_TIMEOUT")
	setDuration(&cfg.CacheTTL, "CACHE_TTL")

	if s := strings.TrimSpace(os.Getenv("REQUESTS_PER_SECOND")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.RequestsPerSecond = f
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.DisableDuckDuckGo, "DDG_DISABLE")
	setBool(&cfg.CanonicalizeLinks, "CANONICALIZE_LINKS")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
