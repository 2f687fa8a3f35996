package app

import (
	"time"

	"github.com/hyperifyio/metasearch/internal/overlay"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Surface providers
	GoogleAPIKey      string
	GoogleEndpoint    string
	BingAPIKey        string
	BingEndpoint      string
	DDGEndpoint       string
	DisableDuckDuckGo bool
	SearxURL          string
	SearxKey          string
	FileSearchPath    string

	// Overlay networks. An empty proxy disables the network.
	TorProxy    string
	I2PProxy    string
	TorEngines  []string
	I2PEngines  []string
	TorEndpoint string // replaces the endpoint of the first Tor engine
	I2PEndpoint string // replaces the endpoint of the first I2P engine
	// CustomEngines come from the config file and join the built-in catalog.
	CustomEngines []overlay.Engine

	// Limits
	MaxSurfaceResults int
	MaxDeepWebResults int
	PerProviderCap    int
	SurfaceTimeout    time.Duration
	OverlayTimeout    time.Duration

	// Cache
	CacheSize int
	CacheTTL  time.Duration

	// Transport
	UserAgent         string
	MaxAttempts       int
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	CanonicalizeLinks bool

	// Behavior
	Verbose bool
	Tracing string // "", "noop" or "stdout"
}

const (
	defaultGoogleEndpoint = "https://serpapi.com/search"
	defaultBingEndpoint   = "https://api.bing.microsoft.com/v7.0/search"
	defaultDDGEndpoint    = "https://api.duckduckgo.com/"
	defaultTorEngine      = "ahmia"
	defaultI2PEngine      = "legwork"
)

// DefaultConfig returns the built-in defaults, the lowest configuration layer.
func DefaultConfig() Config {
	return Config{
		GoogleEndpoint:    defaultGoogleEndpoint,
		BingEndpoint:      defaultBingEndpoint,
		DDGEndpoint:       defaultDDGEndpoint,
		TorEngines:        []string{defaultTorEngine},
		I2PEngines:        []string{defaultI2PEngine},
		MaxSurfaceResults: 10,
		MaxDeepWebResults: 5,
		PerProviderCap:    5,
		SurfaceTimeout:    10 * time.Second,
		OverlayTimeout:    overlay.DefaultTimeout,
		CacheSize:         256,
		CacheTTL:          15 * time.Minute,
		UserAgent:         "metasearch/" + BuildVersion,
		MaxAttempts:       1,
	}
}
