package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/metasearch/internal/engine"
	"github.com/hyperifyio/metasearch/internal/format"
	"github.com/hyperifyio/metasearch/internal/overlay"
	"github.com/hyperifyio/metasearch/internal/search"
	"github.com/hyperifyio/metasearch/internal/tracer"
)

// App owns the engine and the tracer for one process.
type App struct {
	cfg            Config
	engine         *engine.Engine
	shutdownTracer func(context.Context) error
}

// New validates cfg, sets up tracing and initializes the engine.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	shutdown, err := tracer.Setup(ctx, tracer.Config{Enabled: cfg.Tracing != "", Exporter: cfg.Tracing})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	reg, catalog, err := BuildRegistry(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	eng := engine.New(reg, EngineOptions(cfg, catalog))
	if err := eng.Initialize(ctx); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	caps := eng.Capabilities()
	log.Debug().
		Bool("surface", caps.SurfaceEnabled).
		Bool("deepweb", caps.DeepWebEnabled).
		Msg("providers ready")
	return &App{cfg: cfg, engine: eng, shutdownTracer: shutdown}, nil
}

// EngineOptions maps the flat runtime config onto engine options.
func EngineOptions(cfg Config, catalog overlay.Catalog) engine.Options {
	return engine.Options{
		MaxSurface:        cfg.MaxSurfaceResults,
		MaxDeepWeb:        cfg.MaxDeepWebResults,
		PerProviderCap:    cfg.PerProviderCap,
		SurfaceTimeout:    cfg.SurfaceTimeout,
		OverlayTimeout:    cfg.OverlayTimeout,
		CacheSize:         cfg.CacheSize,
		CacheTTL:          cfg.CacheTTL,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Breaker: engine.BreakerConfig{
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
		},
		CanonicalizeLinks: cfg.CanonicalizeLinks,
		Overlays:          catalog,
	}
}

// Engine exposes the underlying engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Close releases network resources and flushes pending spans.
func (a *App) Close() error {
	err := a.engine.Close()
	if a.shutdownTracer != nil {
		if terr := a.shutdownTracer(context.Background()); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}

// Search runs one query and renders the result set to w. When no provider
// serves the mode the reason is still rendered and the error is returned.
func (a *App) Search(ctx context.Context, query string, mode search.Mode, kind format.Kind, w io.Writer) error {
	rs, err := a.engine.Search(ctx, query, mode)
	if err != nil && !errors.Is(err, engine.ErrNoProviderAvailable) {
		return err
	}
	if rerr := format.Render(kind, rs, w); rerr != nil {
		return fmt.Errorf("render: %w", rerr)
	}
	return err
}

// WriteStatistics prints cached result counts per provider, sorted by label.
func (a *App) WriteStatistics(w io.Writer, asJSON bool) error {
	stats := a.engine.Statistics()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	labels := make([]string, 0, len(stats))
	for l := range stats {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCACHED RESULTS")
	for _, l := range labels {
		fmt.Fprintf(tw, "%s\t%d\n", l, stats[l])
	}
	return tw.Flush()
}

// WriteCapabilities prints the provider table.
func (a *App) WriteCapabilities(w io.Writer, asJSON bool) error {
	caps := a.engine.Capabilities()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(caps)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tENABLED\tDETAIL")
	for _, p := range caps.Providers {
		detail := p.Reason
		if p.Enabled {
			detail = "breaker " + p.Breaker
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.ID, p.Kind, p.Enabled, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !caps.DeepWebEnabled {
		_, err := fmt.Fprintln(w, "\nDeep web search is off: set TOR_PROXY or I2P_PROXY to enable it.")
		return err
	}
	return nil
}
