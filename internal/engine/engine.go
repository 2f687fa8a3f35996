// Package engine is the meta-search orchestrator: it builds one source per
// configured provider, fans a query out to the sources the mode selects,
// merges each kind separately and memoizes the result per (query, mode).
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/metasearch/internal/aggregate"
	"github.com/hyperifyio/metasearch/internal/cache"
	"github.com/hyperifyio/metasearch/internal/fetch"
	"github.com/hyperifyio/metasearch/internal/overlay"
	"github.com/hyperifyio/metasearch/internal/registry"
	"github.com/hyperifyio/metasearch/internal/search"
	"github.com/hyperifyio/metasearch/internal/tracer"
)

var (
	ErrNoProviderAvailable = errors.New("no provider available")
	ErrNotInitialized      = errors.New("engine not initialized")
	ErrEmptyQuery          = errors.New("empty query")
	ErrUnknownProvider     = errors.New("unknown provider")
)

const (
	DefaultMaxSurface     = 10
	DefaultMaxDeepWeb     = 5
	DefaultPerProviderCap = 5
	DefaultSurfaceTimeout = 10 * time.Second
	DefaultUserAgent      = "metasearch/1.0"
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	MaxSurface     int
	MaxDeepWeb     int
	PerProviderCap int

	SurfaceTimeout time.Duration
	OverlayTimeout time.Duration

	CacheSize int
	// CacheTTL <= 0 keeps entries until evicted by size.
	CacheTTL time.Duration

	UserAgent   string
	MaxAttempts int
	// RequestsPerSecond paces each source independently. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	Breaker BreakerConfig

	// CanonicalizeLinks dedups on a canonical form of each link instead of
	// the exact string.
	CanonicalizeLinks bool

	// Overlays adds or overrides overlay engines by name.
	Overlays overlay.Catalog
	// Factory overrides provider construction. Defaults to NewFactory(Overlays).
	Factory Factory
}

func (o Options) withDefaults() Options {
	if o.MaxSurface <= 0 {
		o.MaxSurface = DefaultMaxSurface
	}
	if o.MaxDeepWeb <= 0 {
		o.MaxDeepWeb = DefaultMaxDeepWeb
	}
	if o.PerProviderCap <= 0 {
		o.PerProviderCap = DefaultPerProviderCap
	}
	if o.SurfaceTimeout <= 0 {
		o.SurfaceTimeout = DefaultSurfaceTimeout
	}
	if o.OverlayTimeout <= 0 {
		o.OverlayTimeout = overlay.DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Factory == nil {
		o.Factory = NewFactory(o.Overlays)
	}
	return o
}

type state int

const (
	stateIdle state = iota
	stateReady
	stateClosed
)

// Engine is safe for concurrent use once initialized.
type Engine struct {
	reg   *registry.Registry
	opts  Options
	cache *cache.ResultCache

	mu       sync.RWMutex
	state    state
	sources  []*source
	disabled map[string]string // provider id -> reason
}

// New returns an idle engine over reg. Call Initialize before Search.
func New(reg *registry.Registry, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		reg:      reg,
		opts:     opts,
		cache:    cache.New(opts.CacheSize, opts.CacheTTL),
		disabled: map[string]string{},
	}
}

// Initialize builds the HTTP clients and providers for every available
// registry entry. Entries that are unavailable or fail to build are skipped
// and reported through Capabilities. Calling it again is a no-op.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateReady:
		return nil
	case stateClosed:
		return errors.New("engine closed")
	}

	var built []*source
	for _, cfg := range e.reg.All() {
		if ok, reason := cfg.Available(); !ok {
			log.Info().Str("provider", cfg.ID).Str("reason", reason).Msg("provider disabled")
			e.disabled[cfg.ID] = reason
			continue
		}
		s, err := e.buildSource(cfg)
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.ID).Msg("provider setup failed")
			e.disabled[cfg.ID] = err.Error()
			continue
		}
		built = append(built, s)
	}
	e.sources = built
	e.state = stateReady
	log.Debug().Int("sources", len(built)).Int("disabled", len(e.disabled)).Msg("engine initialized")
	return nil
}

func (e *Engine) buildSource(cfg registry.ProviderConfig) (*source, error) {
	kind := search.KindSurface
	timeout := e.opts.SurfaceTimeout
	if cfg.Kind == registry.KindOverlay {
		kind = search.KindDeepWeb
		timeout = e.opts.OverlayTimeout
	}
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	hc, err := fetch.NewHTTPClient(cfg.Proxy, 0)
	if err != nil {
		return nil, err
	}
	client := &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         e.opts.UserAgent,
		MaxAttempts:       e.opts.MaxAttempts,
		PerRequestTimeout: timeout,
	}
	if e.opts.RequestsPerSecond > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(e.opts.RequestsPerSecond), e.opts.Burst)
	}
	p, err := e.opts.Factory(cfg, client)
	if err != nil {
		fetch.CloseIdle(hc)
		return nil, err
	}
	return &source{
		cfg:      cfg,
		provider: p,
		kind:     kind,
		timeout:  timeout,
		limit:    e.opts.PerProviderCap,
		http:     hc,
		breaker:  newBreaker(cfg.ID, e.opts.Breaker),
	}, nil
}

// Close drops the cache and releases pooled connections. In-flight searches
// finish on their own timeouts. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateClosed {
		return nil
	}
	for _, s := range e.sources {
		fetch.CloseIdle(s.http)
	}
	e.sources = nil
	e.cache.Purge()
	e.state = stateClosed
	return nil
}

// Search answers query in mode. A cached answer is returned without any
// fetch. Otherwise every source the mode selects is queried concurrently and
// awaited; sources that fail contribute nothing. Cancelling ctx does not
// abort a fetch that has started, since other callers may share it.
//
// When the mode selects no usable source the returned set carries a Reason
// and the error is ErrNoProviderAvailable.
func (e *Engine) Search(ctx context.Context, query string, mode search.Mode) (search.ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return search.ResultSet{}, ErrEmptyQuery
	}
	mode, err := search.ParseMode(string(mode))
	if err != nil {
		return search.ResultSet{}, err
	}
	sources, err := e.selectSources(mode)
	if err != nil {
		return search.ResultSet{}, err
	}

	logger := log.With().
		Str("request", xid.New().String()).
		Str("mode", string(mode)).
		Str("query", query).
		Logger()
	ctx = logger.WithContext(ctx)

	if len(sources) == 0 {
		rs := emptySet(query, mode)
		rs.Reason = fmt.Sprintf("no provider available for %s search", mode)
		logger.Warn().Msg(rs.Reason)
		return rs, ErrNoProviderAvailable
	}

	ctx, span := tracer.StartSpan(ctx, "metasearch.search", trace.WithAttributes(
		tracer.StringAttr("mode", string(mode)),
		tracer.IntAttr("sources", len(sources)),
	))
	defer span.End()

	key := cache.KeyFrom(query, mode)
	rs, hit, err := e.cache.Do(key, func() (search.ResultSet, bool, error) {
		rs, ok := e.run(context.WithoutCancel(ctx), query, mode, sources)
		return rs, ok, nil
	})
	if err != nil {
		tracer.RecordError(span, err)
		return search.ResultSet{}, err
	}
	logger.Debug().Bool("cached", hit).
		Int("surface", len(rs.Surface)).
		Int("deepweb", len(rs.DeepWeb)).
		Msg("search done")
	tracer.SetOK(span)
	return rs, nil
}

func (e *Engine) selectSources(mode search.Mode) ([]*source, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != stateReady {
		return nil, ErrNotInitialized
	}
	var out []*source
	for _, s := range e.sources {
		if (s.kind == search.KindSurface && mode.IncludesSurface()) ||
			(s.kind == search.KindDeepWeb && mode.IncludesDeep()) {
			out = append(out, s)
		}
	}
	return out, nil
}

// run fans out to sources and merges. ok is false when every source failed,
// which keeps a transient outage out of the cache.
func (e *Engine) run(ctx context.Context, query string, mode search.Mode, sources []*source) (search.ResultSet, bool) {
	// one slot per source keeps merge order equal to registry order
	groups := make([][]search.Result, len(sources))
	failed := make([]bool, len(sources))
	var g errgroup.Group
	for i, s := range sources {
		g.Go(func() error {
			rs, err := s.fetch(ctx, query)
			groups[i], failed[i] = rs, err != nil
			return nil
		})
	}
	_ = g.Wait()

	var surface, deep [][]search.Result
	ok := false
	// the bonus only applies when several sources actually contributed
	contributing := 0
	for i, s := range sources {
		if !failed[i] {
			ok = true
		}
		if s.kind == search.KindDeepWeb {
			deep = append(deep, groups[i])
		} else {
			surface = append(surface, groups[i])
			if !failed[i] && len(groups[i]) > 0 {
				contributing++
			}
		}
	}

	rs := emptySet(query, mode)
	if mode.IncludesSurface() {
		rs.Surface = aggregate.Merge(surface, aggregate.Options{
			MaxResults:        e.opts.MaxSurface,
			Diversity:         contributing > 1,
			CanonicalizeLinks: e.opts.CanonicalizeLinks,
		})
	}
	if mode.IncludesDeep() {
		rs.DeepWeb = aggregate.Merge(deep, aggregate.Options{
			MaxResults:        e.opts.MaxDeepWeb,
			CanonicalizeLinks: e.opts.CanonicalizeLinks,
		})
	}
	return rs, ok
}

func emptySet(query string, mode search.Mode) search.ResultSet {
	return search.ResultSet{
		Query:   query,
		Mode:    mode,
		Surface: []search.Result{},
		DeepWeb: []search.Result{},
	}
}

// Probe runs a single source directly, bypassing cache and merge.
func (e *Engine) Probe(ctx context.Context, id, query string) ([]search.Result, error) {
	e.mu.RLock()
	if e.state != stateReady {
		e.mu.RUnlock()
		return nil, ErrNotInitialized
	}
	var src *source
	for _, s := range e.sources {
		if s.cfg.ID == id {
			src = s
			break
		}
	}
	reason, disabled := e.disabled[id]
	e.mu.RUnlock()

	if src == nil {
		if disabled {
			return nil, fmt.Errorf("%w: %s is disabled: %s", ErrNoProviderAvailable, id, reason)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	ctx = log.With().Str("request", xid.New().String()).Str("probe", id).Logger().WithContext(ctx)
	return src.fetch(ctx, strings.TrimSpace(query))
}

// Statistics counts cached results per provider label across all live
// cache entries.
func (e *Engine) Statistics() map[string]int {
	out := map[string]int{}
	for _, entry := range e.cache.Entries() {
		for _, r := range entry.Value.Surface {
			out[r.Source]++
		}
		for _, r := range entry.Value.DeepWeb {
			out[r.Source]++
		}
	}
	return out
}

// ClearCache drops every cached result set and returns how many there were.
func (e *Engine) ClearCache() int {
	n := e.cache.Len()
	e.cache.Purge()
	return n
}
