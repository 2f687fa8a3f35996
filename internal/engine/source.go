package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperifyio/metasearch/internal/registry"
	"github.com/hyperifyio/metasearch/internal/search"
	"github.com/hyperifyio/metasearch/internal/tracer"
)

// BreakerConfig configures the per-source circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before a probe is let through.
	Timeout time.Duration `yaml:"timeout"`
	// Interval clears failure counts while closed. Zero never clears them.
	Interval time.Duration `yaml:"interval"`
}

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 60 * time.Second
)

// source is one built provider together with the resources it owns.
type source struct {
	cfg      registry.ProviderConfig
	provider search.Provider
	kind     search.Kind
	timeout  time.Duration
	limit    int
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]search.Result]
}

func newBreaker(id string, cfg BreakerConfig) *gobreaker.CircuitBreaker[[]search.Result] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	return gobreaker.NewCircuitBreaker[[]search.Result](gobreaker.Settings{
		Name:        "provider:" + id,
		MaxRequests: 1, // one probe in half-open state
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// fetch runs the provider under its own timeout. Every failure is logged and
// reported to the caller, which treats it as an empty contribution.
func (s *source) fetch(ctx context.Context, query string) ([]search.Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("provider", s.cfg.ID).
		Str("kind", string(s.kind)).
		Logger()
	ctx, span := tracer.StartSpan(ctx, "metasearch.fetch", trace.WithAttributes(
		tracer.StringAttr("provider", s.cfg.ID),
		tracer.StringAttr("kind", string(s.kind)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	rs, err := s.breaker.Execute(func() ([]search.Result, error) {
		return s.provider.Search(ctx, query, s.limit)
	})
	elapsed := time.Since(start)
	if err != nil {
		tracer.RecordError(span, err)
		ev := logger.Warn()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			ev = logger.Debug()
		}
		ev.Err(err).Dur("elapsed", elapsed).Msg("provider failed")
		return nil, err
	}

	rs = search.Cap(rs, s.limit)
	out := make([]search.Result, 0, len(rs))
	for _, r := range rs {
		// providers label their own results; enforce the list they feed
		r.Kind = s.kind
		if r.Source == "" {
			r.Source = s.provider.Name()
		}
		out = append(out, r)
	}
	tracer.SetOK(span)
	span.SetAttributes(tracer.IntAttr("results", len(out)))
	logger.Debug().Int("results", len(out)).Dur("elapsed", elapsed).Msg("provider done")
	return out, nil
}
