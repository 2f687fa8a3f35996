package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/metasearch/internal/app"
	"github.com/hyperifyio/metasearch/internal/engine"
	"github.com/hyperifyio/metasearch/internal/format"
	"github.com/hyperifyio/metasearch/internal/search"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the process exit status: 2 when no provider could
// serve the request, 1 for anything else.
func exitCode(err error) int {
	if errors.Is(err, engine.ErrNoProviderAvailable) {
		return 2
	}
	return 1
}

// globalOptions are flags shared by every subcommand. Fields are applied on
// top of file and env configuration only when the flag was given.
type globalOptions struct {
	configPath string
	envFiles   []string
	verbose    bool

	searxURL       string
	fileSearch     string
	torProxy       string
	i2pProxy       string
	maxSurface     int
	maxDeepWeb     int
	surfaceTimeout time.Duration
	overlayTimeout time.Duration
	cacheTTL       time.Duration
	canonicalize   bool
	tracing        string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "metasearch",
		Short: "Meta-search across public search APIs and Tor/I2P portals",
		Long: `metasearch fans a query out to every configured search backend,
merges the answers into one deduplicated, ranked result set and prints it.

Surface providers (Google via SerpAPI, Bing, DuckDuckGo, SearxNG, a local
JSON file) need an API key or endpoint. Deep web portals on Tor and I2P are
only queried through a configured proxy.`,
		Version:       app.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(opts.verbose)
		},
	}
	cmd.SetVersionTemplate("metasearch {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("METASEARCH_CONFIG"), "Path to YAML or JSON config file")
	pf.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&opts.searxURL, "searx.url", "", "SearxNG base URL")
	pf.StringVar(&opts.fileSearch, "search.file", "", "Path to JSON file for the offline file provider")
	pf.StringVar(&opts.torProxy, "tor.proxy", "", "Tor proxy URL, e.g. socks5h://127.0.0.1:9050")
	pf.StringVar(&opts.i2pProxy, "i2p.proxy", "", "I2P proxy URL, e.g. http://127.0.0.1:4444")
	pf.IntVar(&opts.maxSurface, "max.surface", 0, "Maximum surface results")
	pf.IntVar(&opts.maxDeepWeb, "max.deepweb", 0, "Maximum deep web results")
	pf.DurationVar(&opts.surfaceTimeout, "timeout.surface", 0, "Per-request timeout for surface providers")
	pf.DurationVar(&opts.overlayTimeout, "timeout.overlay", 0, "Per-request timeout for Tor/I2P portals")
	pf.DurationVar(&opts.cacheTTL, "cache.ttl", 0, "Lifetime of cached result sets; 0 keeps them until evicted")
	pf.BoolVar(&opts.canonicalize, "canonicalize", false, "Treat links differing only in tracking parameters as duplicates")
	pf.StringVar(&opts.tracing, "tracing", "", "Trace exporter: stdout or noop")

	cmd.AddCommand(newSearchCmd(opts), newProvidersCmd(opts), newProbeCmd(opts), newVersionCmd())
	return cmd
}

func setLogLevel(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig builds the runtime config: defaults < file < env < flags.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (app.Config, error) {
	if err := app.LoadEnvFiles(opts.envFiles...); err != nil {
		return app.Config{}, fmt.Errorf("load env files: %w", err)
	}
	cfg := app.DefaultConfig()
	if strings.TrimSpace(opts.configPath) != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config %s: %w", opts.configPath, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	flags := cmd.Flags()
	if flags.Changed("searx.url") {
		cfg.SearxURL = opts.searxURL
	}
	if flags.Changed("search.file") {
		cfg.FileSearchPath = opts.fileSearch
	}
	if flags.Changed("tor.proxy") {
		cfg.TorProxy = opts.torProxy
	}
	if flags.Changed("i2p.proxy") {
		cfg.I2PProxy = opts.i2pProxy
	}
	if flags.Changed("max.surface") {
		cfg.MaxSurfaceResults = opts.maxSurface
	}
	if flags.Changed("max.deepweb") {
		cfg.MaxDeepWebResults = opts.maxDeepWeb
	}
	if flags.Changed("timeout.surface") {
		cfg.SurfaceTimeout = opts.surfaceTimeout
	}
	if flags.Changed("timeout.overlay") {
		cfg.OverlayTimeout = opts.overlayTimeout
	}
	if flags.Changed("cache.ttl") {
		cfg.CacheTTL = opts.cacheTTL
	}
	if flags.Changed("canonicalize") {
		cfg.CanonicalizeLinks = opts.canonicalize
	}
	if flags.Changed("tracing") {
		cfg.Tracing = opts.tracing
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	setLogLevel(cfg.Verbose)
	return cfg, nil
}

// withApp loads configuration, starts the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close")
		}
	}()
	return fn(ctx, a)
}

type searchOptions struct {
	mode   string
	format string
	out    string
	stats  bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search all configured providers",
		Example: `  metasearch search golang generics
  metasearch search --mode deep --tor.proxy socks5h://127.0.0.1:9050 privacy tools
  metasearch search --format pdf --out results.pdf "rate limiting"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := search.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			kind, err := format.ParseKind(opts.format)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				w, closeOut, err := openOutput(cmd.OutOrStdout(), opts.out)
				if err != nil {
					return err
				}
				serr := a.Search(ctx, query, mode, kind, w)
				if cerr := closeOut(); cerr != nil && serr == nil {
					serr = cerr
				}
				if serr != nil {
					return serr
				}
				if opts.stats {
					return a.WriteStatistics(cmd.ErrOrStderr(), false)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeMixed), "Search mode: surface, deep, mixed")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(format.KindText), "Output format: text, markdown, json, pdf")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Print per-provider result counts to stderr")
	return cmd
}

// openOutput returns w itself when path is empty, otherwise a created file.
func openOutput(w io.Writer, path string) (io.Writer, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func newProvidersCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				return a.WriteCapabilities(cmd.OutOrStdout(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newProbeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "probe <provider-id> <query>...",
		Short:   "Query a single provider, bypassing merge and cache",
		Example: "  metasearch probe searxng golang\n  metasearch probe tor:ahmia onion services",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, query := args[0], strings.Join(args[1:], " ")
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				start := time.Now()
				results, err := a.Engine().Probe(ctx, id, query)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s: %d results in %s\n", id, len(results), time.Since(start).Round(time.Millisecond))
				for i, r := range results {
					fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, r.Title, r.Link)
				}
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "metasearch %s\n", app.VersionString())
		},
	}
}
