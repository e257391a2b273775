// Package cmd implements the lychnos CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/config"
	"github.com/davidschlachter/lychnos/internal/firefly"
	"github.com/davidschlachter/lychnos/internal/logging"
	"github.com/davidschlachter/lychnos/internal/model"
	"github.com/davidschlachter/lychnos/internal/pipeline"
	"github.com/davidschlachter/lychnos/internal/store"
)

var (
	flagBudget  int64
	flagQuiet   bool
	flagNoCache bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:           "lychnos",
	Short:         "Budget pacing for Firefly III",
	Long:          "Track how each budget category is pacing against the year, and how far savings are from covering expenses.",
	RunE:          runSummary,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		config.LoadDotEnv()
		if flagConfig != "" {
			config.SetPath(flagConfig)
		}
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int64VarP(&flagBudget, "budget", "b", 0, "Budget id (default: the budget covering today)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Query Firefly directly without the request cache")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/lychnos/config.toml)")
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger returns the logger for long-running work. Quiet runs only log
// errors.
func newLogger(cfg config.Config, w io.Writer, pretty bool) zerolog.Logger {
	level := cfg.General.LogLevel
	if flagQuiet {
		level = "error"
	}
	return logging.New(w, level, pretty)
}

// app bundles the pieces every report command needs.
type app struct {
	cfg     config.Config
	store   *store.Store
	client  *firefly.Client
	cache   *firefly.Cache // nil with --no-cache
	reports *pipeline.Reports
	loc     *time.Location
	log     zerolog.Logger
}

// openStore opens the budget database named by cfg.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(config.DBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening budget database: %w", err)
	}
	return st, nil
}

// newApp wires the store, Firefly client, cache and reports together.
func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	loc, err := config.Location(cfg)
	if err != nil {
		return nil, err
	}

	client, err := firefly.NewClient(firefly.Config{
		URL:         config.GetFireflyURL(cfg),
		Token:       config.GetFireflyToken(cfg),
		TaxCategory: cfg.General.TaxCategory,
		HTTPClient:  newHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w (run `lychnos setup` or set FIREFLY_URL and FIREFLY_TOKEN)", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, client: client, loc: loc, log: log}
	var src pipeline.Source = client
	if !flagNoCache {
		a.cache = firefly.NewCache(client, log)
		src = a.cache
	}
	a.reports = pipeline.New(src, st, loc)
	return a, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

// warm prefetches every budget's totals into the cache.
func (a *app) warm(ctx context.Context, now time.Time) error {
	if a.cache == nil {
		return nil
	}
	budgets, err := a.store.ListBudgets(ctx)
	if err != nil {
		return err
	}
	var targets []model.CategoryTarget
	for _, b := range budgets {
		ts, err := a.store.ListTargets(ctx, b.ID)
		if err != nil {
			return err
		}
		targets = append(targets, ts...)
	}
	return a.cache.Warm(ctx, budgets, targets, now, a.loc)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// commandContext returns a context canceled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// progress prints a progress line to stderr unless --quiet.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}
