package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/application/revenue"
	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/cache"
	"github.com/revdash/backend/internal/infrastructure/config"
	"github.com/revdash/backend/internal/infrastructure/ecommerce"
	"github.com/revdash/backend/internal/infrastructure/logger"
	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

type options struct {
	configFile string
	demo       string
	offline    bool
	jsonOutput bool
	search     string
	provider   string
	limit      int
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "", "Path to config.toml (default: search ., $HOME/.revdash, /etc/revdash)")
	flag.StringVar(&opts.demo, "demo", "", "Load a JSON fixture instead of calling providers")
	flag.BoolVar(&opts.offline, "offline", false, "Print the cached snapshot without refreshing")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print the snapshot as JSON")
	flag.StringVar(&opts.search, "search", "", "Only list orders matching this text")
	flag.StringVar(&opts.provider, "provider", "", "Only list orders of this provider (lemonsqueezy, gumroad, stripe)")
	flag.IntVar(&opts.limit, "limit", 10, "Number of recent orders to list")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "revdash: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync(log)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	var filter *sales.ProviderType
	if opts.provider != "" {
		p, err := sales.ParseProviderType(opts.provider)
		if err != nil {
			return fmt.Errorf("-provider %q: %w", opts.provider, err)
		}
		filter = &p
	}

	shutdown, metrics, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdown()

	store, err := cache.NewStoreFactory(cfg.Cache,
		cache.WithLogger(log),
		cache.WithLogLevel(cfg.Log.Level),
		cache.WithDBTracing(telemetry.DBTracingConfig{
			Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
			DBName:             "sqlite",
		}),
	).CreateStore()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close cache", zap.Error(err))
		}
	}()
	snapshots := cache.NewSnapshotCache(store, cache.WithCacheLogger(log))

	demoPath := opts.demo
	if demoPath == "" && cfg.Demo.Enabled {
		demoPath = cfg.Demo.FixturePath
	}

	svcOpts := []revenue.Option{
		revenue.WithLogger(log),
		revenue.WithLocation(loc),
		revenue.WithRefreshMetrics(metrics),
	}
	if demoPath == "" {
		// demo data never reaches the cache
		svcOpts = append(svcOpts, revenue.WithCache(snapshots))
	}
	svc := revenue.NewService(
		ecommerce.NewProviderFactory(providerSettings(cfg), ecommerce.WithLogger(log)),
		svcOpts...,
	)

	if demoPath != "" {
		snap, err := revenue.LoadFixture(demoPath)
		if err != nil {
			return err
		}
		svc.LoadSnapshot(snap)
		log.Info("demo snapshot loaded", zap.String("fixture", demoPath))
	} else {
		svc.LoadCached(ctx)
		if err := svc.Configure(cfg); err != nil {
			log.Warn("some providers could not be configured", zap.Error(err))
		}
		if !opts.offline {
			if err := svc.Refresh(ctx); err != nil {
				log.Warn("refresh incomplete", zap.Error(err))
			}
		}
	}

	view := svc.Snapshot()
	if opts.jsonOutput {
		return renderJSON(stdout, view)
	}

	return renderText(stdout, report{
		View:      view,
		Connected: svc.ConnectedProviders(),
		Currency:  svc.PrimaryCurrency(),
		Orders:    svc.FilteredOrders(opts.search, filter),
		Limit:     opts.limit,
		Now:       time.Now(),
	})
}

// setupTelemetry starts the tracer and meter providers. The returned
// function flushes and stops both.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (func(), *telemetry.RefreshMetrics, error) {
	tcfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	tp, err := telemetry.NewTracerProvider(ctx, tcfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize tracing: %w", err)
	}
	mp, err := telemetry.NewMeterProvider(ctx, tcfg, log)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("initialize metrics: %w", err)
	}
	metrics, err := telemetry.NewRefreshMetrics(mp.Meter(telemetry.TracerName))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
		return nil, nil, fmt.Errorf("initialize refresh metrics: %w", err)
	}

	shutdown := func() {
		// ctx may already be cancelled by a signal
		shutdownCtx := context.Background()
		if err := errors.Join(tp.Shutdown(shutdownCtx), mp.Shutdown(shutdownCtx)); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}
	return shutdown, metrics, nil
}

// providerSettings maps the provider config sections onto adapter settings
func providerSettings(cfg *config.Config) ecommerce.ProviderSettings {
	settings := make(ecommerce.ProviderSettings, len(sales.AllProviders()))
	for _, p := range sales.AllProviders() {
		pc := cfg.Provider(p)
		settings[p] = ecommerce.ClientConfig{
			BaseURL:           pc.BaseURL,
			TimeoutSeconds:    int(pc.Timeout / time.Second),
			RequestsPerSecond: pc.RequestsPerSecond,
			Burst:             pc.Burst,
		}
	}
	return settings
}
