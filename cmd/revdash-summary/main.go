// Command revdash-summary prints today's and this month's revenue from the
// offline cache written by revdash. It never contacts a provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/cache"
	"github.com/revdash/backend/internal/infrastructure/config"
	"github.com/revdash/backend/internal/infrastructure/logger"
)

func main() {
	var (
		configFile string
		jsonOutput bool
	)
	flag.StringVar(&configFile, "config", "", "Path to config.toml (default: search ., $HOME/.revdash, /etc/revdash)")
	flag.BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	flag.Parse()

	if err := run(context.Background(), configFile, jsonOutput, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "revdash-summary: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, jsonOutput bool, stdout io.Writer) error {
	cfg, err := config.Load(configFile)
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

	// an unreachable cache must not be replaced by an empty one
	store, err := cache.NewStoreFactory(cfg.Cache,
		cache.WithLogger(log),
		cache.WithLogLevel("silent"),
		cache.WithInMemoryFallback(false),
	).CreateStore()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close cache", zap.Error(err))
		}
	}()

	summary := cache.ReadSummary(ctx, cache.NewSnapshotCache(store, cache.WithCacheLogger(log)), time.Now(), loc)
	return printSummary(stdout, summary, jsonOutput, time.Now())
}

func printSummary(w io.Writer, s *cache.Summary, jsonOutput bool, now time.Time) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if s == nil {
			return enc.Encode(struct{}{})
		}
		return enc.Encode(struct {
			*cache.Summary
			TodayRevenueDecimal string `json:"today_revenue_decimal"`
			MonthRevenueDecimal string `json:"month_revenue_decimal"`
		}{
			Summary:             s,
			TodayRevenueDecimal: s.TodayRevenueDecimal().StringFixed(2),
			MonthRevenueDecimal: s.MonthRevenueDecimal().StringFixed(2),
		})
	}

	if s == nil {
		_, err := fmt.Fprintln(w, "No cached data. Run revdash to refresh.")
		return err
	}
	_, err := fmt.Fprintf(w, "Today: %s (%d orders)\nThis month: %s\nUpdated: %s\n",
		s.TodayRevenueFormatted(), s.TodayOrders,
		s.MonthRevenueFormatted(),
		sales.LastUpdatedFormatted(s.LastUpdated, now),
	)
	return err
}
