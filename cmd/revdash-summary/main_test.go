package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revdash/backend/internal/domain/sales"
	"github.com/revdash/backend/internal/infrastructure/cache"
)

// setup writes a config pointing at a fresh sqlite cache and returns the
// config path and the cache path
func setup(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")
	configPath := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
[app]
timezone = "UTC"

[log]
output = %q

[cache]
backend = "sqlite"
sqlite_path = %q
`, filepath.Join(dir, "revdash.log"), dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath, dbPath
}

func seed(t *testing.T, dbPath string, orders []sales.Order) {
	t.Helper()
	store, err := cache.NewSQLiteStore(cache.SQLiteConfig{Path: dbPath}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, cache.NewSnapshotCache(store).CacheOrders(context.Background(), orders))
}

func TestRun(t *testing.T) {
	configPath, dbPath := setup(t)
	seed(t, dbPath, []sales.Order{
		{ID: "1", Status: sales.OrderStatusPaid, Total: 1200, Currency: "USD", CreatedAt: time.Now().UTC(), Provider: sales.ProviderGumroad},
		{ID: "2", Status: sales.OrderStatusRefunded, Total: 900, Currency: "USD", CreatedAt: time.Now().UTC(), Provider: sales.ProviderGumroad},
	})

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), configPath, false, &buf))

	assert.Contains(t, buf.String(), "Today: $12.00 (1 orders)")
	assert.Contains(t, buf.String(), "Updated: just now")
}

func TestRun_JSON(t *testing.T) {
	configPath, dbPath := setup(t)
	seed(t, dbPath, []sales.Order{
		{ID: "1", Status: sales.OrderStatusPaid, Total: 4550, Currency: "EUR", CreatedAt: time.Now().UTC(), Provider: sales.ProviderStripe},
	})

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), configPath, true, &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "EUR", decoded["currency"])
	assert.Equal(t, "45.50", decoded["today_revenue_decimal"])
	assert.EqualValues(t, 1, decoded["order_count"])
}

func TestRun_EmptyCache(t *testing.T) {
	configPath, _ := setup(t)

	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), configPath, false, &buf))
	assert.Contains(t, buf.String(), "No cached data")

	buf.Reset()
	require.NoError(t, run(context.Background(), configPath, true, &buf))
	assert.JSONEq(t, `{}`, buf.String())
}

func TestRun_MissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := run(context.Background(), filepath.Join(t.TempDir(), "nope.toml"), false, &bytes.Buffer{})
	assert.Error(t, err)
}
