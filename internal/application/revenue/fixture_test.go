package revenue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revdash/backend/internal/domain/sales"
)

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, `{
		"orders": [
			{"id": "1", "status": "paid", "total": 4900, "currency": "USD",
			 "customer_email": "a@example.com", "customer_name": "Ada",
			 "product_name": "Ebook", "created_at": "2026-03-14T10:00:00Z",
			 "provider": "lemonsqueezy"}
		],
		"products": [
			{"id": "p1", "name": "Ebook", "price": 4900, "currency": "USD",
			 "status": "published", "created_at": "2025-01-01T00:00:00Z",
			 "provider": "lemonsqueezy"}
		],
		"stores": [
			{"id": "s1", "name": "Demo Store", "currency": "USD",
			 "total_revenue": 4900, "thirty_day_revenue": 4900,
			 "provider": "lemonsqueezy"}
		]
	}`)

	snap, err := LoadFixture(path)

	require.NoError(t, err)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, int64(4900), snap.Orders[0].Total)
	assert.Equal(t, sales.OrderStatusPaid, snap.Orders[0].Status)
	assert.Len(t, snap.Products, 1)
	require.Len(t, snap.Stores, 1)
	assert.Equal(t, "Demo Store", snap.Stores[0].Name)

	svc := NewService(nil)
	svc.LoadSnapshot(snap)
	assert.True(t, svc.IsConnected(sales.ProviderLemonSqueezy))
	assert.Equal(t, int64(4900), svc.Metrics().AllTimeRevenue)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFixture(writeFixture(t, `{"orders": [`))
	assert.Error(t, err)

	_, err = LoadFixture(writeFixture(t, `{"orders": [{"id": "1", "provider": "paddle"}]}`))
	assert.ErrorIs(t, err, sales.ErrUnknownProvider)

	_, err = LoadFixture(writeFixture(t, `{"stores": [{"id": "s", "provider": ""}]}`))
	assert.ErrorIs(t, err, sales.ErrUnknownProvider)
}
