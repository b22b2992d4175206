package analytics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	loads atomic.Int64
}

func (f *fakeRepo) SalesTotalSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	f.loads.Add(1)
	// wider window, bigger total
	if since.Before(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)) {
		return decimal.NewFromInt(300), nil
	}
	return decimal.NewFromInt(70), nil
}

func (f *fakeRepo) TopProducts(context.Context, time.Time, int) ([]TopProduct, error) {
	return []TopProduct{
		{ProductID: 10, Name: "Glazed bowl", TotalSold: 12, Revenue: decimal.NewFromInt(120)},
		{ProductID: 11, Name: "Stone vase", TotalSold: 4, Revenue: decimal.NewFromInt(60)},
	}, nil
}

func (f *fakeRepo) LowStock(_ context.Context, threshold int64) ([]LowStockProduct, error) {
	if threshold != 5 {
		return nil, nil
	}
	return []LowStockProduct{{ProductID: 11, Name: "Stone vase", ArtistName: "Mara Quinn", StockQuantity: 2}}, nil
}

func (f *fakeRepo) ProfitMargin(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(180), nil
}

func (f *fakeRepo) BalanceHistory(context.Context, time.Time) ([]BalancePoint, error) {
	return []BalancePoint{
		{Date: "2026-03-04", Amount: decimal.NewFromInt(160)},
		{Date: "2026-03-05", Amount: decimal.NewFromInt(180)},
	}, nil
}

func testCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), client
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *Cache) {
	t.Helper()
	cache, _ := testCache(t)
	repo := &fakeRepo{}
	svc := NewService(repo, cache, ServiceConfig{
		Clock: func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) },
	})
	return svc, repo, cache
}

func TestSummaryAggregates(t *testing.T) {
	svc, _, _ := newTestService(t)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, "70", summary.SalesLast7Days.String())
	require.Equal(t, "300", summary.SalesLast30Days.String())
	require.Len(t, summary.TopProducts, 2)
	require.Equal(t, "Glazed bowl", summary.TopProducts[0].Name)
	require.Len(t, summary.LowStock, 1)
	require.Equal(t, int64(2), summary.LowStock[0].StockQuantity)
	require.Equal(t, "180", summary.ProfitMargin.String())
	require.Len(t, summary.BalanceHistory, 2)
	require.Equal(t, "2026-03-04", summary.BalanceHistory[0].Date)
}

func TestSummaryServedFromCacheUntilBump(t *testing.T) {
	svc, repo, cache := newTestService(t)
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	loadsAfterFirst := repo.loads.Load()
	require.Positive(t, loadsAfterFirst)

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, loadsAfterFirst, repo.loads.Load(), "second read hits the cache")

	require.NoError(t, cache.Bump(ctx))

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Greater(t, repo.loads.Load(), loadsAfterFirst, "bump invalidates the cached summary")
}

func TestSummaryWithoutRedisDegradesToDirectLoads(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, NewCache(nil, 0), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	first := repo.loads.Load()
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Greater(t, repo.loads.Load(), first)
}

func TestLowStockThresholdConfigurable(t *testing.T) {
	cache, _ := testCache(t)
	repo := &fakeRepo{}
	svc := NewService(repo, cache, ServiceConfig{LowStockThreshold: 3})

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.LowStock, "fake only answers the default threshold")
}

func TestWarmPopulatesCache(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))
	loads := repo.loads.Load()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, loads, repo.loads.Load(), "summary after warmup is a cache hit")
}
