package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RepositoryPort exposes the aggregate queries the service composes.
type RepositoryPort interface {
	SalesTotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProduct, error)
	LowStock(ctx context.Context, threshold int64) ([]LowStockProduct, error)
	ProfitMargin(ctx context.Context) (decimal.Decimal, error)
	BalanceHistory(ctx context.Context, since time.Time) ([]BalancePoint, error)
}

const topProductLimit = 5

// Service coordinates dashboard query execution with the cache layer.
type Service struct {
	repo          RepositoryPort
	cache         *Cache
	lowStockBelow int64
	now           func() time.Time
}

// ServiceConfig groups settings.
type ServiceConfig struct {
	LowStockThreshold int64
	Clock             func() time.Time
}

// NewService wires a repository with the cache helper.
func NewService(repo RepositoryPort, cache *Cache, cfg ServiceConfig) *Service {
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = 5
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, cache: cache, lowStockBelow: threshold, now: now}
}

// Summary returns the dashboard aggregates, served from cache when the
// version has not been bumped since the last load.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	key, err := s.cache.BuildKey(ctx, keySummary(now.UTC().Format("2006-01-02"))...)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.load(ctx, now)
	})
	return summary, err
}

// Warm populates the cache entry for the current day. Used by the
// background warmup task after ledger changes.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Summary(ctx)
	return err
}

// load runs the aggregate queries concurrently. Each query touches a
// different table set, so they share the pool without contention.
func (s *Service) load(ctx context.Context, now time.Time) (Summary, error) {
	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.SalesLast7Days, err = s.repo.SalesTotalSince(ctx, now.AddDate(0, 0, -7))
		return err
	})
	g.Go(func() error {
		var err error
		summary.SalesLast30Days, err = s.repo.SalesTotalSince(ctx, now.AddDate(0, 0, -30))
		return err
	})
	g.Go(func() error {
		var err error
		summary.TopProducts, err = s.repo.TopProducts(ctx, now.AddDate(0, 0, -30), topProductLimit)
		return err
	})
	g.Go(func() error {
		var err error
		summary.LowStock, err = s.repo.LowStock(ctx, s.lowStockBelow)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ProfitMargin, err = s.repo.ProfitMargin(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.BalanceHistory, err = s.repo.BalanceHistory(ctx, now.AddDate(0, 0, -30))
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
