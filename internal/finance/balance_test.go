package finance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedTxn(t *testing.T, store *memStore, date time.Time, amount int64) {
	t.Helper()
	_, err := store.InsertTransaction(context.Background(), Transaction{
		Date:   date,
		Type:   TypeAdjustment,
		Amount: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
}

func TestCurrentBalanceEmptyLedger(t *testing.T) {
	got, err := CurrentBalance(context.Background(), newMemStore(), day(2026, 3, 5))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestCurrentBalanceWithoutSnapshotSumsEverything(t *testing.T) {
	store := newMemStore()
	seedTxn(t, store, day(2026, 3, 1), 100)
	seedTxn(t, store, day(2026, 3, 3), -40)
	seedTxn(t, store, day(2026, 3, 9), 500) // after the as-of day

	got, err := CurrentBalance(context.Background(), store, day(2026, 3, 5))
	require.NoError(t, err)
	require.Equal(t, "60", got.String())
}

func TestCurrentBalanceStartsFromLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	_, err := store.InsertBalance(ctx, Balance{Date: day(2026, 3, 1), Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	seedTxn(t, store, day(2026, 3, 1), 999) // on the snapshot day, already included
	seedTxn(t, store, day(2026, 3, 2), 20)
	seedTxn(t, store, day(2026, 3, 4), -5)
	seedTxn(t, store, day(2026, 3, 8), 77) // after the as-of day

	got, err := CurrentBalance(ctx, store, day(2026, 3, 5))
	require.NoError(t, err)
	require.Equal(t, "115", got.String())
}

func TestCurrentBalancePicksNearestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	_, err := store.InsertBalance(ctx, Balance{Date: day(2026, 2, 1), Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = store.InsertBalance(ctx, Balance{Date: day(2026, 3, 1), Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	seedTxn(t, store, day(2026, 3, 2), 1)

	got, err := CurrentBalance(ctx, store, day(2026, 3, 5))
	require.NoError(t, err)
	require.Equal(t, "101", got.String())
}

func TestSnapshotAsOfCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := time.Date(2026, 3, 5, 16, 45, 0, 0, time.UTC)

	seedTxn(t, store, day(2026, 3, 4), 30)
	require.NoError(t, SnapshotAsOf(ctx, store, now))

	b, err := store.BalanceByDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "30", b.Amount.String())

	seedTxn(t, store, day(2026, 3, 5), 12)
	require.NoError(t, SnapshotAsOf(ctx, store, now))

	require.Len(t, store.balances, 1, "same day must reuse the existing row")
	b, err = store.BalanceByDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "42", b.Amount.String())
}

func TestSnapshotAsOfIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := day(2026, 3, 5)

	seedTxn(t, store, day(2026, 3, 4), 30)
	require.NoError(t, SnapshotAsOf(ctx, store, now))
	require.NoError(t, SnapshotAsOf(ctx, store, now))

	require.Len(t, store.balances, 1)
	b, err := store.BalanceByDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "30", b.Amount.String())
}

func TestSnapshotAsOfTracksEveryMutationWithinTheDay(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	now := day(2026, 3, 5)

	_, err := store.InsertBalance(ctx, Balance{Date: day(2026, 3, 4), Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	// An outflow and a matching inflow land on the same day, each followed
	// by a re-snapshot. The stored row must follow every step, not stay
	// frozen on the first amount written that day.
	seedTxn(t, store, now, -20)
	require.NoError(t, SnapshotAsOf(ctx, store, now))
	b, err := store.BalanceByDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "80", b.Amount.String())

	seedTxn(t, store, now, 20)
	require.NoError(t, SnapshotAsOf(ctx, store, now))
	b, err = store.BalanceByDate(ctx, now)
	require.NoError(t, err)
	require.Equal(t, "100", b.Amount.String())
	require.Len(t, store.balances, 2)
}

func TestSnapshotAsOfUsesPriorDayAsAnchor(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	seedTxn(t, store, day(2026, 3, 4), 30)
	require.NoError(t, SnapshotAsOf(ctx, store, day(2026, 3, 4)))
	seedTxn(t, store, day(2026, 3, 5), 12)
	require.NoError(t, SnapshotAsOf(ctx, store, day(2026, 3, 5)))

	require.Len(t, store.balances, 2)
	b, err := store.BalanceByDate(ctx, day(2026, 3, 5))
	require.NoError(t, err)
	require.Equal(t, "42", b.Amount.String())
}
