package finance

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// The balance is a derived cache over transactions, not a source of truth.
// CurrentBalance recomputes it from the nearest prior snapshot and
// SnapshotAsOf writes today's row back, so each stored day anchors the next
// recomputation.

// CurrentBalance returns the cumulative balance as of the given day: the
// most recent snapshot on or before it plus all transaction amounts dated
// after that snapshot through the day. Without a snapshot it is the sum of
// every transaction through the day. An empty sum counts as zero.
func CurrentBalance(ctx context.Context, store TxStore, asOf time.Time) (decimal.Decimal, error) {
	day := Day(asOf)
	latest, err := store.LatestBalanceOn(ctx, day)
	if errors.Is(err, ErrNotFound) {
		return store.SumTransactionsThrough(ctx, day)
	}
	if err != nil {
		return decimal.Zero, err
	}
	since, err := store.SumTransactionsBetween(ctx, latest.Date, day)
	if err != nil {
		return decimal.Zero, err
	}
	return latest.Amount.Add(since), nil
}

// SnapshotAsOf upserts the balance row for now's calendar day. The upsert is
// idempotent: running it twice with unchanged transactions writes the same
// amount. It must run inside the same transaction as whatever mutation made
// the balance stale.
//
// The amount is anchored on the latest snapshot strictly before today, never
// on today's own row. Anchoring on today would freeze the first amount
// written that day: later mutations sum transactions in the empty interval
// (today, today] and land back on the stale row.
func SnapshotAsOf(ctx context.Context, store TxStore, now time.Time) error {
	today := Day(now)
	amount, err := balanceFromPriorDay(ctx, store, today)
	if err != nil {
		return err
	}
	existing, err := store.BalanceByDate(ctx, today)
	if errors.Is(err, ErrNotFound) {
		_, err = store.InsertBalance(ctx, Balance{Date: today, Amount: amount})
		return err
	}
	if err != nil {
		return err
	}
	return store.UpdateBalanceAmount(ctx, existing.ID, amount)
}

// balanceFromPriorDay recomputes the balance through day from the latest
// snapshot of an earlier day plus every transaction after it through day,
// today's included.
func balanceFromPriorDay(ctx context.Context, store TxStore, day time.Time) (decimal.Decimal, error) {
	prior, err := store.LatestBalanceBefore(ctx, day)
	if errors.Is(err, ErrNotFound) {
		return store.SumTransactionsThrough(ctx, day)
	}
	if err != nil {
		return decimal.Zero, err
	}
	since, err := store.SumTransactionsBetween(ctx, prior.Date, day)
	if err != nil {
		return decimal.Zero, err
	}
	return prior.Amount.Add(since), nil
}
