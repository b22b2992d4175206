// Package inventory keeps product stock counts consistent with the line
// items of purchase and sale documents.
package inventory

import (
	"context"
	"sort"
)

// Direction states which way a document moves stock. Purchases bring stock
// in, sales take stock out.
type Direction int

const (
	Inbound  Direction = 1
	Outbound Direction = -1
)

// ProductStore applies stock adjustments within the caller's transaction.
type ProductStore interface {
	AdjustProductStock(ctx context.Context, productID int64, delta int64) error
}

// Quantities maps product id to line-item quantity for one document.
type Quantities map[int64]int64

// Diff returns per-product quantity deltas moving a document from prev to
// next. Three cases are covered: products present in both maps contribute
// next-prev, newly added products contribute their full quantity, and
// products missing from next reverse their previous contribution. Products
// whose quantity is unchanged are omitted.
func Diff(prev, next Quantities) Quantities {
	deltas := make(Quantities, len(next))
	for id, qty := range next {
		if d := qty - prev[id]; d != 0 {
			deltas[id] = d
		}
	}
	for id, qty := range prev {
		if _, ok := next[id]; !ok && qty != 0 {
			deltas[id] = -qty
		}
	}
	return deltas
}

// Apply writes the deltas to the store, signed by direction. Products are
// visited in id order so concurrent documents lock rows consistently.
// Stock is never clamped at zero; negative stock is allowed.
func Apply(ctx context.Context, store ProductStore, deltas Quantities, dir Direction) error {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		delta := deltas[id] * int64(dir)
		if delta == 0 {
			continue
		}
		if err := store.AdjustProductStock(ctx, id, delta); err != nil {
			return err
		}
	}
	return nil
}
