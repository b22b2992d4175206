package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stockRecorder struct {
	order  []int64
	deltas map[int64]int64
}

func newStockRecorder() *stockRecorder {
	return &stockRecorder{deltas: make(map[int64]int64)}
}

func (r *stockRecorder) AdjustProductStock(_ context.Context, productID int64, delta int64) error {
	r.order = append(r.order, productID)
	r.deltas[productID] += delta
	return nil
}

func TestDiffChangedAddedRemoved(t *testing.T) {
	prev := Quantities{1: 10, 2: 3, 3: 7}
	next := Quantities{1: 6, 2: 3, 4: 2}

	deltas := Diff(prev, next)

	require.Equal(t, Quantities{1: -4, 3: -7, 4: 2}, deltas)
}

func TestDiffFromEmpty(t *testing.T) {
	deltas := Diff(nil, Quantities{5: 4})
	require.Equal(t, Quantities{5: 4}, deltas)
}

func TestDiffToEmptyReversesEverything(t *testing.T) {
	deltas := Diff(Quantities{5: 4, 6: 1}, nil)
	require.Equal(t, Quantities{5: -4, 6: -1}, deltas)
}

func TestApplySignsByDirection(t *testing.T) {
	ctx := context.Background()
	deltas := Quantities{1: 5, 2: -3}

	in := newStockRecorder()
	require.NoError(t, Apply(ctx, in, deltas, Inbound))
	require.Equal(t, int64(5), in.deltas[1])
	require.Equal(t, int64(-3), in.deltas[2])

	out := newStockRecorder()
	require.NoError(t, Apply(ctx, out, deltas, Outbound))
	require.Equal(t, int64(-5), out.deltas[1])
	require.Equal(t, int64(3), out.deltas[2])
}

func TestApplyVisitsProductsInOrder(t *testing.T) {
	rec := newStockRecorder()
	deltas := Quantities{9: 1, 1: 1, 4: 1}

	require.NoError(t, Apply(context.Background(), rec, deltas, Inbound))
	require.Equal(t, []int64{1, 4, 9}, rec.order)
}

func TestEditScenarioNetsCorrectly(t *testing.T) {
	// A purchase item created with qty 5 then edited to qty 3 must net +3.
	rec := newStockRecorder()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, rec, Diff(nil, Quantities{7: 5}), Inbound))
	require.NoError(t, Apply(ctx, rec, Diff(Quantities{7: 5}, Quantities{7: 3}), Inbound))

	require.Equal(t, int64(3), rec.deltas[7])
}
