package sales

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/masterdata"
)

// memRepo implements RepositoryPort and TxRepository in memory.
type memRepo struct {
	products map[int64]masterdata.Product

	nextSaleID int64
	nextItemID int64
	sales      map[int64]*Sale

	nextTxnID int64
	nextBalID int64
	txns      []finance.Transaction
	balances  []finance.Balance
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[int64]masterdata.Product{}, sales: map[int64]*Sale{}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memRepo) GetSale(_ context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	// Copy the items so callers see a stable row snapshot, as a fresh
	// database read would.
	out := *s
	out.Items = append([]Item(nil), s.Items...)
	return out, nil
}

func (r *memRepo) ListSales(_ context.Context, _ ListFilters) ([]Sale, int, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memRepo) InsertSale(_ context.Context, s Sale) (int64, error) {
	r.nextSaleID++
	s.ID = r.nextSaleID
	s.Items = nil
	r.sales[s.ID] = &s
	return s.ID, nil
}

func (r *memRepo) UpdateSale(_ context.Context, s Sale) error {
	stored, ok := r.sales[s.ID]
	if !ok {
		return ErrNotFound
	}
	items := stored.Items
	*stored = s
	stored.Items = items
	return nil
}

func (r *memRepo) DeleteSale(_ context.Context, id int64) error {
	if _, ok := r.sales[id]; !ok {
		return ErrNotFound
	}
	delete(r.sales, id)
	return nil
}

func (r *memRepo) SaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return r.GetSale(ctx, id)
}

func (r *memRepo) InsertItem(_ context.Context, saleID int64, it Item) (int64, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return 0, ErrNotFound
	}
	r.nextItemID++
	it.ID = r.nextItemID
	s.Items = append(s.Items, it)
	return it.ID, nil
}

func (r *memRepo) UpdateItem(_ context.Context, it Item) error {
	for _, s := range r.sales {
		for i := range s.Items {
			if s.Items[i].ID == it.ID {
				s.Items[i] = it
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memRepo) DeleteItem(_ context.Context, id int64) error {
	for _, s := range r.sales {
		for i := range s.Items {
			if s.Items[i].ID == id {
				s.Items = append(s.Items[:i], s.Items[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (r *memRepo) GetProductForUpdate(_ context.Context, id int64) (masterdata.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return masterdata.Product{}, masterdata.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) AdjustProductStock(_ context.Context, productID int64, delta int64) error {
	p, ok := r.products[productID]
	if !ok {
		return masterdata.ErrNotFound
	}
	p.StockQuantity += delta
	r.products[productID] = p
	return nil
}

func (r *memRepo) TransactionByPurchase(_ context.Context, purchaseID int64) (finance.Transaction, error) {
	for _, t := range r.txns {
		if t.PurchaseID == purchaseID {
			return t, nil
		}
	}
	return finance.Transaction{}, finance.ErrNotFound
}

func (r *memRepo) TransactionBySale(_ context.Context, saleID int64) (finance.Transaction, error) {
	for _, t := range r.txns {
		if t.SaleID == saleID {
			return t, nil
		}
	}
	return finance.Transaction{}, finance.ErrNotFound
}

func (r *memRepo) InsertTransaction(_ context.Context, txn finance.Transaction) (int64, error) {
	r.nextTxnID++
	txn.ID = r.nextTxnID
	r.txns = append(r.txns, txn)
	return txn.ID, nil
}

func (r *memRepo) UpdateTransaction(_ context.Context, txn finance.Transaction) error {
	for i, t := range r.txns {
		if t.ID == txn.ID {
			r.txns[i] = txn
			return nil
		}
	}
	return finance.ErrNotFound
}

func (r *memRepo) DeleteTransactionsByPurchase(_ context.Context, purchaseID int64) error {
	kept := r.txns[:0]
	for _, t := range r.txns {
		if t.PurchaseID != purchaseID {
			kept = append(kept, t)
		}
	}
	r.txns = kept
	return nil
}

func (r *memRepo) DeleteTransactionsBySale(_ context.Context, saleID int64) error {
	kept := r.txns[:0]
	for _, t := range r.txns {
		if t.SaleID != saleID {
			kept = append(kept, t)
		}
	}
	r.txns = kept
	return nil
}

func (r *memRepo) LatestBalanceOn(_ context.Context, day time.Time) (finance.Balance, error) {
	day = finance.Day(day)
	var (
		found  bool
		latest finance.Balance
	)
	for _, b := range r.balances {
		if b.Date.After(day) {
			continue
		}
		if !found || b.Date.After(latest.Date) {
			latest = b
			found = true
		}
	}
	if !found {
		return finance.Balance{}, finance.ErrNotFound
	}
	return latest, nil
}

func (r *memRepo) LatestBalanceBefore(_ context.Context, day time.Time) (finance.Balance, error) {
	day = finance.Day(day)
	var (
		found  bool
		latest finance.Balance
	)
	for _, b := range r.balances {
		if !b.Date.Before(day) {
			continue
		}
		if !found || b.Date.After(latest.Date) {
			latest = b
			found = true
		}
	}
	if !found {
		return finance.Balance{}, finance.ErrNotFound
	}
	return latest, nil
}

func (r *memRepo) BalanceByDate(_ context.Context, day time.Time) (finance.Balance, error) {
	day = finance.Day(day)
	for _, b := range r.balances {
		if b.Date.Equal(day) {
			return b, nil
		}
	}
	return finance.Balance{}, finance.ErrNotFound
}

func (r *memRepo) InsertBalance(_ context.Context, b finance.Balance) (int64, error) {
	r.nextBalID++
	b.ID = r.nextBalID
	b.Date = finance.Day(b.Date)
	r.balances = append(r.balances, b)
	return b.ID, nil
}

func (r *memRepo) UpdateBalanceAmount(_ context.Context, id int64, amount decimal.Decimal) error {
	for i, b := range r.balances {
		if b.ID == id {
			r.balances[i].Amount = amount
			return nil
		}
	}
	return finance.ErrNotFound
}

func (r *memRepo) SumTransactionsThrough(_ context.Context, day time.Time) (decimal.Decimal, error) {
	day = finance.Day(day)
	sum := decimal.Zero
	for _, t := range r.txns {
		if !finance.Day(t.Date).After(day) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (r *memRepo) SumTransactionsBetween(_ context.Context, after, through time.Time) (decimal.Decimal, error) {
	after, through = finance.Day(after), finance.Day(through)
	sum := decimal.Zero
	for _, t := range r.txns {
		d := finance.Day(t.Date)
		if d.After(after) && !d.After(through) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

var testClock = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	repo.products[10] = masterdata.Product{
		ID: 10, ArtistID: 1, Name: "Glazed bowl",
		PurchasePrice: decimal.NewFromInt(4), SellingPrice: decimal.NewFromInt(10),
		StockQuantity: 8,
	}
	repo.products[11] = masterdata.Product{
		ID: 11, ArtistID: 1, Name: "Stone vase",
		PurchasePrice: decimal.NewFromInt(7), SellingPrice: decimal.NewFromInt(15),
		StockQuantity: 2,
	}
	svc := NewService(repo, nil, nil, nil, ServiceConfig{Clock: testClock})
	return svc, repo
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, SaleInput{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, SaleInput{Items: []LineInput{{ProductID: 10, Quantity: -1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, SaleInput{Items: []LineInput{
		{ProductID: 10, Quantity: 1}, {ProductID: 10, Quantity: 1},
	}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateSaleMovesStockAndLedger(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, SaleInput{
		Date:  time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC),
		Items: []LineInput{{ProductID: 10, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "20", sale.TotalAmount.String())
	require.Equal(t, "10", sale.Items[0].UnitPrice.String(), "price snapshotted from selling price")
	require.Contains(t, sale.Number, "SAL-")

	require.Equal(t, int64(6), repo.products[10].StockQuantity)

	txn, err := repo.TransactionBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, finance.TypeSale, txn.Type)
	require.Equal(t, "20", txn.Amount.String())
	require.Equal(t, "Sale on 2026-03-05", txn.Description)

	b, err := repo.BalanceByDate(ctx, testClock())
	require.NoError(t, err)
	require.Equal(t, "20", b.Amount.String())
}

func TestOversellingGoesNegative(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, SaleInput{Items: []LineInput{{ProductID: 11, Quantity: 5}}})
	require.NoError(t, err)
	require.Equal(t, int64(-3), repo.products[11].StockQuantity)
}

func TestUpdateNetsStockAndKeepsTransactionID(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, SaleInput{Items: []LineInput{{ProductID: 10, Quantity: 5}}})
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.products[10].StockQuantity)
	first, err := repo.TransactionBySale(ctx, sale.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, sale.ID, SaleInput{Items: []LineInput{{ProductID: 10, Quantity: 3}}})
	require.NoError(t, err)
	require.Equal(t, "30", updated.TotalAmount.String())

	// 8 - 5 then +2 back
	require.Equal(t, int64(5), repo.products[10].StockQuantity)

	second, err := repo.TransactionBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.Date.Equal(first.Date))
	require.Equal(t, "30", second.Amount.String())
}

func TestUpdateSwapsProducts(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, SaleInput{Items: []LineInput{{ProductID: 10, Quantity: 3}}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, sale.ID, SaleInput{Items: []LineInput{{ProductID: 11, Quantity: 1}}})
	require.NoError(t, err)

	require.Equal(t, int64(8), repo.products[10].StockQuantity, "removed line fully returned")
	require.Equal(t, int64(1), repo.products[11].StockQuantity)
}

func TestDeleteReversesEverything(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	sale, err := svc.Create(ctx, SaleInput{Items: []LineInput{{ProductID: 10, Quantity: 2}}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sale.ID))

	require.Equal(t, int64(8), repo.products[10].StockQuantity)
	_, err = repo.TransactionBySale(ctx, sale.ID)
	require.ErrorIs(t, err, finance.ErrNotFound)
	_, err = repo.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrNotFound)

	b, err := repo.BalanceByDate(ctx, testClock())
	require.NoError(t, err)
	require.True(t, b.Amount.IsZero())
}
