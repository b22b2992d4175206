package finance

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/shared"
)

// memStore is an in-memory TxRepository used across the package tests.
type memStore struct {
	nextTxnID int64
	nextBalID int64
	txns      []Transaction
	balances  []Balance
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) TransactionByPurchase(_ context.Context, purchaseID int64) (Transaction, error) {
	for _, t := range m.txns {
		if t.PurchaseID == purchaseID {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (m *memStore) TransactionBySale(_ context.Context, saleID int64) (Transaction, error) {
	for _, t := range m.txns {
		if t.SaleID == saleID {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (m *memStore) InsertTransaction(_ context.Context, txn Transaction) (int64, error) {
	for _, t := range m.txns {
		if txn.PurchaseID != 0 && t.PurchaseID == txn.PurchaseID {
			return 0, ErrDocumentOwned
		}
		if txn.SaleID != 0 && t.SaleID == txn.SaleID {
			return 0, ErrDocumentOwned
		}
	}
	m.nextTxnID++
	txn.ID = m.nextTxnID
	m.txns = append(m.txns, txn)
	return txn.ID, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, txn Transaction) error {
	for i, t := range m.txns {
		if t.ID == txn.ID {
			m.txns[i] = txn
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) DeleteTransactionsByPurchase(_ context.Context, purchaseID int64) error {
	kept := m.txns[:0]
	for _, t := range m.txns {
		if t.PurchaseID != purchaseID {
			kept = append(kept, t)
		}
	}
	m.txns = kept
	return nil
}

func (m *memStore) DeleteTransactionsBySale(_ context.Context, saleID int64) error {
	kept := m.txns[:0]
	for _, t := range m.txns {
		if t.SaleID != saleID {
			kept = append(kept, t)
		}
	}
	m.txns = kept
	return nil
}

func (m *memStore) LatestBalanceOn(_ context.Context, day time.Time) (Balance, error) {
	day = Day(day)
	var (
		found  bool
		latest Balance
	)
	for _, b := range m.balances {
		if b.Date.After(day) {
			continue
		}
		if !found || b.Date.After(latest.Date) {
			latest = b
			found = true
		}
	}
	if !found {
		return Balance{}, ErrNotFound
	}
	return latest, nil
}

func (m *memStore) LatestBalanceBefore(_ context.Context, day time.Time) (Balance, error) {
	day = Day(day)
	var (
		found  bool
		latest Balance
	)
	for _, b := range m.balances {
		if !b.Date.Before(day) {
			continue
		}
		if !found || b.Date.After(latest.Date) {
			latest = b
			found = true
		}
	}
	if !found {
		return Balance{}, ErrNotFound
	}
	return latest, nil
}

func (m *memStore) BalanceByDate(_ context.Context, day time.Time) (Balance, error) {
	day = Day(day)
	for _, b := range m.balances {
		if b.Date.Equal(day) {
			return b, nil
		}
	}
	return Balance{}, ErrNotFound
}

func (m *memStore) InsertBalance(_ context.Context, b Balance) (int64, error) {
	m.nextBalID++
	b.ID = m.nextBalID
	b.Date = Day(b.Date)
	m.balances = append(m.balances, b)
	return b.ID, nil
}

func (m *memStore) UpdateBalanceAmount(_ context.Context, id int64, amount decimal.Decimal) error {
	for i, b := range m.balances {
		if b.ID == id {
			m.balances[i].Amount = amount
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) SumTransactionsThrough(_ context.Context, day time.Time) (decimal.Decimal, error) {
	day = Day(day)
	sum := decimal.Zero
	for _, t := range m.txns {
		if !Day(t.Date).After(day) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) SumTransactionsBetween(_ context.Context, after, through time.Time) (decimal.Decimal, error) {
	after, through = Day(after), Day(through)
	sum := decimal.Zero
	for _, t := range m.txns {
		d := Day(t.Date)
		if d.After(after) && !d.After(through) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) GetTransaction(_ context.Context, id int64) (Transaction, error) {
	for _, t := range m.txns {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (m *memStore) DeleteTransaction(_ context.Context, id int64) error {
	for i, t := range m.txns {
		if t.ID == id {
			m.txns = append(m.txns[:i], m.txns[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// memRepo adapts memStore to the service's RepositoryPort.
type memRepo struct {
	store *memStore
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r.store)
}

func (r *memRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return r.store.GetTransaction(ctx, id)
}

func (r *memRepo) ListTransactions(_ context.Context, filters ListFilters) ([]Transaction, int, error) {
	var matched []Transaction
	for _, t := range r.store.txns {
		if filters.Type != "" && t.Type != filters.Type {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	if filters.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filters.Offset:]
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func (r *memRepo) ListBalances(_ context.Context, limit, offset int) ([]Balance, int, error) {
	balances := append([]Balance(nil), r.store.balances...)
	sort.Slice(balances, func(i, j int) bool { return balances[i].Date.After(balances[j].Date) })
	total := len(balances)
	if offset >= len(balances) {
		return nil, total, nil
	}
	balances = balances[offset:]
	if limit > 0 && limit < len(balances) {
		balances = balances[:limit]
	}
	return balances, total, nil
}

func (r *memRepo) CurrentBalance(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	return CurrentBalance(ctx, r.store, asOf)
}

type memAudit struct {
	logs []shared.AuditLog
}

func (a *memAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type memHooks struct {
	changed int
}

func (h *memHooks) LedgerChanged(context.Context) {
	h.changed++
}
