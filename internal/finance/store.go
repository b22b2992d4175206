package finance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/platform/db"
)

// TxStore is the slice of finance persistence the recorder and reconciler
// need. Document repositories satisfy it inside their own transactions so a
// purchase or sale mutation, its transaction row, and the balance snapshot
// commit or roll back together.
type TxStore interface {
	TransactionByPurchase(ctx context.Context, purchaseID int64) (Transaction, error)
	TransactionBySale(ctx context.Context, saleID int64) (Transaction, error)
	InsertTransaction(ctx context.Context, txn Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, txn Transaction) error
	DeleteTransactionsByPurchase(ctx context.Context, purchaseID int64) error
	DeleteTransactionsBySale(ctx context.Context, saleID int64) error

	LatestBalanceOn(ctx context.Context, day time.Time) (Balance, error)
	LatestBalanceBefore(ctx context.Context, day time.Time) (Balance, error)
	BalanceByDate(ctx context.Context, day time.Time) (Balance, error)
	InsertBalance(ctx context.Context, b Balance) (int64, error)
	UpdateBalanceAmount(ctx context.Context, id int64, amount decimal.Decimal) error

	SumTransactionsThrough(ctx context.Context, day time.Time) (decimal.Decimal, error)
	SumTransactionsBetween(ctx context.Context, after, through time.Time) (decimal.Decimal, error)
}

// PgStore implements TxStore over a pgx querier, which may be a pool or an
// open transaction.
type PgStore struct {
	q db.Querier
}

// NewStore builds a PgStore over q.
func NewStore(q db.Querier) *PgStore {
	return &PgStore{q: q}
}

const transactionColumns = `id, transaction_date, transaction_type, description, amount, purchase_id, sale_id, notes`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		txn        Transaction
		amount     pgtype.Numeric
		purchaseID pgtype.Int8
		saleID     pgtype.Int8
	)
	err := row.Scan(&txn.ID, &txn.Date, &txn.Type, &txn.Description, &amount, &purchaseID, &saleID, &txn.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	if txn.Amount, err = db.Decimal(amount); err != nil {
		return Transaction{}, err
	}
	if purchaseID.Valid {
		txn.PurchaseID = purchaseID.Int64
	}
	if saleID.Valid {
		txn.SaleID = saleID.Int64
	}
	return txn, nil
}

func (s *PgStore) TransactionByPurchase(ctx context.Context, purchaseID int64) (Transaction, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE purchase_id = $1 ORDER BY id LIMIT 1`,
		purchaseID)
	return scanTransaction(row)
}

func (s *PgStore) TransactionBySale(ctx context.Context, saleID int64) (Transaction, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE sale_id = $1 ORDER BY id LIMIT 1`,
		saleID)
	return scanTransaction(row)
}

func (s *PgStore) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	var purchaseID, saleID pgtype.Int8
	if txn.PurchaseID != 0 {
		purchaseID = pgtype.Int8{Int64: txn.PurchaseID, Valid: true}
	}
	if txn.SaleID != 0 {
		saleID = pgtype.Int8{Int64: txn.SaleID, Valid: true}
	}
	var id int64
	err := s.q.QueryRow(ctx,
		`INSERT INTO transactions (transaction_date, transaction_type, description, amount, purchase_id, sale_id, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		txn.Date, string(txn.Type), txn.Description, db.Numeric(txn.Amount), purchaseID, saleID, txn.Notes).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDocumentOwned
		}
		return 0, err
	}
	return id, nil
}

func (s *PgStore) UpdateTransaction(ctx context.Context, txn Transaction) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE transactions SET transaction_date = $1, transaction_type = $2, description = $3, amount = $4, notes = $5 WHERE id = $6`,
		txn.Date, string(txn.Type), txn.Description, db.Numeric(txn.Amount), txn.Notes, txn.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) DeleteTransactionsByPurchase(ctx context.Context, purchaseID int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM transactions WHERE purchase_id = $1`, purchaseID)
	return err
}

func (s *PgStore) DeleteTransactionsBySale(ctx context.Context, saleID int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM transactions WHERE sale_id = $1`, saleID)
	return err
}

func scanBalance(row pgx.Row) (Balance, error) {
	var (
		b      Balance
		amount pgtype.Numeric
	)
	err := row.Scan(&b.ID, &b.Date, &amount, &b.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	if b.Amount, err = db.Decimal(amount); err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *PgStore) LatestBalanceOn(ctx context.Context, day time.Time) (Balance, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, balance_date, amount, notes FROM balances WHERE balance_date <= $1::date ORDER BY balance_date DESC LIMIT 1`,
		Day(day))
	return scanBalance(row)
}

func (s *PgStore) LatestBalanceBefore(ctx context.Context, day time.Time) (Balance, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, balance_date, amount, notes FROM balances WHERE balance_date < $1::date ORDER BY balance_date DESC LIMIT 1`,
		Day(day))
	return scanBalance(row)
}

func (s *PgStore) BalanceByDate(ctx context.Context, day time.Time) (Balance, error) {
	row := s.q.QueryRow(ctx,
		`SELECT id, balance_date, amount, notes FROM balances WHERE balance_date = $1::date`,
		Day(day))
	return scanBalance(row)
}

func (s *PgStore) InsertBalance(ctx context.Context, b Balance) (int64, error) {
	var id int64
	err := s.q.QueryRow(ctx,
		`INSERT INTO balances (balance_date, amount, notes) VALUES ($1::date, $2, $3) RETURNING id`,
		Day(b.Date), db.Numeric(b.Amount), b.Notes).Scan(&id)
	return id, err
}

func (s *PgStore) UpdateBalanceAmount(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := s.q.Exec(ctx, `UPDATE balances SET amount = $1 WHERE id = $2`, db.Numeric(amount), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) SumTransactionsThrough(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE transaction_date::date <= $1::date`,
		Day(day)).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return db.Decimal(sum)
}

func (s *PgStore) SumTransactionsBetween(ctx context.Context, after, through time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE transaction_date::date > $1::date AND transaction_date::date <= $2::date`,
		Day(after), Day(through)).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return db.Decimal(sum)
}
