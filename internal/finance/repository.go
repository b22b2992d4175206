package finance

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for manual transactions
// and balance listings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	TxStore
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

// GetTransaction fetches a transaction by id.
func (s *PgStore) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := s.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// DeleteTransaction removes a transaction by id.
func (s *PgStore) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilters narrows transaction listings.
type ListFilters struct {
	Type   TransactionType
	Limit  int
	Offset int
}

// GetTransaction fetches a transaction outside a transaction scope.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return NewStore(r.pool).GetTransaction(ctx, id)
}

// ListTransactions returns transactions ordered by date descending.
func (r *Repository) ListTransactions(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	countSQL := `SELECT COUNT(*) FROM transactions`
	args := []any{}
	if filters.Type != "" {
		countSQL += ` WHERE transaction_type = $1`
		args = append(args, string(filters.Type))
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + transactionColumns + ` FROM transactions`
	args = args[:0]
	argNum := 1
	if filters.Type != "" {
		dataSQL += ` WHERE transaction_type = $1`
		args = append(args, string(filters.Type))
		argNum++
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	dataSQL += ` ORDER BY transaction_date DESC, id DESC LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListBalances returns stored snapshots ordered by date descending.
func (r *Repository) ListBalances(ctx context.Context, limit, offset int) ([]Balance, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM balances`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, balance_date, amount, notes FROM balances ORDER BY balance_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var (
			b      Balance
			amount pgtype.Numeric
		)
		if err := rows.Scan(&b.ID, &b.Date, &amount, &b.Notes); err != nil {
			return nil, 0, err
		}
		if b.Amount, err = db.Decimal(amount); err != nil {
			return nil, 0, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

// CurrentBalance recomputes the balance as of the given time using pool reads.
func (r *Repository) CurrentBalance(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	return CurrentBalance(ctx, NewStore(r.pool), asOf)
}

// itoa converts int to string for dynamic query building.
func itoa(i int) string {
	return strconv.Itoa(i)
}
