package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/masterdata"
	"github.com/atelier-shop/atelier/internal/platform/db"
)

// TxRepository is everything a sale mutation touches inside one transaction:
// the document rows, product lookups and stock writes, and the financial
// ledger.
type TxRepository interface {
	InsertSale(ctx context.Context, s Sale) (int64, error)
	UpdateSale(ctx context.Context, s Sale) error
	DeleteSale(ctx context.Context, id int64) error
	SaleForUpdate(ctx context.Context, id int64) (Sale, error)
	InsertItem(ctx context.Context, saleID int64, it Item) (int64, error)
	UpdateItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, id int64) error

	GetProductForUpdate(ctx context.Context, id int64) (masterdata.Product, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int64) error

	finance.TxStore
}

type txRepo struct {
	q db.Querier
	*masterdata.Store
	*finance.PgStore
}

func newTxRepo(q db.Querier) *txRepo {
	return &txRepo{q: q, Store: masterdata.NewStore(q), PgStore: finance.NewStore(q)}
}

const saleColumns = `id, number, sale_date, total_amount, notes, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var (
		s     Sale
		total pgtype.Numeric
	)
	err := row.Scan(&s.ID, &s.Number, &s.Date, &total, &s.Notes, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	if s.TotalAmount, err = db.Decimal(total); err != nil {
		return Sale{}, err
	}
	return s, nil
}

func loadItems(ctx context.Context, q db.Querier, saleID int64) ([]Item, error) {
	rows, err := q.Query(ctx,
		`SELECT i.id, i.product_id, pr.name, i.quantity, i.unit_price
		 FROM sale_items i JOIN products pr ON pr.id = i.product_id
		 WHERE i.sale_id = $1 ORDER BY i.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it    Item
			price pgtype.Numeric
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = db.Decimal(price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO sales (number, sale_date, total_amount, notes) VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Number, s.Date, db.Numeric(s.TotalAmount), s.Notes).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateSale(ctx context.Context, s Sale) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sales SET sale_date = $1, total_amount = $2, notes = $3 WHERE id = $4`,
		s.Date, db.Numeric(s.TotalAmount), s.Notes, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteSale(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaleForUpdate locks the document row and loads its items.
func (r *txRepo) SaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
	s, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}
	s.Items, err = loadItems(ctx, r.q, id)
	return s, err
}

func (r *txRepo) InsertItem(ctx context.Context, saleID int64, it Item) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO sale_items (sale_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id`,
		saleID, it.ProductID, it.Quantity, db.Numeric(it.UnitPrice)).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateItem(ctx context.Context, it Item) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sale_items SET quantity = $1, unit_price = $2 WHERE id = $3`,
		it.Quantity, db.Numeric(it.UnitPrice), it.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeleteItem(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM sale_items WHERE id = $1`, id)
	return err
}

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepo(tx))
	})
}

// GetSale fetches a sale with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	s, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}
	s.Items, err = loadItems(ctx, r.pool, id)
	return s, err
}

// ListFilters narrows sale listings.
type ListFilters struct {
	Limit  int
	Offset int
}

// ListSales returns sales ordered by date descending, without items.
func (r *Repository) ListSales(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	sql := `SELECT ` + saleColumns + ` FROM sales ORDER BY sale_date DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, sql, limit, filters.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
