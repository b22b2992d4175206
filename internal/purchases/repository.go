package purchases

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/masterdata"
	"github.com/atelier-shop/atelier/internal/platform/db"
)

// TxRepository is everything a purchase mutation touches inside one
// transaction: the document rows, product lookups and stock writes, and the
// financial ledger. One implementation runs over a single pgx.Tx so the
// whole unit commits or rolls back together.
type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	UpdatePurchase(ctx context.Context, p Purchase) error
	DeletePurchase(ctx context.Context, id int64) error
	PurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	InsertItem(ctx context.Context, purchaseID int64, it Item) (int64, error)
	UpdateItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, id int64) error

	GetArtist(ctx context.Context, id int64) (masterdata.Artist, error)
	GetProductForUpdate(ctx context.Context, id int64) (masterdata.Product, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int64) error

	finance.TxStore
}

// txRepo satisfies TxRepository over one open transaction by combining the
// purchase rows with the masterdata and finance stores on the same tx.
type txRepo struct {
	q db.Querier
	*masterdata.Store
	*finance.PgStore
}

func newTxRepo(q db.Querier) *txRepo {
	return &txRepo{q: q, Store: masterdata.NewStore(q), PgStore: finance.NewStore(q)}
}

const purchaseColumns = `p.id, p.number, p.artist_id, a.name, p.purchase_date, p.total_amount, p.notes, p.created_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p     Purchase
		total pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.Number, &p.ArtistID, &p.ArtistName, &p.Date, &total, &p.Notes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	if p.TotalAmount, err = db.Decimal(total); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

func loadItems(ctx context.Context, q db.Querier, purchaseID int64) ([]Item, error) {
	rows, err := q.Query(ctx,
		`SELECT i.id, i.product_id, pr.name, i.quantity, i.unit_price
		 FROM purchase_items i JOIN products pr ON pr.id = i.product_id
		 WHERE i.purchase_id = $1 ORDER BY i.id`, purchaseID)
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

func (r *txRepo) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO purchases (number, artist_id, purchase_date, total_amount, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Number, p.ArtistID, p.Date, db.Numeric(p.TotalAmount), p.Notes).Scan(&id)
	return id, err
}

func (r *txRepo) UpdatePurchase(ctx context.Context, p Purchase) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE purchases SET artist_id = $1, purchase_date = $2, total_amount = $3, notes = $4 WHERE id = $5`,
		p.ArtistID, p.Date, db.Numeric(p.TotalAmount), p.Notes, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepo) DeletePurchase(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurchaseForUpdate locks the document row and loads its items.
func (r *txRepo) PurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases p JOIN artists a ON a.id = p.artist_id
		 WHERE p.id = $1 FOR UPDATE OF p`, id)
	p, err := scanPurchase(row)
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = loadItems(ctx, r.q, id)
	return p, err
}

func (r *txRepo) InsertItem(ctx context.Context, purchaseID int64, it Item) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_price)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		purchaseID, it.ProductID, it.Quantity, db.Numeric(it.UnitPrice)).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateItem(ctx context.Context, it Item) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE purchase_items SET quantity = $1, unit_price = $2 WHERE id = $3`,
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
	_, err := r.q.Exec(ctx, `DELETE FROM purchase_items WHERE id = $1`, id)
	return err
}

// Repository provides PostgreSQL backed persistence for purchases.
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

// GetPurchase fetches a purchase with its items.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases p JOIN artists a ON a.id = p.artist_id WHERE p.id = $1`, id)
	p, err := scanPurchase(row)
	if err != nil {
		return Purchase{}, err
	}
	p.Items, err = loadItems(ctx, r.pool, id)
	return p, err
}

// ListFilters narrows purchase listings.
type ListFilters struct {
	ArtistID int64
	Limit    int
	Offset   int
}

// ListPurchases returns purchases ordered by date descending, without items.
func (r *Repository) ListPurchases(ctx context.Context, filters ListFilters) ([]Purchase, int, error) {
	where := ``
	args := []any{}
	if filters.ArtistID != 0 {
		where = ` WHERE p.artist_id = $1`
		args = append(args, filters.ArtistID)
	}
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases p`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	argNum := len(args) + 1
	sql := `SELECT ` + purchaseColumns + ` FROM purchases p JOIN artists a ON a.id = p.artist_id` + where +
		` ORDER BY p.purchase_date DESC, p.id DESC LIMIT $` + strconv.Itoa(argNum) + ` OFFSET $` + strconv.Itoa(argNum+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}
