package masterdata

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-shop/atelier/internal/platform/db"
)

// Store exposes the masterdata reads and stock writes the document packages
// need inside their transactions. It runs over a pool or an open pgx.Tx so
// stock adjustments commit together with the document that caused them.
type Store struct {
	q db.Querier
}

// NewStore builds a Store over q.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

const productColumns = `p.id, p.artist_id, a.name, p.name, p.description, p.purchase_price, p.selling_price, p.stock_quantity, p.created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		purchase pgtype.Numeric
		selling  pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.ArtistID, &p.ArtistName, &p.Name, &p.Description, &purchase, &selling, &p.StockQuantity, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	if p.PurchasePrice, err = db.Decimal(purchase); err != nil {
		return Product{}, err
	}
	if p.SellingPrice, err = db.Decimal(selling); err != nil {
		return Product{}, err
	}
	return p, nil
}

// GetArtist fetches an artist by id.
func (s *Store) GetArtist(ctx context.Context, id int64) (Artist, error) {
	var a Artist
	err := s.q.QueryRow(ctx,
		`SELECT id, name, contact_info, notes, created_at FROM artists WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.ContactInfo, &a.Notes, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Artist{}, ErrNotFound
	}
	return a, err
}

// GetProduct fetches a product with its artist name.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p JOIN artists a ON a.id = p.artist_id WHERE p.id = $1`, id)
	return scanProduct(row)
}

// GetProductForUpdate locks the product row for the rest of the transaction.
func (s *Store) GetProductForUpdate(ctx context.Context, id int64) (Product, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p JOIN artists a ON a.id = p.artist_id WHERE p.id = $1 FOR UPDATE OF p`, id)
	return scanProduct(row)
}

// AdjustProductStock applies a signed delta to a product's stock. Stock may
// go negative; the dashboard surfaces low stock instead of blocking sales.
func (s *Store) AdjustProductStock(ctx context.Context, productID int64, delta int64) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2`, delta, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Repository provides PostgreSQL backed persistence for artists and products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) store() *Store {
	return NewStore(r.pool)
}

// CreateArtist inserts an artist.
func (r *Repository) CreateArtist(ctx context.Context, a Artist) (Artist, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO artists (name, contact_info, notes) VALUES ($1, $2, $3) RETURNING id, created_at`,
		a.Name, a.ContactInfo, a.Notes).Scan(&a.ID, &a.CreatedAt)
	return a, err
}

// GetArtist fetches an artist.
func (r *Repository) GetArtist(ctx context.Context, id int64) (Artist, error) {
	return r.store().GetArtist(ctx, id)
}

// ArtistFilters narrows artist listings.
type ArtistFilters struct {
	Search string
	Limit  int
	Offset int
}

// ListArtists returns artists ordered by name.
func (r *Repository) ListArtists(ctx context.Context, filters ArtistFilters) ([]Artist, int, error) {
	where := ``
	args := []any{}
	if filters.Search != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, filters.Search)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM artists`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	argNum := len(args) + 1
	sql := `SELECT id, name, contact_info, notes, created_at FROM artists` + where +
		` ORDER BY name LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.ContactInfo, &a.Notes, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return artists, total, nil
}

// UpdateArtist rewrites an artist's fields.
func (r *Repository) UpdateArtist(ctx context.Context, a Artist) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE artists SET name = $1, contact_info = $2, notes = $3 WHERE id = $4`,
		a.Name, a.ContactInfo, a.Notes, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteArtist removes an artist. Products, purchases and sales rows cascade
// at the database level.
func (r *Repository) DeleteArtist(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateProduct inserts a product with its starting stock.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (artist_id, name, description, purchase_price, selling_price, stock_quantity)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		p.ArtistID, p.Name, p.Description, db.Numeric(p.PurchasePrice), db.Numeric(p.SellingPrice), p.StockQuantity).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	return r.GetProduct(ctx, p.ID)
}

// GetProduct fetches a product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return r.store().GetProduct(ctx, id)
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	ArtistID   int64
	Search     string
	StockBelow int64
	Limit      int
	Offset     int
}

func (f ProductFilters) where() (string, []any) {
	where := ``
	args := []any{}
	and := func(cond string) {
		if where == "" {
			where = ` WHERE ` + cond
			return
		}
		where += ` AND ` + cond
	}
	if f.ArtistID != 0 {
		args = append(args, f.ArtistID)
		and(`p.artist_id = $` + itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, f.Search)
		and(`p.name ILIKE '%' || $` + itoa(len(args)) + ` || '%'`)
	}
	if f.StockBelow > 0 {
		args = append(args, f.StockBelow)
		and(`p.stock_quantity < $` + itoa(len(args)))
	}
	return where, args
}

// ListProducts returns products ordered by name.
func (r *Repository) ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error) {
	where, args := filters.where()
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products p JOIN artists a ON a.id = p.artist_id`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	argNum := len(args) + 1
	sql := `SELECT ` + productColumns + ` FROM products p JOIN artists a ON a.id = p.artist_id` + where +
		` ORDER BY p.name LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// UpdateProduct rewrites a product's fields. Stock is not touched here; only
// the inventory ledger moves it.
func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET artist_id = $1, name = $2, description = $3, purchase_price = $4, selling_price = $5 WHERE id = $6`,
		p.ArtistID, p.Name, p.Description, db.Numeric(p.PurchasePrice), db.Numeric(p.SellingPrice), p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product; document line items cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
