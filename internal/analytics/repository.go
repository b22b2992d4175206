package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/platform/db"
)

// Repository runs the dashboard aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesTotalSince sums sale totals with a date on or after since.
func (r *Repository) SalesTotalSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE sale_date >= $1`, since).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return db.Decimal(sum)
}

// TopProducts returns the best sellers by quantity since the given time.
func (r *Repository) TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, SUM(i.quantity) AS total_sold, SUM(i.quantity * i.unit_price) AS revenue
		 FROM sale_items i
		 JOIN sales s ON s.id = i.sale_id
		 JOIN products p ON p.id = i.product_id
		 WHERE s.sale_date >= $1
		 GROUP BY p.id, p.name
		 ORDER BY total_sold DESC, p.name
		 LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var (
			tp      TopProduct
			revenue pgtype.Numeric
		)
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.TotalSold, &revenue); err != nil {
			return nil, err
		}
		if tp.Revenue, err = db.Decimal(revenue); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// LowStock lists products with stock under the threshold, lowest first.
func (r *Repository) LowStock(ctx context.Context, threshold int64) ([]LowStockProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, a.name, p.stock_quantity
		 FROM products p JOIN artists a ON a.id = p.artist_id
		 WHERE p.stock_quantity < $1
		 ORDER BY p.stock_quantity, p.name`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LowStockProduct
	for rows.Next() {
		var ls LowStockProduct
		if err := rows.Scan(&ls.ProductID, &ls.Name, &ls.ArtistName, &ls.StockQuantity); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// ProfitMargin returns all-time sale totals minus all-time purchase totals.
func (r *Repository) ProfitMargin(ctx context.Context) (decimal.Decimal, error) {
	var sales, purchases pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(total_amount), 0) FROM sales),
		   (SELECT COALESCE(SUM(total_amount), 0) FROM purchases)`).Scan(&sales, &purchases)
	if err != nil {
		return decimal.Zero, err
	}
	s, err := db.Decimal(sales)
	if err != nil {
		return decimal.Zero, err
	}
	p, err := db.Decimal(purchases)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Sub(p), nil
}

// BalanceHistory returns snapshots on or after since, oldest first.
func (r *Repository) BalanceHistory(ctx context.Context, since time.Time) ([]BalancePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT balance_date, amount FROM balances WHERE balance_date >= $1::date ORDER BY balance_date`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalancePoint
	for rows.Next() {
		var (
			date   time.Time
			amount pgtype.Numeric
		)
		if err := rows.Scan(&date, &amount); err != nil {
			return nil, err
		}
		point := BalancePoint{Date: date.UTC().Format("2006-01-02")}
		if point.Amount, err = db.Decimal(amount); err != nil {
			return nil, err
		}
		out = append(out, point)
	}
	return out, rows.Err()
}
