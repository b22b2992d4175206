// Package analytics assembles the dashboard aggregates over sales, stock
// and the balance history, behind a versioned Redis cache.
package analytics

import "github.com/shopspring/decimal"

// TopProduct is one row of the best-seller list.
type TopProduct struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	TotalSold int64           `json:"total_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// LowStockProduct is a product whose stock dropped under the threshold.
type LowStockProduct struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	ArtistName    string `json:"artist_name"`
	StockQuantity int64  `json:"stock_quantity"`
}

// BalancePoint is one day of the balance history series.
type BalancePoint struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary carries every dashboard aggregate in one payload.
type Summary struct {
	SalesLast7Days  decimal.Decimal   `json:"sales_last_7_days"`
	SalesLast30Days decimal.Decimal   `json:"sales_last_30_days"`
	TopProducts     []TopProduct      `json:"top_products"`
	LowStock        []LowStockProduct `json:"low_stock"`
	ProfitMargin    decimal.Decimal   `json:"profit_margin"`
	BalanceHistory  []BalancePoint    `json:"balance_history"`
}
