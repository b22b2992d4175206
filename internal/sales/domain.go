// Package sales manages sale documents: products sold over the counter,
// itemized per product. Saving a sale decreases stock through the inventory
// ledger, mirrors the document into the financial ledger and refreshes the
// daily balance snapshot, all in one database transaction.
package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/inventory"
	"github.com/atelier-shop/atelier/internal/shared"
)

// Sale is a document recording products sold in one visit.
type Sale struct {
	ID          int64
	Number      string
	Date        time.Time
	TotalAmount decimal.Decimal
	Notes       string
	Items       []Item
	CreatedAt   time.Time
}

// Item is one sold product line. UnitPrice is snapshotted from the product's
// selling price when the document is saved.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// Subtotal returns quantity times unit price.
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
}

// Quantities collects the document's per-product quantities for stock
// reconciliation.
func (s Sale) Quantities() inventory.Quantities {
	q := make(inventory.Quantities, len(s.Items))
	for _, it := range s.Items {
		q[it.ProductID] = it.Quantity
	}
	return q
}

var (
	// ErrNotFound indicates a missing sale.
	ErrNotFound = fmt.Errorf("sales: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("sales: %w", shared.ErrValidation)
)
