// Package purchases manages purchase documents: stock bought from an artist,
// itemized per product. Saving a purchase moves stock through the inventory
// ledger, mirrors the document into the financial ledger and refreshes the
// daily balance snapshot, all in one database transaction.
package purchases

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/inventory"
	"github.com/atelier-shop/atelier/internal/shared"
)

// Purchase is a document recording stock bought from one artist.
type Purchase struct {
	ID          int64
	Number      string
	ArtistID    int64
	ArtistName  string
	Date        time.Time
	TotalAmount decimal.Decimal
	Notes       string
	Items       []Item
	CreatedAt   time.Time
}

// Item is one purchased product line. UnitPrice is snapshotted from the
// product's purchase price when the document is saved.
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
func (p Purchase) Quantities() inventory.Quantities {
	q := make(inventory.Quantities, len(p.Items))
	for _, it := range p.Items {
		q[it.ProductID] = it.Quantity
	}
	return q
}

var (
	// ErrNotFound indicates a missing purchase.
	ErrNotFound = fmt.Errorf("purchases: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("purchases: %w", shared.ErrValidation)
)
