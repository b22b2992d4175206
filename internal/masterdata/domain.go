// Package masterdata manages the shop's reference data: the artists whose
// work is sold on consignment-style purchase terms, and the products made by
// them.
package masterdata

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/shared"
)

// Artist is a supplier of products.
type Artist struct {
	ID          int64
	Name        string
	ContactInfo string
	Notes       string
	CreatedAt   time.Time
}

// Product is an item bought from an artist and sold in the shop. Stock is
// maintained exclusively by the inventory ledger; prices are the current
// defaults snapshotted onto document lines at save time.
type Product struct {
	ID            int64
	ArtistID      int64
	ArtistName    string
	Name          string
	Description   string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	StockQuantity int64
	CreatedAt     time.Time
}

var (
	// ErrNotFound indicates a missing artist or product.
	ErrNotFound = fmt.Errorf("masterdata: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("masterdata: %w", shared.ErrValidation)
)
