package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// The recorder maintains the single transaction that mirrors a purchase or
// sale: at most one row per document, created with the document, updated in
// place on edits, removed on delete. Callers invoke it inside the same
// transaction as the document mutation.

// RecordPurchase upserts the transaction for a purchase. The amount is
// negated: buying stock is an outflow. If the row already exists its amount
// and description are rewritten while id and transaction date stay as
// originally set; if it was deleted out-of-band a fresh row is created with
// current values.
func RecordPurchase(ctx context.Context, store TxStore, purchaseID int64, artistName string, date time.Time, total decimal.Decimal) error {
	desc := fmt.Sprintf("Purchase from %s on %s", artistName, date.UTC().Format("2006-01-02"))
	existing, err := store.TransactionByPurchase(ctx, purchaseID)
	if errors.Is(err, ErrNotFound) {
		_, err = store.InsertTransaction(ctx, Transaction{
			Date:        date,
			Type:        TypePurchase,
			Description: desc,
			Amount:      total.Neg(),
			PurchaseID:  purchaseID,
		})
		return err
	}
	if err != nil {
		return err
	}
	existing.Amount = total.Neg()
	existing.Description = desc
	return store.UpdateTransaction(ctx, existing)
}

// RecordSale upserts the transaction for a sale; selling is an inflow.
func RecordSale(ctx context.Context, store TxStore, saleID int64, date time.Time, total decimal.Decimal) error {
	desc := fmt.Sprintf("Sale on %s", date.UTC().Format("2006-01-02"))
	existing, err := store.TransactionBySale(ctx, saleID)
	if errors.Is(err, ErrNotFound) {
		_, err = store.InsertTransaction(ctx, Transaction{
			Date:        date,
			Type:        TypeSale,
			Description: desc,
			Amount:      total,
			SaleID:      saleID,
		})
		return err
	}
	if err != nil {
		return err
	}
	existing.Amount = total
	existing.Description = desc
	return store.UpdateTransaction(ctx, existing)
}

// RemovePurchaseRecord deletes the transaction(s) mirroring a purchase.
// Called before the purchase row itself is deleted.
func RemovePurchaseRecord(ctx context.Context, store TxStore, purchaseID int64) error {
	return store.DeleteTransactionsByPurchase(ctx, purchaseID)
}

// RemoveSaleRecord deletes the transaction(s) mirroring a sale.
func RemoveSaleRecord(ctx context.Context, store TxStore, saleID int64) error {
	return store.DeleteTransactionsBySale(ctx, saleID)
}
