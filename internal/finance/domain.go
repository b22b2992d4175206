// Package finance maintains the shop's financial transactions and the daily
// balance snapshots derived from them.
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/shared"
)

// TransactionType classifies a financial transaction.
type TransactionType string

const (
	TypePurchase   TransactionType = "PURCHASE"
	TypeSale       TransactionType = "SALE"
	TypeExpense    TransactionType = "EXPENSE"
	TypeIncome     TransactionType = "INCOME"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

// ValidType reports whether t is one of the known transaction types.
func ValidType(t TransactionType) bool {
	switch t {
	case TypePurchase, TypeSale, TypeExpense, TypeIncome, TypeAdjustment:
		return true
	}
	return false
}

// Transaction is a single ledger entry. Amount is signed: negative for
// outflows, positive for inflows. PurchaseID or SaleID is set when the
// transaction mirrors a document; both zero for manual entries.
type Transaction struct {
	ID          int64
	Date        time.Time
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
	PurchaseID  int64
	SaleID      int64
	Notes       string
}

// DocumentOwned reports whether the transaction is maintained by the
// recorder on behalf of a purchase or sale.
func (t Transaction) DocumentOwned() bool {
	return t.PurchaseID != 0 || t.SaleID != 0
}

// Balance is a stored snapshot of the cumulative balance as of a calendar day.
type Balance struct {
	ID     int64
	Date   time.Time
	Amount decimal.Decimal
	Notes  string
}

var (
	// ErrNotFound indicates a missing transaction or balance row.
	ErrNotFound = fmt.Errorf("finance: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("finance: %w", shared.ErrValidation)
	// ErrDocumentOwned occurs when a caller edits a recorder-maintained row.
	ErrDocumentOwned = fmt.Errorf("finance: transaction mirrors a document: %w", shared.ErrImmutable)
)

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
