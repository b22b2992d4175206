package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/inventory"
	"github.com/atelier-shop/atelier/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, filters ListFilters) ([]Purchase, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IntegrationHandler receives a signal after every committed ledger change.
type IntegrationHandler interface {
	LedgerChanged(ctx context.Context)
}

// Service manages the purchase document lifecycle.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	hooks  IntegrationHandler
	logger *slog.Logger
	now    func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Clock func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, hooks IntegrationHandler, logger *slog.Logger, cfg ServiceConfig) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, audit: audit, hooks: hooks, logger: logger, now: now}
}

// LineInput is one submitted document line. Unit price is never accepted
// from the caller; it is re-derived from the product's current purchase
// price on every save.
type LineInput struct {
	ProductID int64
	Quantity  int64
}

// PurchaseInput carries the fields of a purchase document.
type PurchaseInput struct {
	ArtistID int64
	Date     time.Time
	Notes    string
	Items    []LineInput
}

func (in PurchaseInput) validate() error {
	if in.ArtistID == 0 {
		return fmt.Errorf("%w: artist required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	seen := make(map[int64]bool, len(in.Items))
	for _, line := range in.Items {
		if line.ProductID == 0 {
			return fmt.Errorf("%w: product required on every line", ErrValidation)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if seen[line.ProductID] {
			return fmt.Errorf("%w: product %d listed twice", ErrValidation, line.ProductID)
		}
		seen[line.ProductID] = true
	}
	return nil
}

// Create saves a new purchase: items priced from the current product
// purchase price, stock increased per line, the mirroring ledger entry
// written and today's balance snapshot refreshed, all in one transaction.
func (s *Service) Create(ctx context.Context, input PurchaseInput) (Purchase, error) {
	if err := input.validate(); err != nil {
		return Purchase{}, err
	}
	var created Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		artist, err := tx.GetArtist(ctx, input.ArtistID)
		if err != nil {
			return err
		}
		date := input.Date
		if date.IsZero() {
			date = s.now()
		}
		doc := Purchase{
			Number:     s.newNumber(),
			ArtistID:   artist.ID,
			ArtistName: artist.Name,
			Date:       date,
			Notes:      input.Notes,
		}
		total := decimal.Zero
		for _, line := range input.Items {
			product, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			it := Item{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.PurchasePrice,
			}
			doc.Items = append(doc.Items, it)
			total = total.Add(it.Subtotal())
		}
		doc.TotalAmount = total

		doc.ID, err = tx.InsertPurchase(ctx, doc)
		if err != nil {
			return err
		}
		for i := range doc.Items {
			if doc.Items[i].ID, err = tx.InsertItem(ctx, doc.ID, doc.Items[i]); err != nil {
				return err
			}
		}
		if err := inventory.Apply(ctx, tx, inventory.Diff(nil, doc.Quantities()), inventory.Inbound); err != nil {
			return err
		}
		if err := finance.RecordPurchase(ctx, tx, doc.ID, artist.Name, date, total); err != nil {
			return err
		}
		if err := finance.SnapshotAsOf(ctx, tx, s.now()); err != nil {
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.ledgerChanged(ctx, "purchases:create", created.ID, created.TotalAmount)
	return created, nil
}

// Update edits a purchase in place. Stock moves by the net difference
// between the stored and submitted quantities, line prices are re-derived
// from the current product price, and the mirroring ledger entry keeps its
// id and transaction date while its amount and description are rewritten.
func (s *Service) Update(ctx context.Context, id int64, input PurchaseInput) (Purchase, error) {
	if err := input.validate(); err != nil {
		return Purchase{}, err
	}
	var updated Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.PurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		artist, err := tx.GetArtist(ctx, input.ArtistID)
		if err != nil {
			return err
		}
		date := input.Date
		if date.IsZero() {
			date = existing.Date
		}

		// Captured before any item write so the stock diff cannot observe
		// the rows being rewritten underneath it.
		prevQuantities := existing.Quantities()
		prevByProduct := make(map[int64]Item, len(existing.Items))
		for _, it := range existing.Items {
			prevByProduct[it.ProductID] = it
		}

		doc := Purchase{
			ID:         existing.ID,
			Number:     existing.Number,
			ArtistID:   artist.ID,
			ArtistName: artist.Name,
			Date:       date,
			Notes:      input.Notes,
			CreatedAt:  existing.CreatedAt,
		}
		total := decimal.Zero
		for _, line := range input.Items {
			product, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			it := Item{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.PurchasePrice,
			}
			if prev, ok := prevByProduct[line.ProductID]; ok {
				it.ID = prev.ID
				if err := tx.UpdateItem(ctx, it); err != nil {
					return err
				}
				delete(prevByProduct, line.ProductID)
			} else {
				if it.ID, err = tx.InsertItem(ctx, doc.ID, it); err != nil {
					return err
				}
			}
			doc.Items = append(doc.Items, it)
			total = total.Add(it.Subtotal())
		}
		for _, leftover := range prevByProduct {
			if err := tx.DeleteItem(ctx, leftover.ID); err != nil {
				return err
			}
		}
		doc.TotalAmount = total

		if err := tx.UpdatePurchase(ctx, doc); err != nil {
			return err
		}
		deltas := inventory.Diff(prevQuantities, doc.Quantities())
		if err := inventory.Apply(ctx, tx, deltas, inventory.Inbound); err != nil {
			return err
		}
		if err := finance.RecordPurchase(ctx, tx, doc.ID, artist.Name, date, total); err != nil {
			return err
		}
		if err := finance.SnapshotAsOf(ctx, tx, s.now()); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.ledgerChanged(ctx, "purchases:update", updated.ID, updated.TotalAmount)
	return updated, nil
}

// Delete removes a purchase, reversing its stock contribution and deleting
// the mirroring ledger entry before the document itself goes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var removed Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.PurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		deltas := inventory.Diff(existing.Quantities(), nil)
		if err := inventory.Apply(ctx, tx, deltas, inventory.Inbound); err != nil {
			return err
		}
		if err := finance.RemovePurchaseRecord(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.DeletePurchase(ctx, id); err != nil {
			return err
		}
		if err := finance.SnapshotAsOf(ctx, tx, s.now()); err != nil {
			return err
		}
		removed = existing
		return nil
	})
	if err != nil {
		return err
	}
	s.ledgerChanged(ctx, "purchases:delete", removed.ID, removed.TotalAmount)
	return nil
}

// Purchase fetches one purchase with its items.
func (s *Service) Purchase(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// Purchases lists purchases newest first.
func (s *Service) Purchases(ctx context.Context, filters ListFilters) ([]Purchase, int, error) {
	return s.repo.ListPurchases(ctx, filters)
}

func (s *Service) newNumber() string {
	return fmt.Sprintf("PUR-%d", s.now().UnixNano())
}

func (s *Service) ledgerChanged(ctx context.Context, action string, id int64, amount decimal.Decimal) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "purchase",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"total": amount.String()},
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("audit record", slog.Any("error", err))
		}
	}
	if s.hooks != nil {
		s.hooks.LedgerChanged(ctx)
	}
}
