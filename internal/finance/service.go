package finance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, filters ListFilters) ([]Transaction, int, error)
	ListBalances(ctx context.Context, limit, offset int) ([]Balance, int, error)
	CurrentBalance(ctx context.Context, asOf time.Time) (decimal.Decimal, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IntegrationHandler receives a signal after every committed ledger change.
type IntegrationHandler interface {
	LedgerChanged(ctx context.Context)
}

// Service manages manual transactions and balance queries. Transactions that
// mirror purchases or sales are owned by the recorder; this service refuses
// to edit them but may delete them (the recorder recreates its row on the
// next document edit, the behaviour expected for out-of-band deletions).
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

// TransactionInput carries the fields of a manual transaction.
type TransactionInput struct {
	Date        time.Time
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
	Notes       string
}

func (in TransactionInput) validate() error {
	if !ValidType(in.Type) {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, in.Type)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description required", ErrValidation)
	}
	if in.Amount.IsZero() {
		return fmt.Errorf("%w: amount must be non-zero", ErrValidation)
	}
	return nil
}

// CreateTransaction records a manual ledger entry and refreshes today's
// balance snapshot in the same transaction.
func (s *Service) CreateTransaction(ctx context.Context, input TransactionInput) (Transaction, error) {
	if err := input.validate(); err != nil {
		return Transaction{}, err
	}
	txn := Transaction{
		Date:        input.Date,
		Type:        input.Type,
		Description: input.Description,
		Amount:      input.Amount,
		Notes:       input.Notes,
	}
	if txn.Date.IsZero() {
		txn.Date = s.now()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertTransaction(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = id
		return SnapshotAsOf(ctx, tx, s.now())
	})
	if err != nil {
		return Transaction{}, err
	}
	s.ledgerChanged(ctx, "finance:create", txn.ID, txn.Amount)
	return txn, nil
}

// UpdateTransaction edits a manual entry in place. Document-owned rows are
// rejected; the recorder keeps those synchronized with their document.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, input TransactionInput) (Transaction, error) {
	if err := input.validate(); err != nil {
		return Transaction{}, err
	}
	var updated Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if existing.DocumentOwned() {
			return ErrDocumentOwned
		}
		existing.Type = input.Type
		existing.Description = input.Description
		existing.Amount = input.Amount
		existing.Notes = input.Notes
		if !input.Date.IsZero() {
			existing.Date = input.Date
		}
		if err := tx.UpdateTransaction(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return SnapshotAsOf(ctx, tx, s.now())
	})
	if err != nil {
		return Transaction{}, err
	}
	s.ledgerChanged(ctx, "finance:update", updated.ID, updated.Amount)
	return updated, nil
}

// DeleteTransaction removes an entry and refreshes the snapshot.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	var removed Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		removed = existing
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return SnapshotAsOf(ctx, tx, s.now())
	})
	if err != nil {
		return err
	}
	s.ledgerChanged(ctx, "finance:delete", removed.ID, removed.Amount)
	return nil
}

// Transaction fetches a single transaction.
func (s *Service) Transaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// Transactions lists transactions newest first.
func (s *Service) Transactions(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	if filters.Type != "" && !ValidType(filters.Type) {
		return nil, 0, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, filters.Type)
	}
	return s.repo.ListTransactions(ctx, filters)
}

// Balances lists stored snapshots newest first.
func (s *Service) Balances(ctx context.Context, limit, offset int) ([]Balance, int, error) {
	return s.repo.ListBalances(ctx, limit, offset)
}

// Balance returns the recomputed balance as of now.
func (s *Service) Balance(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.CurrentBalance(ctx, s.now())
}

// Snapshot upserts today's balance row. Used by the nightly job so each day
// gets an anchor even without mutations.
func (s *Service) Snapshot(ctx context.Context) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return SnapshotAsOf(ctx, tx, s.now())
	})
}

func (s *Service) ledgerChanged(ctx context.Context, action string, id int64, amount decimal.Decimal) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "transaction",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"amount": amount.String()},
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("audit record", slog.Any("error", err))
		}
	}
	if s.hooks != nil {
		s.hooks.LedgerChanged(ctx)
	}
}
