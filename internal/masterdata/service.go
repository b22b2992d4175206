package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateArtist(ctx context.Context, a Artist) (Artist, error)
	GetArtist(ctx context.Context, id int64) (Artist, error)
	ListArtists(ctx context.Context, filters ArtistFilters) ([]Artist, int, error)
	UpdateArtist(ctx context.Context, a Artist) error
	DeleteArtist(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages artists and products.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ArtistInput carries artist fields.
type ArtistInput struct {
	Name        string
	ContactInfo string
	Notes       string
}

func (in ArtistInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: artist name required", ErrValidation)
	}
	return nil
}

// CreateArtist registers a new artist.
func (s *Service) CreateArtist(ctx context.Context, input ArtistInput) (Artist, error) {
	if err := input.validate(); err != nil {
		return Artist{}, err
	}
	artist, err := s.repo.CreateArtist(ctx, Artist{
		Name:        input.Name,
		ContactInfo: input.ContactInfo,
		Notes:       input.Notes,
	})
	if err != nil {
		return Artist{}, err
	}
	s.recordAudit(ctx, "masterdata:artist_create", "artist", artist.ID)
	return artist, nil
}

// Artist fetches one artist.
func (s *Service) Artist(ctx context.Context, id int64) (Artist, error) {
	return s.repo.GetArtist(ctx, id)
}

// Artists lists artists.
func (s *Service) Artists(ctx context.Context, filters ArtistFilters) ([]Artist, int, error) {
	return s.repo.ListArtists(ctx, filters)
}

// UpdateArtist rewrites an artist.
func (s *Service) UpdateArtist(ctx context.Context, id int64, input ArtistInput) (Artist, error) {
	if err := input.validate(); err != nil {
		return Artist{}, err
	}
	artist, err := s.repo.GetArtist(ctx, id)
	if err != nil {
		return Artist{}, err
	}
	artist.Name = input.Name
	artist.ContactInfo = input.ContactInfo
	artist.Notes = input.Notes
	if err := s.repo.UpdateArtist(ctx, artist); err != nil {
		return Artist{}, err
	}
	s.recordAudit(ctx, "masterdata:artist_update", "artist", id)
	return artist, nil
}

// DeleteArtist removes an artist together with their cascaded records.
func (s *Service) DeleteArtist(ctx context.Context, id int64) error {
	if err := s.repo.DeleteArtist(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "masterdata:artist_delete", "artist", id)
	return nil
}

// ProductInput carries product fields. StockQuantity only applies on create;
// afterwards stock moves through the inventory ledger alone.
type ProductInput struct {
	ArtistID      int64
	Name          string
	Description   string
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	StockQuantity int64
}

func (in ProductInput) validate() error {
	if in.ArtistID == 0 {
		return fmt.Errorf("%w: artist required", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: product name required", ErrValidation)
	}
	if in.PurchasePrice.IsNegative() || in.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}
	return nil
}

// CreateProduct registers a product under an existing artist.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := input.validate(); err != nil {
		return Product{}, err
	}
	if _, err := s.repo.GetArtist(ctx, input.ArtistID); err != nil {
		return Product{}, err
	}
	product, err := s.repo.CreateProduct(ctx, Product{
		ArtistID:      input.ArtistID,
		Name:          input.Name,
		Description:   input.Description,
		PurchasePrice: input.PurchasePrice,
		SellingPrice:  input.SellingPrice,
		StockQuantity: input.StockQuantity,
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, "masterdata:product_create", "product", product.ID)
	return product, nil
}

// Product fetches one product.
func (s *Service) Product(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Products lists products.
func (s *Service) Products(ctx context.Context, filters ProductFilters) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filters)
}

// UpdateProduct rewrites a product's descriptive fields and prices. The
// stored stock quantity is left alone.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	if err := input.validate(); err != nil {
		return Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.ArtistID != product.ArtistID {
		if _, err := s.repo.GetArtist(ctx, input.ArtistID); err != nil {
			return Product{}, err
		}
	}
	product.ArtistID = input.ArtistID
	product.Name = input.Name
	product.Description = input.Description
	product.PurchasePrice = input.PurchasePrice
	product.SellingPrice = input.SellingPrice
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, "masterdata:product_update", "product", id)
	return s.repo.GetProduct(ctx, id)
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "masterdata:product_delete", "product", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
