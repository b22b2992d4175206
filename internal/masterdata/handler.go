package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/platform/httpx"
	"github.com/atelier-shop/atelier/internal/shared"
)

// Handler wires HTTP endpoints for artists and products.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the masterdata handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountArtistRoutes registers artist routes.
func (h *Handler) MountArtistRoutes(r chi.Router) {
	r.Get("/", h.listArtists)
	r.Post("/", h.createArtist)
	r.Get("/{id}", h.showArtist)
	r.Put("/{id}", h.updateArtist)
	r.Delete("/{id}", h.deleteArtist)
}

// MountProductRoutes registers product routes.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	r.Get("/{id}", h.showProduct)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deleteProduct)
}

type artistRequest struct {
	Name        string `json:"name" validate:"required"`
	ContactInfo string `json:"contact_info"`
	Notes       string `json:"notes"`
}

type artistResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toArtistResponse(a Artist) artistResponse {
	return artistResponse{
		ID:          a.ID,
		Name:        a.Name,
		ContactInfo: a.ContactInfo,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

type productRequest struct {
	ArtistID      int64  `json:"artist_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	PurchasePrice string `json:"purchase_price" validate:"required"`
	SellingPrice  string `json:"selling_price" validate:"required"`
	StockQuantity int64  `json:"stock_quantity" validate:"gte=0"`
}

func (req productRequest) toInput() (ProductInput, error) {
	purchase, err := decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		return ProductInput{}, err
	}
	selling, err := decimal.NewFromString(req.SellingPrice)
	if err != nil {
		return ProductInput{}, err
	}
	return ProductInput{
		ArtistID:      req.ArtistID,
		Name:          req.Name,
		Description:   req.Description,
		PurchasePrice: purchase,
		SellingPrice:  selling,
		StockQuantity: req.StockQuantity,
	}, nil
}

type productResponse struct {
	ID            int64  `json:"id"`
	ArtistID      int64  `json:"artist_id"`
	ArtistName    string `json:"artist_name"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PurchasePrice string `json:"purchase_price"`
	SellingPrice  string `json:"selling_price"`
	StockQuantity int64  `json:"stock_quantity"`
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:            p.ID,
		ArtistID:      p.ArtistID,
		ArtistName:    p.ArtistName,
		Name:          p.Name,
		Description:   p.Description,
		PurchasePrice: p.PurchasePrice.String(),
		SellingPrice:  p.SellingPrice.String(),
		StockQuantity: p.StockQuantity,
	}
}

func (h *Handler) createArtist(w http.ResponseWriter, r *http.Request) {
	var req artistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	artist, err := h.service.CreateArtist(r.Context(), ArtistInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toArtistResponse(artist))
}

func (h *Handler) showArtist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	artist, err := h.service.Artist(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toArtistResponse(artist))
}

func (h *Handler) listArtists(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	artists, total, err := h.service.Artists(r.Context(), ArtistFilters{
		Search: r.URL.Query().Get("q"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]artistResponse, 0, len(artists))
	for _, a := range artists {
		items = append(items, toArtistResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"artists":    items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) updateArtist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	var req artistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	artist, err := h.service.UpdateArtist(r.Context(), id, ArtistInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toArtistResponse(artist))
}

func (h *Handler) deleteArtist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.DeleteArtist(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeProduct(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *Handler) decodeProduct(r *http.Request) (ProductInput, error) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return ProductInput{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return ProductInput{}, err
	}
	return req.toInput()
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	product, err := h.service.Product(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	q := r.URL.Query()
	artistID, _ := strconv.ParseInt(q.Get("artist_id"), 10, 64)
	stockBelow, _ := strconv.ParseInt(q.Get("stock_below"), 10, 64)
	products, total, err := h.service.Products(r.Context(), ProductFilters{
		ArtistID:   artistID,
		Search:     q.Get("q"),
		StockBelow: stockBelow,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	input, err := h.decodeProduct(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pageParams(r *http.Request) (page, perPage int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	perPage, _ = strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	return page, perPage
}
