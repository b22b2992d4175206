package purchases

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-shop/atelier/internal/platform/httpx"
	"github.com/atelier-shop/atelier/internal/shared"
)

// Handler wires HTTP endpoints for purchases.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the purchases handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type lineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type purchaseRequest struct {
	ArtistID int64         `json:"artist_id" validate:"required,gt=0"`
	Date     string        `json:"date"`
	Notes    string        `json:"notes"`
	Items    []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func (req purchaseRequest) toInput() (PurchaseInput, error) {
	input := PurchaseInput{ArtistID: req.ArtistID, Notes: req.Notes}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return PurchaseInput{}, err
		}
		input.Date = date
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return input, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type itemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type purchaseResponse struct {
	ID          int64          `json:"id"`
	Number      string         `json:"number"`
	ArtistID    int64          `json:"artist_id"`
	ArtistName  string         `json:"artist_name"`
	Date        string         `json:"date"`
	TotalAmount string         `json:"total_amount"`
	Notes       string         `json:"notes,omitempty"`
	Items       []itemResponse `json:"items,omitempty"`
}

func toPurchaseResponse(p Purchase) purchaseResponse {
	resp := purchaseResponse{
		ID:          p.ID,
		Number:      p.Number,
		ArtistID:    p.ArtistID,
		ArtistName:  p.ArtistName,
		Date:        p.Date.UTC().Format(time.RFC3339),
		TotalAmount: p.TotalAmount.String(),
		Notes:       p.Notes,
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
			Subtotal:    it.Subtotal().String(),
		})
	}
	return resp
}

func (h *Handler) decode(r *http.Request) (PurchaseInput, error) {
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return PurchaseInput{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return PurchaseInput{}, err
	}
	return req.toInput()
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	purchase, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPurchaseResponse(purchase))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	input, err := h.decode(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	purchase, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	purchase, err := h.service.Purchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPurchaseResponse(purchase))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	artistID, _ := strconv.ParseInt(q.Get("artist_id"), 10, 64)
	purchases, total, err := h.service.Purchases(r.Context(), ListFilters{
		ArtistID: artistID,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		items = append(items, toPurchaseResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
