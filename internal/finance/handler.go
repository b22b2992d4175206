package finance

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atelier-shop/atelier/internal/platform/httpx"
	"github.com/atelier-shop/atelier/internal/shared"
)

// Handler wires HTTP endpoints for transactions and balances.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the finance handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.listTransactions)
	r.Post("/transactions", h.createTransaction)
	r.Get("/transactions/{id}", h.showTransaction)
	r.Put("/transactions/{id}", h.updateTransaction)
	r.Delete("/transactions/{id}", h.deleteTransaction)
	r.Get("/balances", h.listBalances)
	r.Get("/balances/current", h.currentBalance)
}

type transactionRequest struct {
	Date        string `json:"date"`
	Type        string `json:"type" validate:"required,oneof=PURCHASE SALE EXPENSE INCOME ADJUSTMENT"`
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Notes       string `json:"notes"`
}

func (req transactionRequest) toInput() (TransactionInput, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return TransactionInput{}, err
	}
	input := TransactionInput{
		Type:        TransactionType(req.Type),
		Description: req.Description,
		Amount:      amount,
		Notes:       req.Notes,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return TransactionInput{}, err
		}
		input.Date = date
	}
	return input, nil
}

// parseDate accepts a calendar date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	PurchaseID  int64  `json:"purchase_id,omitempty"`
	SaleID      int64  `json:"sale_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func toTransactionResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.UTC().Format(time.RFC3339),
		Type:        string(t.Type),
		Description: t.Description,
		Amount:      t.Amount.String(),
		PurchaseID:  t.PurchaseID,
		SaleID:      t.SaleID,
		Notes:       t.Notes,
	}
}

type balanceResponse struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

func (h *Handler) decodeTransaction(r *http.Request) (TransactionInput, error) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return TransactionInput{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return TransactionInput{}, err
	}
	return req.toInput()
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeTransaction(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	txn, err := h.service.CreateTransaction(r.Context(), input)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	input, err := h.decodeTransaction(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	txn, err := h.service.UpdateTransaction(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(txn))
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) showTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	txn, err := h.service.Transaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(txn))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	filters := ListFilters{
		Type:   TransactionType(q.Get("type")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	txns, total, err := h.service.Transactions(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		items = append(items, toTransactionResponse(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": items,
		"pagination":   shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	balances, total, err := h.service.Balances(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		items = append(items, balanceResponse{
			ID:     b.ID,
			Date:   b.Date.UTC().Format("2006-01-02"),
			Amount: b.Amount.String(),
			Notes:  b.Notes,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balances":   items,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) currentBalance(w http.ResponseWriter, r *http.Request) {
	amount, err := h.service.Balance(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"balance": amount.String()})
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
