package currency

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/money"
	"github.com/fkhayef/finance/pkg/response"
)

// RateSaver persists a new rate observation. *DBProvider implements it.
type RateSaver interface {
	Save(ctx context.Context, from, to string, rate decimal.Decimal) error
}

// SaveRateRequest represents the request to record an exchange rate
type SaveRateRequest struct {
	From string          `json:"from" validate:"required,len=3"`
	To   string          `json:"to" validate:"required,len=3"`
	Rate decimal.Decimal `json:"rate" validate:"required,gt=0"`
}

// RateResponse represents an exchange rate
type RateResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// Handler handles HTTP requests for currency operations
type Handler struct {
	converter *Converter
	saver     RateSaver
	cached    *CachedProvider
}

// NewHandler creates a new currency handler. saver and cached may be nil.
func NewHandler(converter *Converter, saver RateSaver, cached *CachedProvider) *Handler {
	return &Handler{converter: converter, saver: saver, cached: cached}
}

// Routes returns the router for currency endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/rate", h.Rate)
	r.Get("/convert", h.Convert)
	r.Post("/rates", h.SaveRate)

	return r
}

// Rate handles GET /currency/rate
// @Summary      Exchange rate
// @Tags         currency
// @Produce      json
// @Param        from query string true "Source currency"
// @Param        to query string true "Target currency"
// @Success      200 {object} response.APIResponse{data=RateResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /currency/rate [get]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	from := strings.ToUpper(r.URL.Query().Get("from"))
	to := strings.ToUpper(r.URL.Query().Get("to"))

	rate, err := h.converter.Rate(r.Context(), from, to)
	if err != nil {
		if !response.DomainError(w, err) {
			response.InternalError(w, "Failed to get exchange rate")
		}
		return
	}

	response.JSON(w, http.StatusOK, &RateResponse{From: from, To: to, Rate: rate})
}

// Convert handles GET /currency/convert
// @Summary      Convert an amount
// @Tags         currency
// @Produce      json
// @Param        amount query string true "Amount"
// @Param        from query string true "Source currency"
// @Param        to query string true "Target currency"
// @Success      200 {object} response.APIResponse{data=Conversion}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /currency/convert [get]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		response.BadRequest(w, "Invalid amount")
		return
	}

	c, err := h.converter.Convert(r.Context(), money.New(amount, r.URL.Query().Get("from")), r.URL.Query().Get("to"))
	if err != nil {
		if !response.DomainError(w, err) {
			response.InternalError(w, "Failed to convert amount")
		}
		return
	}

	response.JSON(w, http.StatusOK, c)
}

// SaveRate handles POST /currency/rates
// @Summary      Record an exchange rate
// @Tags         currency
// @Accept       json
// @Produce      json
// @Param        request body SaveRateRequest true "Rate"
// @Success      201 {object} response.APIResponse{data=RateResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /currency/rates [post]
func (h *Handler) SaveRate(w http.ResponseWriter, r *http.Request) {
	if h.saver == nil {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Rates are read-only")
		return
	}

	var req SaveRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	req.From, req.To = strings.ToUpper(req.From), strings.ToUpper(req.To)
	if money.ValidateCurrency(req.From) != nil || money.ValidateCurrency(req.To) != nil {
		response.BadRequest(w, "Invalid currency code")
		return
	}
	if !req.Rate.IsPositive() {
		response.BadRequest(w, "Rate must be positive")
		return
	}

	if err := h.saver.Save(r.Context(), req.From, req.To, req.Rate); err != nil {
		response.InternalError(w, "Failed to save exchange rate")
		return
	}
	if h.cached != nil {
		h.cached.Invalidate(req.From, req.To)
		h.cached.Invalidate(req.To, req.From)
	}

	response.JSON(w, http.StatusCreated, &RateResponse{From: req.From, To: req.To, Rate: req.Rate})
}
