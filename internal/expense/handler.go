package expense

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	// Share operations
	r.Post("/shares/preview", h.Preview)
	r.Get("/shares/mine", h.ListMyShares)
	r.Post("/shares/{shareId}/settle", h.SettleShare)
	r.Delete("/{id}/shares", h.Unshare)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Record an expense; shared expenses are split with equal, percentage or fixed_amount shares
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// List handles GET /expenses
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Param        from query string false "First date (YYYY-MM-DD)"
// @Param        to query string false "Last date (YYYY-MM-DD)"
// @Param        category_id query string false "Category or subcategory ID"
// @Param        shared query bool false "Only shared expenses"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	q := r.URL.Query()
	var f ListFilter
	var err error
	from, to := q.Get("from"), q.Get("to")
	if f.From, err = calendar.ParseOptional("from", &from); err != nil {
		handleError(w, err, "Invalid filter")
		return
	}
	if f.To, err = calendar.ParseOptional("to", &to); err != nil {
		handleError(w, err, "Invalid filter")
		return
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid category ID")
			return
		}
		f.CategoryID = &id
	}
	f.SharedOnly, _ = strconv.ParseBool(q.Get("shared"))

	page, perPage := response.Pagination(r)
	expenses, total, err := h.service.List(r.Context(), userID, f, page, perPage)
	if err != nil {
		handleError(w, err, "Failed to list expenses")
		return
	}

	out := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = e.ToResponse()
	}
	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Visible to the owner and to participants of a shared expense
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	e, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Update handles PUT /expenses/{id}
// @Summary      Update an expense
// @Description  Shares are recalculated when the amount, currency or participants change
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Expense update request"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err, "Failed to update expense")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Deletes the expense and its shares. Fails if any share is settled or in a settlement.
// @Tags         expenses
// @Param        id path string true "Expense ID"
// @Success      204
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err, "Failed to delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /expenses/shares/preview
// @Summary      Preview a split
// @Description  Computes shares for a draft without storing them. Imbalances are returned as warnings.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body PreviewRequest true "Draft split"
// @Success      200 {object} response.APIResponse{data=PreviewResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /expenses/shares/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	preview, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		handleError(w, err, "Failed to preview shares")
		return
	}

	response.JSON(w, http.StatusOK, preview)
}

// MySharesResponse lists the caller's shares with the outstanding total per
// currency
type MySharesResponse struct {
	Shares      []*ShareResponse           `json:"shares"`
	Outstanding map[string]decimal.Decimal `json:"outstanding"`
}

// ListMyShares handles GET /expenses/shares/mine
// @Summary      List my shares
// @Description  Shares the caller holds on other users' expenses
// @Tags         expenses
// @Produce      json
// @Param        unsettled_only query bool false "Only unsettled shares"
// @Success      200 {object} response.APIResponse{data=MySharesResponse}
// @Router       /expenses/shares/mine [get]
func (h *Handler) ListMyShares(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	unsettledOnly, _ := strconv.ParseBool(r.URL.Query().Get("unsettled_only"))
	shares, err := h.service.ListMyShares(r.Context(), userID, unsettledOnly)
	if err != nil {
		response.InternalError(w, "Failed to list shares")
		return
	}

	out := &MySharesResponse{
		Shares:      make([]*ShareResponse, len(shares)),
		Outstanding: OutstandingTotal(shares),
	}
	for i, s := range shares {
		out.Shares[i] = s.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// SettleShare handles POST /expenses/shares/{shareId}/settle
// @Summary      Settle a share
// @Description  The participant or the expense owner marks one share settled
// @Tags         expenses
// @Produce      json
// @Param        shareId path string true "Share ID"
// @Success      200 {object} response.APIResponse{data=ShareResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/shares/{shareId}/settle [post]
func (h *Handler) SettleShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	shareID, err := uuid.Parse(chi.URLParam(r, "shareId"))
	if err != nil {
		response.BadRequest(w, "Invalid share ID")
		return
	}

	s, err := h.service.SettleShare(r.Context(), userID, shareID)
	if err != nil {
		handleError(w, err, "Failed to settle share")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// Unshare handles DELETE /expenses/{id}/shares
// @Summary      Un-share an expense
// @Description  Deletes all shares and clears the shared flag
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id}/shares [delete]
func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	e, err := h.service.Unshare(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to un-share expense")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

func userAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrShareNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrNotShareParty):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrSharesLocked), errors.Is(err, ErrShareAlreadySettled):
		response.Conflict(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
