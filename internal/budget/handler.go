package budget

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for budget operations
type Handler struct {
	service *Service
}

// NewHandler creates a new budget handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for budget endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/performance", h.ListPerformance)
	r.Get("/summary", h.Summary)
	r.Get("/alerts", h.Alerts)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/deactivate", h.Deactivate)
	r.Get("/{id}/performance", h.Performance)

	return r
}

// Create handles POST /budgets
// @Summary      Create a budget
// @Description  Create a spending limit for a period, optionally scoped to a category
// @Tags         budgets
// @Accept       json
// @Produce      json
// @Param        request body CreateBudgetRequest true "Budget creation request"
// @Success      201 {object} response.APIResponse{data=BudgetResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /budgets [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	b, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err, "Failed to create budget")
		return
	}

	response.JSON(w, http.StatusCreated, b.ToResponse())
}

// List handles GET /budgets
// @Summary      List budgets
// @Tags         budgets
// @Produce      json
// @Param        active_only query bool false "Only active budgets"
// @Param        current query bool false "Only budgets whose period covers today"
// @Success      200 {object} response.APIResponse{data=[]BudgetResponse}
// @Router       /budgets [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))
	current, _ := strconv.ParseBool(r.URL.Query().Get("current"))

	budgets, err := h.service.List(r.Context(), userID, activeOnly, current)
	if err != nil {
		response.InternalError(w, "Failed to list budgets")
		return
	}

	out := make([]*BudgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = b.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// GetByID handles GET /budgets/{id}
// @Summary      Get budget by ID
// @Tags         budgets
// @Produce      json
// @Param        id path string true "Budget ID"
// @Success      200 {object} response.APIResponse{data=BudgetResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /budgets/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to get budget")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}

// Update handles PUT /budgets/{id}
// @Summary      Update a budget
// @Tags         budgets
// @Accept       json
// @Produce      json
// @Param        id path string true "Budget ID"
// @Param        request body UpdateBudgetRequest true "Budget update request"
// @Success      200 {object} response.APIResponse{data=BudgetResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budgets/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req UpdateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	b, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err, "Failed to update budget")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}

// Deactivate handles POST /budgets/{id}/deactivate
// @Summary      Deactivate a budget
// @Tags         budgets
// @Produce      json
// @Param        id path string true "Budget ID"
// @Success      200 {object} response.APIResponse{data=BudgetResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /budgets/{id}/deactivate [post]
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Deactivate(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to deactivate budget")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}

// Delete handles DELETE /budgets/{id}
// @Summary      Delete a budget
// @Tags         budgets
// @Param        id path string true "Budget ID"
// @Success      204
// @Failure      404 {object} response.APIResponse
// @Router       /budgets/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err, "Failed to delete budget")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Performance handles GET /budgets/{id}/performance
// @Summary      Budget performance
// @Description  Spent, remaining, percentage used and status of one budget
// @Tags         budgets
// @Produce      json
// @Param        id path string true "Budget ID"
// @Success      200 {object} response.APIResponse{data=PerformanceResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /budgets/{id}/performance [get]
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Performance(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to compute budget performance")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// ListPerformance handles GET /budgets/performance
// @Summary      Performance of current budgets
// @Tags         budgets
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]PerformanceResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /budgets/performance [get]
func (h *Handler) ListPerformance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	perfs, err := h.service.CurrentPerformances(r.Context(), userID)
	if err != nil {
		handleError(w, err, "Failed to compute budget performance")
		return
	}

	out := make([]*PerformanceResponse, len(perfs))
	for i, p := range perfs {
		out[i] = p.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// Summary handles GET /budgets/summary
// @Summary      Budget summary
// @Description  Totals and status counts over the current budgets in one currency
// @Tags         budgets
// @Produce      json
// @Param        currency query string false "Currency, defaults to the user's base currency"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /budgets/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	s, err := h.service.Summary(r.Context(), userID, r.URL.Query().Get("currency"))
	if err != nil {
		handleError(w, err, "Failed to compute budget summary")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// Alerts handles GET /budgets/alerts
// @Summary      Budget alerts
// @Description  Current budgets at or above their alert threshold
// @Tags         budgets
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]AlertResponse}
// @Router       /budgets/alerts [get]
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	alerts, err := h.service.Alerts(r.Context(), userID)
	if err != nil {
		handleError(w, err, "Failed to compute budget alerts")
		return
	}

	out := make([]*AlertResponse, len(alerts))
	for i, a := range alerts {
		out[i] = a.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

func userAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid budget ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrBudgetNotFound):
		response.NotFound(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
