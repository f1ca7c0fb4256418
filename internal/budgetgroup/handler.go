package budgetgroup

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for budget group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new budget group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for budget group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/overlapping", h.Overlapping)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/summary", h.Summary)
	r.Post("/{id}/budgets", h.Attach)
	r.Put("/{id}/budgets", h.BulkUpdate)
	r.Delete("/{id}/budgets/{budgetId}", h.Detach)
	r.Post("/{id}/generate", h.Generate)

	return r
}

// SummaryResponse is a group with its canonical budget summary
type SummaryResponse struct {
	Group   *GroupResponse          `json:"group"`
	Summary *budget.SummaryResponse `json:"summary"`
}

// Create handles POST /budget-groups
// @Summary      Create a budget group
// @Description  A group fixes one period and one currency for its budgets
// @Tags         budget-groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /budget-groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err, "Failed to create budget group")
		return
	}

	response.JSON(w, http.StatusCreated, g.ToResponse())
}

// List handles GET /budget-groups
// @Summary      List my budget groups
// @Tags         budget-groups
// @Produce      json
// @Param        active_only query bool false "Only active groups"
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /budget-groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))

	groups, err := h.service.List(r.Context(), userID, activeOnly)
	if err != nil {
		response.InternalError(w, "Failed to list budget groups")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(groups))
}

// Overlapping handles GET /budget-groups/overlapping
// @Summary      Groups overlapping a date range
// @Tags         budget-groups
// @Produce      json
// @Param        from query string true "Start date (YYYY-MM-DD)"
// @Param        to query string true "End date (YYYY-MM-DD)"
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /budget-groups/overlapping [get]
func (h *Handler) Overlapping(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	from, err := calendar.Parse("from", r.URL.Query().Get("from"))
	if err != nil {
		handleError(w, err, "Invalid from date")
		return
	}
	to, err := calendar.Parse("to", r.URL.Query().Get("to"))
	if err != nil {
		handleError(w, err, "Invalid to date")
		return
	}

	groups, err := h.service.Overlapping(r.Context(), userID, from, to)
	if err != nil {
		handleError(w, err, "Failed to list overlapping groups")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(groups))
}

// GetByID handles GET /budget-groups/{id}
// @Summary      Get a budget group with its budgets
// @Tags         budget-groups
// @Produce      json
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	g, budgets, err := h.service.GetWithBudgets(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to get budget group")
		return
	}

	response.JSON(w, http.StatusOK, g.WithBudgets(budgets))
}

// Update handles PUT /budget-groups/{id}
// @Summary      Update a budget group
// @Tags         budget-groups
// @Accept       json
// @Produce      json
// @Param        id path string true "Group ID"
// @Param        request body UpdateGroupRequest true "Group update request"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err, "Failed to update budget group")
		return
	}

	response.JSON(w, http.StatusOK, g.ToResponse())
}

// Delete handles DELETE /budget-groups/{id}
// @Summary      Delete a budget group
// @Description  Applies the server's delete policy: deactivate (detach and deactivate budgets) or cascade
// @Tags         budget-groups
// @Produce      json
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleError(w, err, "Failed to delete budget group")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"message": "Budget group deleted",
		"policy":  string(h.service.Policy()),
	})
}

// Summary handles GET /budget-groups/{id}/summary
// @Summary      Budget group summary
// @Tags         budget-groups
// @Produce      json
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /budget-groups/{id}/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	g, summary, err := h.service.Summary(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to summarize budget group")
		return
	}

	response.JSON(w, http.StatusOK, &SummaryResponse{Group: g.ToResponse(), Summary: summary.ToResponse()})
}

// Attach handles POST /budget-groups/{id}/budgets
// @Summary      Attach budgets to a group
// @Tags         budget-groups
// @Accept       json
// @Produce      json
// @Param        id path string true "Group ID"
// @Param        request body AttachRequest true "Budgets to attach"
// @Success      200 {object} response.APIResponse{data=[]budget.BudgetResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /budget-groups/{id}/budgets [post]
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	budgets, err := h.service.Attach(r.Context(), userID, id, req.BudgetIDs)
	if err != nil {
		handleError(w, err, "Failed to attach budgets")
		return
	}

	response.JSON(w, http.StatusOK, budgetResponses(budgets))
}

// Detach handles DELETE /budget-groups/{id}/budgets/{budgetId}
// @Summary      Detach a budget from a group
// @Tags         budget-groups
// @Produce      json
// @Param        id path string true "Group ID"
// @Param        budgetId path string true "Budget ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id}/budgets/{budgetId} [delete]
func (h *Handler) Detach(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}
	budgetID, err := uuid.Parse(chi.URLParam(r, "budgetId"))
	if err != nil {
		response.BadRequest(w, "Invalid budget ID")
		return
	}

	if err := h.service.Detach(r.Context(), userID, id, budgetID); err != nil {
		handleError(w, err, "Failed to detach budget")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Budget detached"})
}

// Generate handles POST /budget-groups/{id}/generate
// @Summary      Generate budgets from categories
// @Description  Creates one budget per category in scope (primary, subcategories or all) with the default amount unless overridden
// @Tags         budget-groups
// @Accept       json
// @Produce      json
// @Param        id path string true "Group ID"
// @Param        request body GenerateRequest true "Generation request"
// @Success      201 {object} response.APIResponse{data=[]budget.BudgetResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id}/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	budgets, err := h.service.Generate(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err, "Failed to generate budgets")
		return
	}

	response.JSON(w, http.StatusCreated, budgetResponses(budgets))
}

// BulkUpdate handles PUT /budget-groups/{id}/budgets
// @Summary      Bulk update budget amounts
// @Tags         budget-groups
// @Accept       json
// @Produce      json
// @Param        id path string true "Group ID"
// @Param        request body BulkUpdateRequest true "New amounts by budget ID"
// @Success      200 {object} response.APIResponse{data=[]budget.BudgetResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /budget-groups/{id}/budgets [put]
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	budgets, err := h.service.BulkUpdate(r.Context(), userID, id, req.Amounts)
	if err != nil {
		handleError(w, err, "Failed to update budgets")
		return
	}

	response.JSON(w, http.StatusOK, budgetResponses(budgets))
}

func toResponses(groups []*Group) []*GroupResponse {
	out := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		out[i] = g.ToResponse()
	}
	return out
}

func budgetResponses(budgets []*budget.Budget) []*budget.BudgetResponse {
	out := make([]*budget.BudgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = b.ToResponse()
	}
	return out
}

func userAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid budget group ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, budget.ErrBudgetNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrBudgetNotInGroup), errors.Is(err, ErrNothingToGenerate):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrGroupInactive):
		response.Conflict(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
