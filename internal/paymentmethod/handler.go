package paymentmethod

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

// Handler handles HTTP requests for payment method operations
type Handler struct {
	service *Service
}

// NewHandler creates a new payment method handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for payment method endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/with-stats", h.ListWithStats)
	r.Post("/reorder", h.Reorder)
	r.Post("/create-defaults", h.CreateDefaults)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List handles GET /payment-methods
// @Summary      List payment methods
// @Tags         payment-methods
// @Produce      json
// @Param        include_inactive query bool false "Include deactivated methods"
// @Success      200 {object} response.APIResponse{data=[]PaymentMethodResponse}
// @Router       /payment-methods [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	methods, err := h.service.List(r.Context(), userID, includeInactive)
	if err != nil {
		response.InternalError(w, "Failed to list payment methods")
		return
	}

	out := make([]*PaymentMethodResponse, len(methods))
	for i, m := range methods {
		out[i] = m.Method.ToResponse(m.Usage.ExpenseCount == 0)
	}
	response.JSON(w, http.StatusOK, out)
}

// ListWithStats handles GET /payment-methods/with-stats
// @Summary      Payment methods with usage
// @Description  Active payment methods with expense count, total and last use, most used first
// @Tags         payment-methods
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]WithStatsResponse}
// @Router       /payment-methods/with-stats [get]
func (h *Handler) ListWithStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	methods, err := h.service.ListWithStats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to load payment method stats")
		return
	}

	out := make([]*WithStatsResponse, len(methods))
	for i, m := range methods {
		out[i] = m.Method.toStatsResponse(m.Usage)
	}
	response.JSON(w, http.StatusOK, out)
}

// Create handles POST /payment-methods
// @Summary      Create a payment method
// @Tags         payment-methods
// @Accept       json
// @Produce      json
// @Param        request body CreatePaymentMethodRequest true "Payment method creation request"
// @Success      201 {object} response.APIResponse{data=PaymentMethodResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /payment-methods [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreatePaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.handleError(w, err, "Failed to create payment method")
		return
	}

	response.JSON(w, http.StatusCreated, m.ToResponse(true))
}

// CreateDefaults handles POST /payment-methods/create-defaults
// @Summary      Create default payment methods
// @Description  Cash, Card, Bank Transfer and Other, for a user who has none yet
// @Tags         payment-methods
// @Produce      json
// @Success      201 {object} response.APIResponse{data=[]PaymentMethodResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /payment-methods/create-defaults [post]
func (h *Handler) CreateDefaults(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	methods, err := h.service.CreateDefaults(r.Context(), userID)
	if err != nil {
		h.handleError(w, err, "Failed to create default payment methods")
		return
	}

	out := make([]*PaymentMethodResponse, len(methods))
	for i, m := range methods {
		out[i] = m.ToResponse(true)
	}
	response.JSON(w, http.StatusCreated, out)
}

// Update handles PUT /payment-methods/{id}
// @Summary      Update a payment method
// @Tags         payment-methods
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment method ID"
// @Param        request body UpdatePaymentMethodRequest true "Payment method update request"
// @Success      200 {object} response.APIResponse{data=PaymentMethodResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payment-methods/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid payment method ID")
		return
	}

	var req UpdatePaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		h.handleError(w, err, "Failed to update payment method")
		return
	}
	canDelete, err := h.service.CanDelete(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to update payment method")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse(canDelete))
}

// Reorder handles POST /payment-methods/reorder
// @Summary      Reorder payment methods
// @Tags         payment-methods
// @Accept       json
// @Produce      json
// @Param        request body []ReorderItem true "New positions"
// @Success      200 {object} response.APIResponse{data=[]PaymentMethodResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payment-methods/reorder [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var items []ReorderItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	methods, err := h.service.Reorder(r.Context(), userID, items)
	if err != nil {
		h.handleError(w, err, "Failed to reorder payment methods")
		return
	}

	out := make([]*PaymentMethodResponse, len(methods))
	for i, m := range methods {
		out[i] = m.Method.ToResponse(m.Usage.ExpenseCount == 0)
	}
	response.JSON(w, http.StatusOK, out)
}

// Delete handles DELETE /payment-methods/{id}
// @Summary      Delete a payment method
// @Description  Deactivates the method; with force=true an unused method is removed
// @Tags         payment-methods
// @Produce      json
// @Param        id path string true "Payment method ID"
// @Param        force query bool false "Remove the row when no expense uses it"
// @Success      200 {object} response.APIResponse{data=DeleteResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payment-methods/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid payment method ID")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	deleted, err := h.service.Delete(r.Context(), userID, id, force)
	if err != nil {
		h.handleError(w, err, "Failed to delete payment method")
		return
	}

	response.JSON(w, http.StatusOK, &DeleteResponse{Deleted: deleted, Deactivated: !deleted})
}

func (h *Handler) handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPaymentMethodNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrDefaultsExist):
		response.BadRequest(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
