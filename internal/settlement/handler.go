package settlement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/balances", h.NetBalances)
	r.Get("/balances/{userId}", h.NetBalanceWithUser)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/reject", h.Reject)

	return r
}

// Create handles POST /settlements
// @Summary      Settle up with another user
// @Description  Locks every open share between the two users in one currency. Payer and amount follow from the net balance.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body CreateSettlementRequest true "Settlement request"
// @Success      201 {object} response.APIResponse{data=SettlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	s, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err, "Failed to create settlement")
		return
	}

	response.JSON(w, http.StatusCreated, s.ToResponse())
}

// GetByID handles GET /settlements/{id}
// @Summary      Get settlement by ID
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	s, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to get settlement")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// List handles GET /settlements
// @Summary      List my settlements
// @Tags         settlements
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]SettlementResponse}
// @Router       /settlements [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	page, perPage := response.Pagination(r)
	settlements, total, err := h.service.List(r.Context(), userID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list settlements")
		return
	}

	out := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		out[i] = s.ToResponse()
	}
	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// Confirm handles POST /settlements/{id}/confirm
// @Summary      Confirm a settlement
// @Description  The receiver confirms the payment and the covered shares become settled
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/{id}/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	s, err := h.service.Confirm(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to confirm settlement")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// Reject handles POST /settlements/{id}/reject
// @Summary      Reject a settlement
// @Description  The receiver rejects the payment and the covered shares are released
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := userAndID(w, r)
	if !ok {
		return
	}

	s, err := h.service.Reject(r.Context(), userID, id)
	if err != nil {
		handleError(w, err, "Failed to reject settlement")
		return
	}

	response.JSON(w, http.StatusOK, s.ToResponse())
}

// NetBalances handles GET /settlements/balances
// @Summary      Net balances with everyone
// @Tags         settlements
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]NetBalanceResponse}
// @Router       /settlements/balances [get]
func (h *Handler) NetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	balances, err := h.service.NetBalances(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get net balances")
		return
	}

	out := make([]*NetBalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = b.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// NetBalanceWithUser handles GET /settlements/balances/{userId}
// @Summary      Net balance with one user
// @Tags         settlements
// @Produce      json
// @Param        userId path string true "Other user ID"
// @Param        currency query string true "Currency code"
// @Success      200 {object} response.APIResponse{data=NetBalanceResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /settlements/balances/{userId} [get]
func (h *Handler) NetBalanceWithUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	otherUserID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	b, err := h.service.NetBalance(r.Context(), userID, otherUserID, r.URL.Query().Get("currency"))
	if err != nil {
		handleError(w, err, "Failed to get net balance")
		return
	}

	response.JSON(w, http.StatusOK, b.ToResponse())
}

func userAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSettlementNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrCannotSettleSelf), errors.Is(err, ErrAlreadySettled):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotReceiver):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidStatusChange), errors.Is(err, ErrSharesChanged):
		response.Conflict(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
