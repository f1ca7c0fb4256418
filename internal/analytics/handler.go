package analytics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for spending reports
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for analytics endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/summary", h.Summary)
	r.Get("/trends", h.Trends)

	return r
}

// Summary handles GET /analytics/summary
// @Summary      Yearly spending summary
// @Description  Monthly and category breakdown of a year in the base currency, with the current budget summary
// @Tags         analytics
// @Produce      json
// @Param        year query int false "Calendar year, defaults to the current one"
// @Success      200 {object} response.APIResponse{data=YearlySummary}
// @Failure      400 {object} response.APIResponse
// @Router       /analytics/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		var err error
		if year, err = strconv.Atoi(raw); err != nil {
			response.BadRequest(w, "Invalid year")
			return
		}
	}

	s, err := h.service.Yearly(r.Context(), userID, year)
	if err != nil {
		h.handleError(w, err, "Failed to build summary")
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// Trends handles GET /analytics/trends
// @Summary      Monthly spending trend
// @Description  Spending of the last months with the change against the month before
// @Tags         analytics
// @Produce      json
// @Param        months query int false "Number of months, 1 to 24, default 6"
// @Success      200 {object} response.APIResponse{data=Trends}
// @Failure      400 {object} response.APIResponse
// @Router       /analytics/trends [get]
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		var err error
		if months, err = strconv.Atoi(raw); err != nil {
			response.BadRequest(w, "Invalid months")
			return
		}
	}

	t, err := h.service.Trends(r.Context(), userID, months)
	if err != nil {
		h.handleError(w, err, "Failed to build trends")
		return
	}
	response.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
