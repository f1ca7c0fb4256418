package category

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/finance/pkg/middleware"
	"github.com/fkhayef/finance/pkg/response"
)

// Handler handles HTTP requests for category operations
type Handler struct {
	service *Service
}

// NewHandler creates a new category handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for category endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/tree", h.Tree)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// Create handles POST /categories
// @Summary      Create a category
// @Description  Create a primary category, or a subcategory when parent_id is set
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body CreateCategoryRequest true "Category creation request"
// @Success      201 {object} response.APIResponse{data=CategoryResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /categories [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		h.handleError(w, err, "Failed to create category")
		return
	}

	response.JSON(w, http.StatusCreated, c.ToResponse())
}

// List handles GET /categories
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]CategoryResponse}
// @Router       /categories [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	categories, err := h.service.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list categories")
		return
	}

	out := make([]*CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = c.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// Tree handles GET /categories/tree
// @Summary      Category tree
// @Description  Primary categories with their subcategories
// @Tags         categories
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]TreeResponse}
// @Router       /categories/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}

	hierarchy, err := h.service.Hierarchy(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to load categories")
		return
	}

	nodes := hierarchy.Tree()
	out := make([]*TreeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = n.toResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// GetByID handles GET /categories/{id}
// @Summary      Get category by ID
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} response.APIResponse{data=CategoryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /categories/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid category ID")
		return
	}

	c, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		h.handleError(w, err, "Failed to get category")
		return
	}

	response.JSON(w, http.StatusOK, c.ToResponse())
}

// Update handles PUT /categories/{id}
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID"
// @Param        request body UpdateCategoryRequest true "Category update request"
// @Success      200 {object} response.APIResponse{data=CategoryResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /categories/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid category ID")
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.Update(r.Context(), userID, id, &req)
	if err != nil {
		h.handleError(w, err, "Failed to update category")
		return
	}

	response.JSON(w, http.StatusOK, c.ToResponse())
}

// Delete handles DELETE /categories/{id}
// @Summary      Delete a category
// @Tags         categories
// @Param        id path string true "Category ID"
// @Success      204
// @Failure      409 {object} response.APIResponse
// @Router       /categories/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing user")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid category ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.handleError(w, err, "Failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrHasSubcategories), errors.Is(err, ErrCategoryInUse):
		response.Conflict(w, err.Error())
	case response.DomainError(w, err):
	default:
		response.InternalError(w, fallback)
	}
}
