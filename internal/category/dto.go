package category

import "github.com/google/uuid"

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	Name     string     `json:"name" validate:"required,min=1,max=100"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Color    *string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateCategoryRequest represents the request to update a category
type UpdateCategoryRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color    *string `json:"color,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// CategoryResponse represents the response for a category
type CategoryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Color     *string    `json:"color,omitempty"`
	IsPrimary bool       `json:"is_primary"`
	IsActive  bool       `json:"is_active"`
	CreatedAt string     `json:"created_at"`
}

// TreeResponse is a primary category with its subcategories
type TreeResponse struct {
	CategoryResponse
	Subcategories []*CategoryResponse `json:"subcategories"`
}

// ToResponse converts a Category model to a CategoryResponse DTO
func (c *Category) ToResponse() *CategoryResponse {
	return &CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		ParentID:  c.ParentID,
		Color:     c.Color,
		IsPrimary: c.IsPrimary(),
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (n *Node) toResponse() *TreeResponse {
	resp := &TreeResponse{
		CategoryResponse: *n.Category.ToResponse(),
		Subcategories:    make([]*CategoryResponse, len(n.Subcategories)),
	}
	for i, sub := range n.Subcategories {
		resp.Subcategories[i] = sub.ToResponse()
	}
	return resp
}
