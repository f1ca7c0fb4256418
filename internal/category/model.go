package category

import (
	"time"

	"github.com/google/uuid"
)

// Category is a spending category. A nil ParentID marks a primary category;
// otherwise it is a subcategory of that primary.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Color     *string    `json:"color,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsPrimary reports whether the category sits at the top of the hierarchy
func (c *Category) IsPrimary() bool {
	return c.ParentID == nil
}
