package category

import (
	"sort"

	"github.com/google/uuid"
)

// Hierarchy is an immutable index over one user's categories. It is safe for
// concurrent use.
type Hierarchy struct {
	byID     map[uuid.UUID]*Category
	children map[uuid.UUID][]uuid.UUID
}

// NewHierarchy indexes categories. Subcategories whose parent is absent are
// kept but have no primary to roll up into.
func NewHierarchy(categories []*Category) *Hierarchy {
	h := &Hierarchy{
		byID:     make(map[uuid.UUID]*Category, len(categories)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, c := range categories {
		h.byID[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			h.children[*c.ParentID] = append(h.children[*c.ParentID], c.ID)
		}
	}
	return h
}

// Get returns a category by id
func (h *Hierarchy) Get(id uuid.UUID) (*Category, bool) {
	c, ok := h.byID[id]
	return c, ok
}

// Exists reports whether id is a known category
func (h *Hierarchy) Exists(id uuid.UUID) bool {
	_, ok := h.byID[id]
	return ok
}

// Parent returns the parent of id. ok is false when id is unknown; parent is
// nil for a primary category.
func (h *Hierarchy) Parent(id uuid.UUID) (parent *uuid.UUID, ok bool) {
	c, ok := h.byID[id]
	if !ok {
		return nil, false
	}
	return c.ParentID, true
}

// IsPrimary reports whether id is a known primary category
func (h *Hierarchy) IsPrimary(id uuid.UUID) bool {
	c, ok := h.byID[id]
	return ok && c.IsPrimary()
}

// Children returns the subcategories of id ordered by name
func (h *Hierarchy) Children(id uuid.UUID) []*Category {
	ids := h.children[id]
	out := make([]*Category, 0, len(ids))
	for _, childID := range ids {
		out = append(out, h.byID[childID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Primaries returns every primary category ordered by name
func (h *Hierarchy) Primaries() []*Category {
	var out []*Category
	for _, c := range h.byID {
		if c.IsPrimary() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tree returns the primaries with their subcategories
func (h *Hierarchy) Tree() []*Node {
	primaries := h.Primaries()
	nodes := make([]*Node, len(primaries))
	for i, p := range primaries {
		nodes[i] = &Node{Category: p, Subcategories: h.Children(p.ID)}
	}
	return nodes
}

// Node is a primary category with its subcategories
type Node struct {
	*Category
	Subcategories []*Category `json:"subcategories"`
}
