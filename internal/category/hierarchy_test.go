package category

import (
	"testing"

	"github.com/google/uuid"
)

func fixture() (food, groceries, dining, travel *Category, all []*Category) {
	user := uuid.New()
	food = &Category{ID: uuid.New(), UserID: user, Name: "Food"}
	travel = &Category{ID: uuid.New(), UserID: user, Name: "Travel"}
	groceries = &Category{ID: uuid.New(), UserID: user, Name: "Groceries", ParentID: &food.ID}
	dining = &Category{ID: uuid.New(), UserID: user, Name: "Dining", ParentID: &food.ID}
	return food, groceries, dining, travel, []*Category{groceries, travel, dining, food}
}

func TestHierarchyParent(t *testing.T) {
	food, groceries, _, _, all := fixture()
	h := NewHierarchy(all)

	parent, ok := h.Parent(groceries.ID)
	if !ok || parent == nil || *parent != food.ID {
		t.Errorf("Parent(groceries) = %v, %v; want food", parent, ok)
	}

	parent, ok = h.Parent(food.ID)
	if !ok || parent != nil {
		t.Errorf("Parent(food) = %v, %v; want nil, true", parent, ok)
	}

	if _, ok := h.Parent(uuid.New()); ok {
		t.Error("Parent(unknown) reported ok")
	}
}

func TestHierarchyIsPrimary(t *testing.T) {
	food, groceries, _, _, all := fixture()
	h := NewHierarchy(all)

	if !h.IsPrimary(food.ID) {
		t.Error("food should be primary")
	}
	if h.IsPrimary(groceries.ID) {
		t.Error("groceries should not be primary")
	}
	if h.IsPrimary(uuid.New()) {
		t.Error("unknown id should not be primary")
	}
}

func TestHierarchyTree(t *testing.T) {
	food, groceries, dining, travel, all := fixture()
	h := NewHierarchy(all)

	tree := h.Tree()
	if len(tree) != 2 {
		t.Fatalf("len(Tree()) = %d, want 2", len(tree))
	}
	if tree[0].ID != food.ID || tree[1].ID != travel.ID {
		t.Errorf("primaries = %s, %s; want Food, Travel", tree[0].Name, tree[1].Name)
	}

	subs := tree[0].Subcategories
	if len(subs) != 2 || subs[0].ID != dining.ID || subs[1].ID != groceries.ID {
		t.Errorf("Food subcategories not ordered by name: %v", subs)
	}
	if len(tree[1].Subcategories) != 0 {
		t.Errorf("Travel has %d subcategories, want 0", len(tree[1].Subcategories))
	}
}
