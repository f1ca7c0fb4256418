package category

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/apperr"
)

type memStore struct {
	categories map[uuid.UUID]*Category
	referenced map[uuid.UUID]bool
}

func newMemStore(cs ...*Category) *memStore {
	s := &memStore{categories: map[uuid.UUID]*Category{}, referenced: map[uuid.UUID]bool{}}
	for _, c := range cs {
		s.categories[c.ID] = c
	}
	return s
}

func (s *memStore) Create(_ context.Context, userID uuid.UUID, req *CreateCategoryRequest) (*Category, error) {
	c := &Category{ID: uuid.New(), UserID: userID, Name: req.Name, ParentID: req.ParentID, Color: req.Color, IsActive: true, CreatedAt: time.Now()}
	s.categories[c.ID] = c
	return c, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Category, error) {
	return s.categories[id], nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Category, error) {
	var out []*Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, req *UpdateCategoryRequest) (*Category, error) {
	c := s.categories[id]
	if req.Name != nil {
		c.Name = *req.Name
	}
	return c, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.categories, id)
	return nil
}

func (s *memStore) CountChildren(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (s *memStore) IsReferencedByBudget(_ context.Context, id uuid.UUID) (bool, error) {
	return s.referenced[id], nil
}

func TestServiceCreate(t *testing.T) {
	food, groceries, _, _, all := fixture()
	svc := NewService(newMemStore(all...))
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    uuid.UUID
		req       CreateCategoryRequest
		wantField string
	}{
		{name: "primary", userID: food.UserID, req: CreateCategoryRequest{Name: "Health"}},
		{name: "subcategory", userID: food.UserID, req: CreateCategoryRequest{Name: "Snacks", ParentID: &food.ID}},
		{name: "blank name", userID: food.UserID, req: CreateCategoryRequest{Name: "  "}, wantField: "name"},
		{name: "third level", userID: food.UserID, req: CreateCategoryRequest{Name: "Organic", ParentID: &groceries.ID}, wantField: "parent_id"},
		{name: "foreign parent", userID: uuid.New(), req: CreateCategoryRequest{Name: "Snacks", ParentID: &food.ID}, wantField: "parent_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.Create(ctx, tt.userID, &tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if c.UserID != tt.userID {
					t.Errorf("UserID = %s, want %s", c.UserID, tt.userID)
				}
				return
			}

			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation || ae.Field != tt.wantField {
				t.Errorf("Create() error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}
}

func TestServiceGetByIDHidesOtherUsers(t *testing.T) {
	food, _, _, _, all := fixture()
	svc := NewService(newMemStore(all...))

	if _, err := svc.GetByID(context.Background(), uuid.New(), food.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("GetByID() error = %v, want ErrCategoryNotFound", err)
	}
}

func TestServiceDelete(t *testing.T) {
	food, groceries, _, travel, all := fixture()
	store := newMemStore(all...)
	store.referenced[travel.ID] = true
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.Delete(ctx, food.UserID, food.ID); !errors.Is(err, ErrHasSubcategories) {
		t.Errorf("Delete(food) error = %v, want ErrHasSubcategories", err)
	}
	if err := svc.Delete(ctx, food.UserID, travel.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Errorf("Delete(travel) error = %v, want ErrCategoryInUse", err)
	}
	if err := svc.Delete(ctx, food.UserID, groceries.ID); err != nil {
		t.Errorf("Delete(groceries) error = %v", err)
	}
	if _, ok := store.categories[groceries.ID]; ok {
		t.Error("groceries still stored after delete")
	}
}
