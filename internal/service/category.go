package service

import (
	"context"
	"log/slog"

	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// CategoryService manages a user's categories. Names are unique per user;
// the storage constraint decides collisions.
type CategoryService struct {
	store  repository.Store
	logger *slog.Logger
	now    Clock
}

func NewCategoryService(store repository.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: store, logger: logger, now: systemClock}
}

func (s *CategoryService) Create(ctx context.Context, userID, name string) (*model.Category, error) {
	c := &model.Category{
		UserID:    userID,
		Name:      name,
		CreatedAt: stamp(s.now),
	}

	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		return r.CreateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("category created", slog.String("userID", userID), slog.String("categoryID", c.ID))
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, id string) (*model.Category, error) {
	return s.store.GetCategory(ctx, userID, id)
}

// List returns the user's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, userID string) ([]model.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

// Rename changes the category name. A nil name leaves the category as is
// and returns it.
func (s *CategoryService) Rename(ctx context.Context, userID, id string, name *string) (*model.Category, error) {
	var c *model.Category
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		var err error
		c, err = r.GetCategory(ctx, userID, id)
		if err != nil || name == nil {
			return err
		}
		c.Name = *name
		return r.UpdateCategory(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the category. Todos that referenced it keep existing with
// no category, and their updated_at moves to now.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	at := stamp(s.now)
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		return r.DeleteCategory(ctx, userID, id, at)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("category deleted", slog.String("userID", userID), slog.String("categoryID", id))
	return nil
}
