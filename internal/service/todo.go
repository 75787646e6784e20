package service

import (
	"context"
	"log/slog"

	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// TodoService manages a user's todos and keeps completed_at consistent with
// the status.
type TodoService struct {
	store  repository.Store
	logger *slog.Logger
	now    Clock
}

func NewTodoService(store repository.Store, logger *slog.Logger) *TodoService {
	return &TodoService{store: store, logger: logger, now: systemClock}
}

// Create stores a new pending todo. A category reference must belong to the
// same user.
func (s *TodoService) Create(ctx context.Context, userID string, in model.NewTodo) (*model.Todo, error) {
	now := stamp(s.now)
	t := &model.Todo{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusPending,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		if err := checkCategory(ctx, r, userID, t.CategoryID); err != nil {
			return err
		}
		return r.CreateTodo(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("todo created", slog.String("userID", userID), slog.String("todoID", t.ID))
	return t, nil
}

func (s *TodoService) Get(ctx context.Context, userID, id string) (*model.Todo, error) {
	return s.store.GetTodo(ctx, userID, id)
}

// List returns the user's todos matching every set filter, newest first.
func (s *TodoService) List(ctx context.Context, userID string, filter repository.TodoFilter) ([]model.Todo, error) {
	return s.store.ListTodos(ctx, userID, filter)
}

// Update applies a partial update. Fields left out of the patch are kept;
// nullable fields set to null are cleared.
func (s *TodoService) Update(ctx context.Context, userID, id string, patch model.TodoPatch) (*model.Todo, error) {
	var t *model.Todo
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		var err error
		t, err = r.GetTodo(ctx, userID, id)
		if err != nil {
			return err
		}
		if patch.CategoryID.Set {
			if err := checkCategory(ctx, r, userID, patch.CategoryID.Value); err != nil {
				return err
			}
		}

		before := t.Status
		patch.Apply(t, stamp(s.now))
		if t.Status != before {
			s.logger.Debug("todo status changed",
				slog.String("todoID", t.ID),
				slog.String("from", string(before)),
				slog.String("to", string(t.Status)),
			)
		}
		return r.UpdateTodo(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	return s.store.WithTx(ctx, func(r repository.Repositories) error {
		return r.DeleteTodo(ctx, userID, id)
	})
}

// checkCategory fails with CategoryNotFound unless categoryID is nil or a
// category owned by userID.
func checkCategory(ctx context.Context, r repository.CategoryRepository, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	_, err := r.GetCategory(ctx, userID, *categoryID)
	return err
}
