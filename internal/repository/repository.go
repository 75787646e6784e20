// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
//
// Every method that touches a category or todo takes the owner's userID and
// must use it as a predicate in the query itself. A row owned by someone
// else is reported exactly like a missing row.
package repository

import (
	"context"
	"time"

	"github.com/sakif/todo-tracker/internal/model"
)

type UserRepository interface {
	// CreateUser returns apperror.EmailExists when the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type CategoryRepository interface {
	// CreateCategory and UpdateCategory return apperror.CategoryExists when
	// (user, name) is already taken.
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, userID, id string) (*model.Category, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	// DeleteCategory clears category_id on the owner's todos that used it
	// and stamps their updated_at with at.
	DeleteCategory(ctx context.Context, userID, id string, at time.Time) error
}

// TodoFilter narrows ListTodos. Nil fields impose no constraint; set fields
// are combined with AND.
type TodoFilter struct {
	Status     *model.TodoStatus
	Priority   *int
	CategoryID *string
	DueBefore  *model.Date // due_date <= DueBefore
	DueAfter   *model.Date // due_date >= DueAfter
}

type TodoRepository interface {
	CreateTodo(ctx context.Context, todo *model.Todo) error
	GetTodo(ctx context.Context, userID, id string) (*model.Todo, error)
	// ListTodos orders by created_at DESC, then id DESC.
	ListTodos(ctx context.Context, userID string, filter TodoFilter) ([]model.Todo, error)
	UpdateTodo(ctx context.Context, todo *model.Todo) error
	DeleteTodo(ctx context.Context, userID, id string) error
}

// Repositories bundles every repository bound to one connection or
// transaction.
type Repositories interface {
	UserRepository
	CategoryRepository
	TodoRepository
}

// Store is the entry point the services hold.
//
// WithTx runs fn inside a single transaction: it commits when fn returns nil
// and rolls back otherwise, so an operation is never partially applied.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
	Close() error
}
