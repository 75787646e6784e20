package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

var _ repository.TodoRepository = (*DB)(nil)

const todoColumns = `id, user_id, category_id, title, description, status,
	priority, due_date, created_at, updated_at, completed_at`

func (db *DB) CreateTodo(ctx context.Context, t *model.Todo) error {
	t.ID = xid.New().String()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO todos (`+todoColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID,
		t.UserID,
		t.CategoryID,
		t.Title,
		t.Description,
		string(t.Status),
		t.Priority,
		dateArg(t.DueDate),
		t.CreatedAt,
		t.UpdatedAt,
		t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting todo: %w", err)
	}
	return nil
}

func (db *DB) GetTodo(ctx context.Context, userID, id string) (*model.Todo, error) {
	t, err := scanTodo(db.q.QueryRow(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.TodoNotFound()
		}
		return nil, fmt.Errorf("postgres: getting todo %s: %w", id, err)
	}
	return t, nil
}

func (db *DB) ListTodos(ctx context.Context, userID string, f repository.TodoFilter) ([]model.Todo, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.Priority != nil {
		add("priority = $%d", *f.Priority)
	}
	if f.CategoryID != nil {
		add("category_id = $%d", *f.CategoryID)
	}
	if f.DueBefore != nil {
		add("due_date <= $%d", f.DueBefore.Time())
	}
	if f.DueAfter != nil {
		add("due_date >= $%d", f.DueAfter.Time())
	}

	rows, err := db.q.Query(ctx,
		`SELECT `+todoColumns+` FROM todos
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating todos: %w", err)
	}
	return todos, nil
}

func (db *DB) UpdateTodo(ctx context.Context, t *model.Todo) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE todos SET
			category_id = $1, title = $2, description = $3, status = $4,
			priority = $5, due_date = $6, updated_at = $7, completed_at = $8
		 WHERE id = $9 AND user_id = $10`,
		t.CategoryID,
		t.Title,
		t.Description,
		string(t.Status),
		t.Priority,
		dateArg(t.DueDate),
		t.UpdatedAt,
		t.CompletedAt,
		t.ID,
		t.UserID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating todo %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.TodoNotFound()
	}
	return nil
}

func (db *DB) DeleteTodo(ctx context.Context, userID, id string) error {
	tag, err := db.q.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: deleting todo %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.TodoNotFound()
	}
	return nil
}

// dateArg passes a due date as time.Time so pgx encodes it with the DATE
// codec. A nil date becomes SQL NULL.
func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.Time()
}

func scanTodo(row pgx.Row) (*model.Todo, error) {
	var (
		t       model.Todo
		status  string
		dueDate *time.Time
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CategoryID,
		&t.Title,
		&t.Description,
		&status,
		&t.Priority,
		&dueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = model.TodoStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.CompletedAt != nil {
		utc := t.CompletedAt.UTC()
		t.CompletedAt = &utc
	}
	if dueDate != nil {
		d := model.DateOf(*dueDate)
		t.DueDate = &d
	}
	return &t, nil
}
