package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

var _ repository.TodoRepository = (*DB)(nil)

const todoColumns = `id, user_id, category_id, title, description, status,
	priority, due_date, created_at, updated_at, completed_at`

// CreateTodo inserts t and assigns its ID. Timestamps left zero are filled
// with the current time.
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

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.CategoryID,
		t.Title,
		t.Description,
		string(t.Status),
		t.Priority,
		t.DueDate,
		t.CreatedAt,
		t.UpdatedAt,
		t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting todo: %w", err)
	}
	return nil
}

func (db *DB) GetTodo(ctx context.Context, userID, id string) (*model.Todo, error) {
	t, err := scanTodo(db.q.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.TodoNotFound()
		}
		return nil, fmt.Errorf("sqlite: getting todo %s: %w", id, err)
	}
	return t, nil
}

// ListTodos returns the user's todos matching every set filter field,
// newest first. due_date is stored as YYYY-MM-DD text, so the range
// predicates compare strings.
func (db *DB) ListTodos(ctx context.Context, userID string, f repository.TodoFilter) ([]model.Todo, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, *f.Priority)
	}
	if f.CategoryID != nil {
		where = append(where, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.DueBefore != nil {
		where = append(where, "due_date <= ?")
		args = append(args, f.DueBefore.String())
	}
	if f.DueAfter != nil {
		where = append(where, "due_date >= ?")
		args = append(args, f.DueAfter.String())
	}

	query := `SELECT ` + todoColumns + ` FROM todos
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC`

	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating todos: %w", err)
	}
	return todos, nil
}

// UpdateTodo overwrites every mutable column of t. The service computes the
// new values (including completed_at and updated_at) before calling.
func (db *DB) UpdateTodo(ctx context.Context, t *model.Todo) error {
	result, err := db.q.ExecContext(ctx,
		`UPDATE todos SET
			category_id = ?, title = ?, description = ?, status = ?,
			priority = ?, due_date = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND user_id = ?`,
		t.CategoryID,
		t.Title,
		t.Description,
		string(t.Status),
		t.Priority,
		t.DueDate,
		t.UpdatedAt,
		t.CompletedAt,
		t.ID,
		t.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating todo %s: %w", t.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.TodoNotFound()
	}
	return nil
}

func (db *DB) DeleteTodo(ctx context.Context, userID, id string) error {
	result, err := db.q.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.TodoNotFound()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*model.Todo, error) {
	var (
		t           model.Todo
		status      string
		categoryID  sql.Null[string]
		description sql.Null[string]
		priority    sql.Null[int64]
		dueDate     sql.Null[model.Date]
		completedAt sql.Null[time.Time]
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&categoryID,
		&t.Title,
		&description,
		&status,
		&priority,
		&dueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = model.TodoStatus(status)
	t.CategoryID = nullable(categoryID)
	t.Description = nullable(description)
	t.DueDate = nullable(dueDate)
	t.CompletedAt = nullable(completedAt)
	if priority.Valid {
		p := int(priority.V)
		t.Priority = &p
	}
	return &t, nil
}
