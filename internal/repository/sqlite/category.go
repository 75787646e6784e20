package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

// categoryNameColumns is how SQLite names the (user_id, name) constraint in
// its error messages.
const categoryNameColumns = "categories.user_id, categories.name"

func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	c.ID = xid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, categoryNameColumns) {
			return apperror.CategoryExists()
		}
		return fmt.Errorf("sqlite: inserting category: %w", err)
	}
	return nil
}

func (db *DB) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	var c model.Category
	err := db.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.CategoryNotFound()
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return &c, nil
}

// ListCategories returns the user's categories by name, then id.
// It returns an empty (non-nil) slice when there are none.
func (db *DB) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories
		 WHERE user_id = ?
		 ORDER BY name ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory writes the name. CreatedAt is never touched.
func (db *DB) UpdateCategory(ctx context.Context, c *model.Category) error {
	result, err := db.q.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.ID, c.UserID,
	)
	if err != nil {
		if isUniqueViolation(err, categoryNameColumns) {
			return apperror.CategoryExists()
		}
		return fmt.Errorf("sqlite: updating category %s: %w", c.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.CategoryNotFound()
	}
	return nil
}

// DeleteCategory unlinks the category's todos, bumping their updated_at, and
// then removes the category. ON DELETE SET NULL on todos.category_id stays
// in the schema as a backstop. Call it inside WithTx so both statements
// commit together.
func (db *DB) DeleteCategory(ctx context.Context, userID, id string, at time.Time) error {
	if at.IsZero() {
		at = now()
	}
	if _, err := db.q.ExecContext(ctx,
		`UPDATE todos SET category_id = NULL, updated_at = ? WHERE category_id = ? AND user_id = ?`,
		at, id, userID,
	); err != nil {
		return fmt.Errorf("sqlite: unlinking todos from category %s: %w", id, err)
	}

	result, err := db.q.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.CategoryNotFound()
	}
	return nil
}
