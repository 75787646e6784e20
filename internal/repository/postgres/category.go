package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	c.ID = xid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Name, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintCategoryName) {
			return apperror.CategoryExists()
		}
		return fmt.Errorf("postgres: inserting category: %w", err)
	}
	return nil
}

func (db *DB) GetCategory(ctx context.Context, userID, id string) (*model.Category, error) {
	c, err := scanCategory(db.q.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE id = $1 AND user_id = $2`,
		id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.CategoryNotFound()
		}
		return nil, fmt.Errorf("postgres: getting category %s: %w", id, err)
	}
	return c, nil
}

// ListCategories orders with COLLATE "C" so names sort bytewise, matching
// the SQLite backend regardless of the database locale.
func (db *DB) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := db.q.Query(ctx,
		`SELECT id, user_id, name, created_at FROM categories
		 WHERE user_id = $1
		 ORDER BY name COLLATE "C" ASC, id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating categories: %w", err)
	}
	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *model.Category) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2 AND user_id = $3`,
		c.Name, c.ID, c.UserID)
	if err != nil {
		if isUniqueViolation(err, constraintCategoryName) {
			return apperror.CategoryExists()
		}
		return fmt.Errorf("postgres: updating category %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.CategoryNotFound()
	}
	return nil
}

// DeleteCategory unlinks the category's todos with an explicit UPDATE so
// their updated_at moves; ON DELETE SET NULL only backs it up.
func (db *DB) DeleteCategory(ctx context.Context, userID, id string, at time.Time) error {
	if at.IsZero() {
		at = now()
	}
	if _, err := db.q.Exec(ctx,
		`UPDATE todos SET category_id = NULL, updated_at = $1 WHERE category_id = $2 AND user_id = $3`,
		at, id, userID,
	); err != nil {
		return fmt.Errorf("postgres: unlinking todos from category %s: %w", id, err)
	}

	tag, err := db.q.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: deleting category %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.CategoryNotFound()
	}
	return nil
}

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
