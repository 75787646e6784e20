package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// newTestDB opens a fresh in-memory database with migrations applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "$2a$04$notarealhash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestDSN(t *testing.T) {
	got := dsn(":memory:")
	want := ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	if got != want {
		t.Errorf("dsn() = %q, want %q", got, want)
	}

	if got := dsn("file:todo.db?mode=rwc"); !strings.HasPrefix(got, "file:todo.db?mode=rwc&_pragma=") {
		t.Errorf("dsn() should append with &, got %q", got)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t)

	var enabled int
	if err := db.conn.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		t.Fatalf("reading pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "tx@example.com")

	err := db.WithTx(ctx, func(r repository.Repositories) error {
		return r.CreateCategory(ctx, &model.Category{UserID: user.ID, Name: "Work"})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	cats, err := db.ListCategories(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("len(categories) = %d, want 1", len(cats))
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "rollback@example.com")
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(r repository.Repositories) error {
		if err := r.CreateCategory(ctx, &model.Category{UserID: user.ID, Name: "Work"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want %v", err, boom)
	}

	cats, err := db.ListCategories(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("len(categories) = %d, want 0 after rollback", len(cats))
	}
}

func TestWithTx_Nested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "nested@example.com")

	err := db.WithTx(ctx, func(r repository.Repositories) error {
		inner, ok := r.(*DB)
		if !ok {
			t.Fatalf("repositories are %T, want *DB", r)
		}
		return inner.WithTx(ctx, func(r repository.Repositories) error {
			return r.CreateCategory(ctx, &model.Category{UserID: user.ID, Name: "Inner"})
		})
	})
	if err != nil {
		t.Fatalf("nested WithTx() error = %v", err)
	}
}

// =========================================================================
// USER TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "new@example.com")

	if user.ID == "" {
		t.Error("CreateUser() did not set ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set CreatedAt")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dupe@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "dupe@example.com", PasswordHash: "x"})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeEmailExists {
		t.Fatalf("CreateUser() error = %v, want EMAIL_EXISTS", err)
	}
}

func TestCreateUser_EmailIsCaseSensitive(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "case@example.com")

	if err := db.CreateUser(context.Background(), &model.User{Email: "Case@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser() with different case error = %v", err)
	}
}

func TestGetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created := createTestUser(t, db, "get@example.com")

	byID, err := db.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Email != "get@example.com" || byID.PasswordHash != created.PasswordHash {
		t.Errorf("GetUserByID() = %+v", byID)
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", byID.CreatedAt, created.CreatedAt)
	}

	byEmail, err := db.GetUserByEmail(ctx, "get@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("GetUserByEmail().ID = %q, want %q", byEmail.ID, created.ID)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUserByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByEmail(ctx, "ghost@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}
