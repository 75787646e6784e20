package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/repository"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestAuthService(t *testing.T, store repository.Store) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	return NewAuthService(store, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), discardLogger())
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	svc := newTestAuthService(t, newTestStore(t))
	clock := newTestClock()
	svc.now = clock.Now

	user, err := svc.Register(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"), "password must be stored as a bcrypt hash")
	assert.True(t, user.CreatedAt.Equal(stamp(clock.Now)))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "another-password")
	assert.Equal(t, apperror.CodeEmailExists, errCode(err))
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store)

	_, err := svc.Register(context.Background(), "alice@example.com", strings.Repeat("x", 73))
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Zero(t, store.txCalls, "nothing should be written")
}

func TestRegister_StorageFailure(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("disk full")
	svc := newTestAuthService(t, store)

	_, err := svc.Register(context.Background(), "alice@example.com", "password123")
	require.Error(t, err)
	assert.Empty(t, errCode(err), "storage failures must stay internal")
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t, newTestStore(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	userID, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLogin_BadCredentialsLookTheSame(t *testing.T) {
	svc := newTestAuthService(t, newTestStore(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice@example.com", "wrong-password")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "password123")

	assert.Equal(t, apperror.CodeInvalidCredentials, errCode(wrongPassword))
	assert.Equal(t, apperror.CodeInvalidCredentials, errCode(unknownEmail))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_StorageFailureIsNotInvalidCredentials(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection reset")
	svc := newTestAuthService(t, store)

	_, err := svc.Login(context.Background(), "alice@example.com", "password123")
	require.Error(t, err)
	assert.NotEqual(t, apperror.CodeInvalidCredentials, errCode(err))
}

// =========================================================================
// Authenticate / CurrentUser TESTS
// =========================================================================

func TestAuthenticate_TokenErrors(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore())
	ctx := context.Background()

	expired, err := svc.tokens.IssueWithTTL("user-1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, expired)
	assert.Equal(t, apperror.CodeTokenExpired, errCode(err))

	_, err = svc.Authenticate(ctx, "garbage")
	assert.Equal(t, apperror.CodeInvalidToken, errCode(err))
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore())

	token, err := svc.tokens.Issue("user-that-never-existed")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	assert.Equal(t, apperror.CodeInvalidToken, errCode(err))
}

func TestCurrentUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	got, err := svc.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = svc.CurrentUser(ctx, "missing")
	assert.Equal(t, apperror.CodeInvalidToken, errCode(err))
}
