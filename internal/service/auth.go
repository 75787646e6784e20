// Package service holds the business rules of the todo tracker.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → enforces ownership and lifecycle rules
//	Repository      → reads and writes rows
//
// Services depend on repository.Store (an interface), never on a concrete
// backend, so tests can hand them an in-memory SQLite store or a fake.
//
// TRANSACTIONS:
// Every operation that writes runs inside exactly one Store.WithTx call.
// Inside the callback only the Repositories passed in may be used; the
// SQLite backend has a single connection, and the transaction holds it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// Clock returns the current time. Services store it truncated to
// microseconds in UTC, which both backends round-trip exactly.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func stamp(c Clock) time.Time {
	return c().UTC().Truncate(time.Microsecond)
}

// AuthService registers users, logs them in and resolves bearer tokens.
type AuthService struct {
	store     repository.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       Clock
}

func NewAuthService(
	store repository.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       systemClock,
	}
}

var _ auth.Authenticator = (*AuthService)(nil)

// Register creates a user. The email must not be registered yet.
//
// The existence check gives the common case a clean error; the UNIQUE
// constraint on users.email settles concurrent registrations and is
// reported the same way.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	// Hash before opening the transaction; bcrypt is slow and the SQLite
	// transaction holds the only connection.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password: must be at most %d bytes", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    stamp(s.now),
	}

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		_, err := r.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return apperror.EmailExists()
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
		return r.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return user, nil
}

// Login checks the credentials and issues an access token. An unknown email
// and a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.InvalidCredentials()
		}
		return "", err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug("login rejected", slog.String("userID", user.ID))
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to the ID of a user that still
// exists. It backs auth.RequireAuth.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Resolve(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", apperror.TokenExpired()
		}
		return "", apperror.TokenInvalid()
	}

	if _, err := s.CurrentUser(ctx, userID); err != nil {
		return "", err
	}
	return userID, nil
}

// CurrentUser returns the authenticated user. A token for a deleted user is
// treated as an invalid token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.TokenInvalid()
		}
		return nil, err
	}
	return user, nil
}
