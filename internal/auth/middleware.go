package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/todo-tracker/internal/apperror"
)

// contextKey is package-private so no other package can read or shadow the
// user ID stored in the request context.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticator turns a bearer token into the ID of an existing user.
// Failures are *apperror.AppError values (TokenExpired, TokenInvalid).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// header and stores the authenticated user ID in the request context.
//
// Chi applies middlewares as a chain: req → M1 → M2 → Handler → M2 → M1 → resp.
// When RequireAuth rejects a request, the handler never runs.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, apperror.NotAuthenticated())
				return
			}

			userID, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the ID stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a copy of ctx carrying userID. Handler tests use it to
// skip the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, err error) {
	if status := apperror.Write(w, err); status == http.StatusInternalServerError {
		slog.Error("authenticating request", slog.String("error", err.Error()))
	}
}
