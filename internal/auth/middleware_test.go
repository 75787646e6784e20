package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-tracker/internal/apperror"
)

type authenticatorFunc func(ctx context.Context, token string) (string, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// stubAuthenticator accepts only "good-token" and reports expired for "old-token".
var stubAuthenticator = authenticatorFunc(func(_ context.Context, token string) (string, error) {
	switch token {
	case "good-token":
		return "user-1", nil
	case "old-token":
		return "", apperror.TokenExpired()
	case "boom":
		return "", errors.New("database is down")
	}
	return "", apperror.TokenInvalid()
})

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, ""},
		{"lowercase scheme", "bearer good-token", http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, apperror.CodeNotAuthenticated},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, apperror.CodeNotAuthenticated},
		{"scheme only", "Bearer", http.StatusUnauthorized, apperror.CodeNotAuthenticated},
		{"blank token", "Bearer   ", http.StatusUnauthorized, apperror.CodeNotAuthenticated},
		{"expired token", "Bearer old-token", http.StatusUnauthorized, apperror.CodeTokenExpired},
		{"invalid token", "Bearer forged", http.StatusUnauthorized, apperror.CodeInvalidToken},
		{"authenticator failure", "Bearer boom", http.StatusInternalServerError, apperror.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			RequireAuth(stubAuthenticator)(next).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "user-1", gotUser)
				return
			}

			assert.Empty(t, gotUser, "handler must not run")
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["detail"])
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
