package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/handlers"
)

// setupTestLogger - логгер, пишущий только ошибки
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func testJWTConfig(secret string, ttl time.Duration) handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:          []byte(secret),
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
}

func rejectingHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	})
}

func TestAuthMiddleware_Success(t *testing.T) {
	logger := setupTestLogger()
	jwtConfig := testJWTConfig("test-secret-key", 15*time.Minute)

	tests := []struct {
		name      string
		role      string
		wantAdmin bool
	}{
		{name: "regular user", role: models.RoleUser, wantAdmin: false},
		{name: "admin", role: models.RoleAdmin, wantAdmin: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := handlers.GenerateAccessToken(jwtConfig, "user123", "testuser", tt.role)
			require.NoError(t, err)

			handler := AuthMiddleware(logger, jwtConfig)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				username, ok := handlers.GetUsername(r.Context())
				require.True(t, ok, "username should be in context")
				assert.Equal(t, "testuser", username)

				actor, ok := handlers.GetActor(r.Context())
				require.True(t, ok, "actor should be in context")
				assert.Equal(t, "user123", actor.UserID)
				assert.Equal(t, tt.wantAdmin, actor.Admin)

				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("OK"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "OK", w.Body.String())
		})
	}
}

func TestAuthMiddleware_BadAuthHeader(t *testing.T) {
	logger := setupTestLogger()
	wrappedHandler := AuthMiddleware(logger, testJWTConfig("test-secret-key", 15*time.Minute))(rejectingHandler(t))

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{name: "missing header", header: "", wantMsg: "authorization header is required"},
		{name: "no Bearer prefix", header: "token123", wantMsg: "invalid Authorization header format"},
		{name: "wrong prefix", header: "Basic token123", wantMsg: "invalid Authorization header format"},
		{name: "only Bearer", header: "Bearer", wantMsg: "invalid Authorization header format"},
		{name: "Bearer with blank token", header: "Bearer   ", wantMsg: "invalid Authorization header format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			wrappedHandler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	logger := setupTestLogger()
	wrappedHandler := AuthMiddleware(logger, testJWTConfig("test-secret-key", 15*time.Minute))(rejectingHandler(t))

	for _, token := range []string{"invalid.token.here", "randomstring123"} {
		t.Run(token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			w := httptest.NewRecorder()
			wrappedHandler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "invalid token")
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	logger := setupTestLogger()
	jwtConfig := testJWTConfig("test-secret-key", -time.Minute)

	token, _, err := handlers.GenerateAccessToken(jwtConfig, "user123", "testuser", models.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	AuthMiddleware(logger, jwtConfig)(rejectingHandler(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestAuthMiddleware_TokenWithWrongSecret(t *testing.T) {
	logger := setupTestLogger()

	token, _, err := handlers.GenerateAccessToken(testJWTConfig("secret-key-1", 15*time.Minute), "user123", "testuser", models.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	AuthMiddleware(logger, testJWTConfig("secret-key-2", 15*time.Minute))(rejectingHandler(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}
