package middleware

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/legacyvault/internal/server/handlers"
)

// AuthMiddleware пропускает запрос только с действующим access JWT.
// Пользователь и его роль попадают в контекст запроса.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			bearer, err := handlers.BearerToken(r)
			if err != nil {
				logger.DebugContext(ctx, "missing or malformed authorization header",
					slog.String("path", sanitizePath(r.URL.Path)))
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, bearer)
			if err != nil {
				logger.WarnContext(ctx, "access token rejected",
					slog.String("path", sanitizePath(r.URL.Path)),
					slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(ctx, claims)))
		})
	}
}
