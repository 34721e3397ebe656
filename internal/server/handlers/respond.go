package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/legacyvault/internal/vaulterr"
	"github.com/iudanet/legacyvault/pkg/api"
)

// maxBodyBytes ограничивает размер JSON тела запроса
const maxBodyBytes = 1 << 20

// responder - общие методы формирования JSON ответов
type responder struct {
	logger *slog.Logger
}

// sendJSON отправляет JSON ответ
func (rs responder) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (rs responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	rs.sendJSON(w, resp, statusCode)
}

// sendServiceError переводит ошибку сервисного слоя в HTTP статус.
// Причина отказа в разблокировке наружу не отдается, она есть только в audit log.
func (rs responder) sendServiceError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, vaulterr.ErrValidation):
		rs.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, vaulterr.ErrNotFound):
		rs.sendError(w, "not found", http.StatusNotFound)
	case errors.Is(err, vaulterr.ErrInvalidToken), errors.Is(err, vaulterr.ErrRestrictionViolation):
		rs.sendError(w, "access denied", http.StatusForbidden)
	case errors.Is(err, vaulterr.ErrSearchDisabled):
		rs.sendError(w, "search is disabled for this vault", http.StatusForbidden)
	case errors.Is(err, vaulterr.ErrForbidden):
		rs.sendError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, vaulterr.ErrStateConflict):
		rs.sendError(w, err.Error(), http.StatusConflict)
	default:
		rs.logger.ErrorContext(ctx, "failed to "+op, slog.Any("error", err))
		rs.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON читает тело запроса с ограничением размера
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
