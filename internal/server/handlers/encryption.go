package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/server/storage"
	"github.com/iudanet/legacyvault/pkg/api"
)

// EncryptionHandler хранит конверт мастер-ключа пользователя.
// Сервер получает только зашифрованный мастер-ключ, соль и параметры KDF.
type EncryptionHandler struct {
	responder
	userStorage storage.UserStorage
}

// NewEncryptionHandler создает новый handler настройки шифрования
func NewEncryptionHandler(logger *slog.Logger, userStorage storage.UserStorage) *EncryptionHandler {
	return &EncryptionHandler{
		responder:   responder{logger: logger},
		userStorage: userStorage,
	}
}

// Setup обрабатывает POST /api/v1/encryption/setup
func (h *EncryptionHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.EnvelopeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	env := req.Envelope
	if env == nil || env.Salt == "" || env.WrappedKey.Ciphertext == "" || env.WrappedKey.IV == "" {
		h.sendError(w, "envelope with salt, wrapped key and iv is required", http.StatusBadRequest)
		return
	}
	if err := crypto.ValidateKDFParams(env.KDF); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.userStorage.SetEncryptionEnvelope(ctx, userID, env); err != nil {
		switch {
		case errors.Is(err, storage.ErrEnvelopeAlreadySet):
			h.sendError(w, "encryption is already set up", http.StatusConflict)
		case errors.Is(err, storage.ErrUserNotFound):
			h.sendError(w, "user not found", http.StatusNotFound)
		default:
			h.logger.ErrorContext(ctx, "failed to save envelope", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "encryption envelope stored",
		slog.String("user_id", userID),
		slog.String("kdf", env.KDF.Algorithm))

	w.WriteHeader(http.StatusNoContent)
}

// Envelope обрабатывает GET /api/v1/encryption/envelope
func (h *EncryptionHandler) Envelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendError(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if user.Envelope == nil {
		h.sendError(w, "encryption is not set up", http.StatusNotFound)
		return
	}

	h.sendJSON(w, api.EnvelopeResponse{Envelope: user.Envelope}, http.StatusOK)
}
