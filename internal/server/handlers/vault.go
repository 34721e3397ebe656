package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/access"
	"github.com/iudanet/legacyvault/internal/server/vault"
	"github.com/iudanet/legacyvault/pkg/api"
)

// VaultService - операции жизненного цикла хранилища
type VaultService interface {
	Create(ctx context.Context, actor models.Actor, params vault.CreateParams) (*vault.CreateResult, error)
	Get(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error)
	ListOwned(ctx context.Context, ownerID string) ([]*models.Vault, error)
	ListInherited(ctx context.Context, heirID string) ([]*models.Vault, error)
	Open(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error)
	IssueToken(ctx context.Context, vaultID string, actor models.Actor, params vault.TokenParams) (*models.IssuedToken, error)
	RevokeToken(ctx context.Context, vaultID, tokenID string, actor models.Actor) error
	ListTokens(ctx context.Context, vaultID string, actor models.Actor) ([]*models.VaultToken, error)
	AddMemory(ctx context.Context, vaultID string, actor models.Actor, params vault.AddMemoryParams) (*models.VaultMemoryAssociation, error)
	Search(ctx context.Context, vaultID string, actor models.Actor, query vault.SearchQuery) ([]*models.VaultMemoryAssociation, error)
	LinkFamily(ctx context.Context, vaultID string, actor models.Actor, grants []vault.HeirGrant) ([]*models.VaultFamilyAccess, error)
	AccessLogs(ctx context.Context, vaultID string, actor models.Actor, limit int) ([]*models.VaultAccessLog, error)
	Archive(ctx context.Context, vaultID string, actor models.Actor) (*models.Vault, error)
}

// Unlocker - разблокировка хранилища по токену
type Unlocker interface {
	Unlock(ctx context.Context, candidate string, req access.RequestContext) (*access.UnlockResult, error)
}

// InheritanceManager - ручное управление наследованием
type InheritanceManager interface {
	ForceTrigger(ctx context.Context, vaultID string, actor models.Actor, event models.TriggerEvent) (*models.VaultInheritance, error)
	Cancel(ctx context.Context, vaultID string, actor models.Actor) error
}

// VaultHandler обрабатывает запросы к хранилищам
type VaultHandler struct {
	responder
	vaults      VaultService
	unlocker    Unlocker
	inheritance InheritanceManager
	jwtConfig   JWTConfig
	trustProxy  bool
}

// NewVaultHandler создает новый handler хранилищ
func NewVaultHandler(logger *slog.Logger, vaults VaultService, unlocker Unlocker, inheritance InheritanceManager, jwtConfig JWTConfig, trustProxy bool) *VaultHandler {
	return &VaultHandler{
		responder:   responder{logger: logger},
		vaults:      vaults,
		unlocker:    unlocker,
		inheritance: inheritance,
		jwtConfig:   jwtConfig,
		trustProxy:  trustProxy,
	}
}

// actor извлекает инициатора; при отсутствии отвечает 401
func (h *VaultHandler) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "user ID not found in context")
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
	}
	return actor, ok
}

// Create обрабатывает POST /api/v1/vaults
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req api.CreateVaultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.vaults.Create(r.Context(), actor, vault.CreateParams{
		UnlockDate:       req.UnlockDate,
		Inheritance:      req.Inheritance,
		Privacy:          req.Privacy,
		Name:             req.Name,
		Description:      req.Description,
		Tags:             req.Tags,
		UnlockConditions: req.UnlockConditions,
		PrimaryToken:     tokenParams(req.PrimaryToken),
		BackupToken:      tokenParams(req.BackupToken),
		BackupCount:      req.BackupCount,
	})
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "create vault")
		return
	}

	h.sendJSON(w, api.CreateVaultResponse{Vault: result.Vault, Tokens: result.Tokens}, http.StatusCreated)
}

func tokenParams(p api.TokenPolicy) vault.TokenParams {
	return vault.TokenParams{
		ExpiresAt:    p.ExpiresAt,
		MaxUsages:    p.MaxUsages,
		Type:         p.Type,
		Restrictions: p.Restrictions,
	}
}

// List обрабатывает GET /api/v1/vaults
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	owned, err := h.vaults.ListOwned(r.Context(), actor.UserID)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "list vaults")
		return
	}
	inherited, err := h.vaults.ListInherited(r.Context(), actor.UserID)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "list inherited vaults")
		return
	}

	h.sendJSON(w, api.VaultListResponse{Owned: owned, Inherited: inherited}, http.StatusOK)
}

// Get обрабатывает GET /api/v1/vaults/{id}
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	v, err := h.vaults.Get(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "get vault")
		return
	}
	h.sendJSON(w, v, http.StatusOK)
}

// Unlock обрабатывает POST /api/v1/vaults/unlock
// Публичный endpoint: держатель токена может быть не зарегистрирован.
// Если передан валидный access token, его пользователь считается инициатором.
func (h *VaultHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.UnlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		h.sendError(w, "token is required", http.StatusBadRequest)
		return
	}

	reqCtx := access.RequestContext{
		IP:        ClientIP(r, h.trustProxy),
		UserAgent: r.UserAgent(),
		Location:  req.Location,
	}
	if bearer, err := BearerToken(r); err == nil {
		if claims, err := ValidateAccessToken(h.jwtConfig, bearer); err == nil {
			reqCtx.CallerID = claims.UserID
		}
	}

	result, err := h.unlocker.Unlock(ctx, req.Token, reqCtx)
	if err != nil {
		h.sendServiceError(ctx, w, err, "unlock vault")
		return
	}

	h.sendJSON(w, api.UnlockResponse{
		Vault:         result.Vault,
		Message:       result.Message,
		AccessGranted: result.AccessGranted,
	}, http.StatusOK)
}

// Open обрабатывает POST /api/v1/vaults/{id}/open
func (h *VaultHandler) Open(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	v, err := h.vaults.Open(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "open vault")
		return
	}
	h.sendJSON(w, v, http.StatusOK)
}

// IssueToken обрабатывает POST /api/v1/vaults/{id}/tokens
func (h *VaultHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req api.TokenPolicy
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	issued, err := h.vaults.IssueToken(r.Context(), r.PathValue("id"), actor, tokenParams(req))
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "issue token")
		return
	}
	h.sendJSON(w, issued, http.StatusCreated)
}

// ListTokens обрабатывает GET /api/v1/vaults/{id}/tokens
func (h *VaultHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	tokens, err := h.vaults.ListTokens(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "list tokens")
		return
	}
	h.sendJSON(w, tokens, http.StatusOK)
}

// RevokeToken обрабатывает DELETE /api/v1/vaults/{id}/tokens/{tokenID}
func (h *VaultHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.vaults.RevokeToken(r.Context(), r.PathValue("id"), r.PathValue("tokenID"), actor); err != nil {
		h.sendServiceError(r.Context(), w, err, "revoke token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMemory обрабатывает POST /api/v1/vaults/{id}/memories
func (h *VaultHandler) AddMemory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req vault.AddMemoryParams
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	assoc, err := h.vaults.AddMemory(r.Context(), r.PathValue("id"), actor, req)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "add memory")
		return
	}
	h.sendJSON(w, assoc, http.StatusCreated)
}

// Search обрабатывает POST /api/v1/vaults/{id}/search
func (h *VaultHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req vault.SearchQuery
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	results, err := h.vaults.Search(r.Context(), r.PathValue("id"), actor, req)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "search vault")
		return
	}
	h.sendJSON(w, results, http.StatusOK)
}

// LinkFamily обрабатывает POST /api/v1/vaults/{id}/family
func (h *VaultHandler) LinkFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Grants []vault.HeirGrant `json:"grants"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	grants, err := h.vaults.LinkFamily(r.Context(), r.PathValue("id"), actor, req.Grants)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "link family")
		return
	}
	h.sendJSON(w, grants, http.StatusOK)
}

// AccessLogs обрабатывает GET /api/v1/vaults/{id}/logs?limit=N
func (h *VaultHandler) AccessLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.sendError(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := h.vaults.AccessLogs(r.Context(), r.PathValue("id"), actor, limit)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "list access logs")
		return
	}
	h.sendJSON(w, logs, http.StatusOK)
}

// TriggerInheritance обрабатывает POST /api/v1/vaults/{id}/inheritance
func (h *VaultHandler) TriggerInheritance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	// тело необязательно
	var req api.InheritanceRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.inheritance.ForceTrigger(r.Context(), r.PathValue("id"), actor, req.Event)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "trigger inheritance")
		return
	}
	h.sendJSON(w, record, http.StatusAccepted)
}

// CancelInheritance обрабатывает DELETE /api/v1/vaults/{id}/inheritance
func (h *VaultHandler) CancelInheritance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.inheritance.Cancel(r.Context(), r.PathValue("id"), actor); err != nil {
		h.sendServiceError(r.Context(), w, err, "cancel inheritance")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Archive обрабатывает POST /api/v1/vaults/{id}/archive
func (h *VaultHandler) Archive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	v, err := h.vaults.Archive(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		h.sendServiceError(r.Context(), w, err, "archive vault")
		return
	}
	h.sendJSON(w, v, http.StatusOK)
}
