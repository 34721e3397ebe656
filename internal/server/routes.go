package server

import (
	"net/http"

	"github.com/iudanet/legacyvault/internal/server/handlers"
)

type routes struct {
	auth       *handlers.AuthHandler
	encryption *handlers.EncryptionHandler
	vaults     *handlers.VaultHandler
	health     *handlers.HealthHandler
	requireJWT func(http.Handler) http.Handler
	limit      func(http.Handler) http.Handler
}

func (rt routes) mux() *http.ServeMux {
	mux := http.NewServeMux()

	private := func(h http.HandlerFunc) http.Handler { return rt.requireJWT(h) }
	limited := func(h http.HandlerFunc) http.Handler { return rt.limit(h) }

	mux.HandleFunc("GET /api/v1/health", rt.health.Health)

	mux.Handle("POST /api/v1/auth/register", limited(rt.auth.Register))
	mux.HandleFunc("GET /api/v1/auth/salt/{username}", rt.auth.GetSalt)
	mux.Handle("POST /api/v1/auth/login", limited(rt.auth.Login))
	mux.HandleFunc("POST /api/v1/auth/refresh", rt.auth.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", rt.auth.Logout)

	mux.Handle("POST /api/v1/encryption/setup", private(rt.encryption.Setup))
	mux.Handle("GET /api/v1/encryption/envelope", private(rt.encryption.Envelope))

	// разблокировка публичная: держатель токена может быть не зарегистрирован
	mux.Handle("POST /api/v1/vaults/unlock", limited(rt.vaults.Unlock))

	mux.Handle("POST /api/v1/vaults", private(rt.vaults.Create))
	mux.Handle("GET /api/v1/vaults", private(rt.vaults.List))
	mux.Handle("GET /api/v1/vaults/{id}", private(rt.vaults.Get))
	mux.Handle("POST /api/v1/vaults/{id}/open", private(rt.vaults.Open))
	mux.Handle("POST /api/v1/vaults/{id}/tokens", private(rt.vaults.IssueToken))
	mux.Handle("GET /api/v1/vaults/{id}/tokens", private(rt.vaults.ListTokens))
	mux.Handle("DELETE /api/v1/vaults/{id}/tokens/{tokenID}", private(rt.vaults.RevokeToken))
	mux.Handle("POST /api/v1/vaults/{id}/memories", private(rt.vaults.AddMemory))
	mux.Handle("POST /api/v1/vaults/{id}/search", private(rt.vaults.Search))
	mux.Handle("POST /api/v1/vaults/{id}/family", private(rt.vaults.LinkFamily))
	mux.Handle("GET /api/v1/vaults/{id}/logs", private(rt.vaults.AccessLogs))
	mux.Handle("POST /api/v1/vaults/{id}/inheritance", private(rt.vaults.TriggerInheritance))
	mux.Handle("DELETE /api/v1/vaults/{id}/inheritance", private(rt.vaults.CancelInheritance))
	mux.Handle("POST /api/v1/vaults/{id}/archive", private(rt.vaults.Archive))

	return mux
}
