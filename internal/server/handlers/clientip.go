package handlers

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP возвращает адрес клиента.
// Заголовки прокси учитываются только при trustProxy: иначе клиент может
// подставить любой адрес и обойти IP whitelist токена.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// X-Forwarded-For: первый IP в списке - реальный клиент
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
