package models

import "time"

// AccessType - вид попытки доступа в audit log
type AccessType string

const (
	AccessTokenUnlock     AccessType = "token_unlock"
	AccessOwnerOpen       AccessType = "owner_open"
	AccessInheritance     AccessType = "inheritance"
	AccessAdminOverride   AccessType = "admin_override"
	AccessScheduledUnlock AccessType = "scheduled_unlock"
)

// VaultAccessLog - неизменяемая запись о попытке доступа
type VaultAccessLog struct {
	Timestamp        time.Time  `json:"timestamp"`
	ID               string     `json:"id"`
	VaultID          string     `json:"vault_id,omitempty"` // пусто, если токен не найден
	TokenID          string     `json:"token_id,omitempty"`
	AccessorID       string     `json:"accessor_id,omitempty"`
	TokenFingerprint string     `json:"token_fingerprint,omitempty"`
	AccessType       AccessType `json:"access_type"`
	IP               string     `json:"ip,omitempty"`
	UserAgent        string     `json:"user_agent,omitempty"`
	Location         string     `json:"location,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	Success          bool       `json:"success"`
}
