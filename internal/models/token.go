package models

import "time"

// TokenType - назначение токена разблокировки. На политику ограничений не влияет.
type TokenType string

const (
	TokenPrimary   TokenType = "primary"
	TokenBackup    TokenType = "backup"
	TokenEmergency TokenType = "emergency"
	TokenTemporary TokenType = "temporary"
)

// Valid сообщает, является ли тип известным
func (t TokenType) Valid() bool {
	switch t {
	case TokenPrimary, TokenBackup, TokenEmergency, TokenTemporary:
		return true
	}
	return false
}

// TimeRestrictions - разрешенные часы и дни недели в заданной timezone
type TimeRestrictions struct {
	AllowedHours []int  `json:"allowed_hours,omitempty"` // 0-23, пусто - любые часы
	AllowedDays  []int  `json:"allowed_days,omitempty"`  // 0-6 (воскресенье = 0), пусто - любые дни
	Timezone     string `json:"timezone,omitempty"`      // IANA имя, пусто - UTC
}

// TokenRestrictions - явная политика токена
type TokenRestrictions struct {
	IPWhitelist []string          `json:"ip_whitelist,omitempty"` // IP или CIDR, пусто - любой адрес
	Time        *TimeRestrictions `json:"time_restrictions,omitempty"`
}

// VaultToken - токен разблокировки. Сырой секрет не хранится, только хеш.
type VaultToken struct {
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time        `json:"last_used_at,omitempty"`
	MaxUsages    *int              `json:"max_usages,omitempty"` // nil - без ограничений
	ID           string            `json:"id"`
	VaultID      string            `json:"vault_id"`
	TokenHash    string            `json:"-"`
	Type         TokenType         `json:"type"`
	CreatedBy    string            `json:"created_by"`
	LastUsedBy   string            `json:"last_used_by,omitempty"`
	Restrictions TokenRestrictions `json:"restrictions"`
	UsageCount   int               `json:"usage_count"`
	IsActive     bool              `json:"is_active"`
}

// Expired сообщает, истек ли срок действия токена на момент now
func (t *VaultToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// UsageExhausted сообщает, исчерпан ли лимит использований
func (t *VaultToken) UsageExhausted() bool {
	return t.MaxUsages != nil && t.UsageCount >= *t.MaxUsages
}

// IssuedToken - результат выдачи токена. Secret показывается владельцу один раз.
type IssuedToken struct {
	Token  *VaultToken `json:"token"`
	Secret string      `json:"secret"`
}
