package models

import "time"

// VaultStatus - состояние хранилища
type VaultStatus string

const (
	VaultLocked    VaultStatus = "locked"
	VaultUnlocked  VaultStatus = "unlocked"
	VaultInherited VaultStatus = "inherited"
	VaultArchived  VaultStatus = "archived"
)

// Valid сообщает, является ли статус известным
func (s VaultStatus) Valid() bool {
	switch s {
	case VaultLocked, VaultUnlocked, VaultInherited, VaultArchived:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода.
// Статусы монотонны: locked -> unlocked -> inherited, archived достижим из любого
// неархивного состояния. locked -> inherited допускается при ручной активации наследования.
func (s VaultStatus) CanTransitionTo(next VaultStatus) bool {
	switch next {
	case VaultArchived:
		return s != VaultArchived
	case VaultUnlocked:
		return s == VaultLocked
	case VaultInherited:
		return s == VaultLocked || s == VaultUnlocked
	default:
		return false
	}
}

// UnlockConditions - условия разблокировки хранилища
type UnlockConditions struct {
	AllowedUnlockers      []string `json:"allowed_unlockers,omitempty"` // user ID, пусто - любой держатель токена
	MinimumTokensRequired int      `json:"minimum_tokens_required,omitempty"`
	TimeDelayHours        int      `json:"time_delay_hours,omitempty"`
	RequiresMultiple      bool     `json:"requires_multiple_tokens,omitempty"`
}

// UnlockerAllowed проверяет, может ли callerID разблокировать хранилище
func (c UnlockConditions) UnlockerAllowed(callerID string) bool {
	if len(c.AllowedUnlockers) == 0 {
		return true
	}
	for _, id := range c.AllowedUnlockers {
		if id == callerID && callerID != "" {
			return true
		}
	}
	return false
}

// InheritanceSettings - настройки автоматического наследования
type InheritanceSettings struct {
	InheritanceMessage   string   `json:"inheritance_message,omitempty"`
	NotificationEmails   []string `json:"notification_emails,omitempty"`
	DelayHours           int      `json:"delay_hours"`
	AutomaticInheritance bool     `json:"automatic_inheritance"`
}

// Delay возвращает задержку активации наследования
func (s InheritanceSettings) Delay() time.Duration {
	return time.Duration(s.DelayHours) * time.Hour
}

// DefaultInheritanceSettings - наследование включено, задержка 24 часа
func DefaultInheritanceSettings() InheritanceSettings {
	return InheritanceSettings{
		AutomaticInheritance: true,
		DelayHours:           24,
	}
}

// PrivacySettings - настройки приватности хранилища
type PrivacySettings struct {
	AllowSearch     bool `json:"allow_search"`
	AllowAIAnalysis bool `json:"allow_ai_analysis"`
	AllowDownload   bool `json:"allow_download"`
	AllowSharing    bool `json:"allow_sharing"`
}

// DefaultPrivacySettings - все разрешено, кроме шаринга
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		AllowSearch:     true,
		AllowAIAnalysis: true,
		AllowDownload:   true,
	}
}

// VaultMetadata - агрегированные счетчики хранилища
type VaultMetadata struct {
	LastActivity  time.Time `json:"last_activity"`
	Tags          []string  `json:"tags,omitempty"`
	TotalMemories int       `json:"total_memories"`
	TotalSize     int64     `json:"total_size"`
}

// Vault - хранилище наследия одного владельца
type Vault struct {
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	UnlockDate       *time.Time          `json:"unlock_date,omitempty"`
	UnlockedAt       *time.Time          `json:"unlocked_at,omitempty"`
	InheritedAt      *time.Time          `json:"inherited_at,omitempty"`
	ArchivedAt       *time.Time          `json:"archived_at,omitempty"`
	ID               string              `json:"id"`
	OwnerID          string              `json:"owner_id"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Status           VaultStatus         `json:"status"`
	UnlockConditions UnlockConditions    `json:"unlock_conditions"`
	Inheritance      InheritanceSettings `json:"inheritance_settings"`
	Metadata         VaultMetadata       `json:"metadata"`
	Privacy          PrivacySettings     `json:"privacy_settings"`
}
