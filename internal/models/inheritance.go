package models

import "time"

// InheritanceStatus - состояние записи наследования
type InheritanceStatus string

const (
	InheritancePending   InheritanceStatus = "pending"
	InheritanceActive    InheritanceStatus = "active"
	InheritanceCompleted InheritanceStatus = "completed"
	InheritanceCancelled InheritanceStatus = "cancelled"
)

// InheritanceType - способ запуска наследования
type InheritanceType string

const (
	InheritanceAutomatic InheritanceType = "automatic"
	InheritanceManual    InheritanceType = "manual"
	InheritanceEmergency InheritanceType = "emergency"
)

// TriggerEvent - событие, запустившее наследование
type TriggerEvent string

const (
	TriggerTokenUsed        TriggerEvent = "token_used"
	TriggerScheduledDate    TriggerEvent = "scheduled_date"
	TriggerManual           TriggerEvent = "manual_trigger"
	TriggerDeathCertificate TriggerEvent = "death_certificate"
)

// Valid сообщает, является ли событие известным
func (e TriggerEvent) Valid() bool {
	switch e {
	case TriggerTokenUsed, TriggerScheduledDate, TriggerManual, TriggerDeathCertificate:
		return true
	}
	return false
}

// VaultInheritance - запись наследования с персистентным сроком активации
type VaultInheritance struct {
	TriggerDate       time.Time         `json:"trigger_date"`
	DueAt             time.Time         `json:"due_at"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	ID                string            `json:"id"`
	VaultID           string            `json:"vault_id"`
	OriginalOwnerID   string            `json:"original_owner_id"`
	InitiatedBy       string            `json:"initiated_by,omitempty"`
	Type              InheritanceType   `json:"inheritance_type"`
	TriggerEvent      TriggerEvent      `json:"trigger_event"`
	Status            InheritanceStatus `json:"status"`
	DelayHours        int               `json:"delay_hours"`
	NotificationsSent bool              `json:"notifications_sent"`
}

// HeirRole - роль наследника
type HeirRole string

const (
	HeirFullAccess  HeirRole = "full_access"
	HeirViewOnly    HeirRole = "view_only"
	HeirContributor HeirRole = "contributor"
)

// Capabilities - независимые флаги возможностей наследника
type Capabilities struct {
	CanView         bool `json:"can_view"`
	CanAdd          bool `json:"can_add"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanInviteOthers bool `json:"can_invite_others"`
	CanManageVault  bool `json:"can_manage_vault"`
}

// IsZero сообщает, что ни один флаг не установлен
func (c Capabilities) IsZero() bool {
	return c == Capabilities{}
}

// DefaultCapabilities возвращает флаги по умолчанию для роли
func (r HeirRole) DefaultCapabilities() Capabilities {
	switch r {
	case HeirFullAccess:
		return Capabilities{CanView: true, CanAdd: true, CanEdit: true, CanDelete: true, CanInviteOthers: true, CanManageVault: true}
	case HeirContributor:
		return Capabilities{CanView: true, CanAdd: true, CanEdit: true}
	default:
		return Capabilities{CanView: true}
	}
}

// Valid сообщает, является ли роль известной
func (r HeirRole) Valid() bool {
	switch r {
	case HeirFullAccess, HeirViewOnly, HeirContributor:
		return true
	}
	return false
}

// VaultFamilyAccess - права наследника на унаследованное хранилище
type VaultFamilyAccess struct {
	GrantedAt    time.Time    `json:"granted_at"`
	ID           string       `json:"id"`
	VaultID      string       `json:"vault_id"`
	HeirID       string       `json:"heir_id"`
	GrantedBy    string       `json:"granted_by"`
	Role         HeirRole     `json:"role"`
	Capabilities Capabilities `json:"capabilities"`
}
