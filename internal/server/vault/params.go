package vault

import (
	"strings"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/access"
	"github.com/iudanet/legacyvault/internal/validation"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

const (
	// DefaultBackupTokens - число резервных токенов при создании хранилища
	DefaultBackupTokens = 3
	// MaxBackupTokens - верхняя граница резервных токенов
	MaxBackupTokens = 10

	maxNameLength = 200
)

// TokenParams - явная политика выпускаемого токена
type TokenParams struct {
	ExpiresAt    *time.Time               `json:"expires_at,omitempty"`
	MaxUsages    *int                     `json:"max_usages,omitempty"`
	Type         models.TokenType         `json:"type,omitempty"`
	Restrictions models.TokenRestrictions `json:"restrictions"`
}

func (p TokenParams) validate(now time.Time) error {
	if p.Type != "" && !p.Type.Valid() {
		return vaulterr.Invalid("type", "unknown token type %q", p.Type)
	}
	if p.MaxUsages != nil && *p.MaxUsages < 1 {
		return vaulterr.Invalid("max_usages", "must be positive")
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return vaulterr.Invalid("expires_at", "must be in the future")
	}
	return access.ValidateRestrictions(p.Restrictions)
}

// CreateParams - параметры создания хранилища
type CreateParams struct {
	UnlockDate       *time.Time                  `json:"unlock_date,omitempty"`
	Inheritance      *models.InheritanceSettings `json:"inheritance_settings,omitempty"` // nil - настройки по умолчанию
	Privacy          *models.PrivacySettings     `json:"privacy_settings,omitempty"`     // nil - настройки по умолчанию
	Name             string                      `json:"name"`
	Description      string                      `json:"description,omitempty"`
	Tags             []string                    `json:"tags,omitempty"`
	UnlockConditions models.UnlockConditions     `json:"unlock_conditions"`
	PrimaryToken     TokenParams                 `json:"primary_token"`
	BackupToken      TokenParams                 `json:"backup_token"`
	BackupCount      int                         `json:"backup_count,omitempty"` // 0 - DefaultBackupTokens
}

func (p *CreateParams) validate(now time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return vaulterr.Invalid("name", "is required")
	}
	if len(p.Name) > maxNameLength {
		return vaulterr.Invalid("name", "longer than %d characters", maxNameLength)
	}
	if p.BackupCount < 0 || p.BackupCount > MaxBackupTokens {
		return vaulterr.Invalid("backup_count", "must be between 0 and %d", MaxBackupTokens)
	}
	if p.Inheritance != nil {
		if p.Inheritance.DelayHours < 0 {
			return vaulterr.Invalid("delay_hours", "must not be negative")
		}
		for _, email := range p.Inheritance.NotificationEmails {
			if err := validation.ValidateEmail(email); err != nil {
				return vaulterr.Invalid("notification_emails", "%s", err.Error())
			}
		}
	}
	if p.UnlockConditions.TimeDelayHours < 0 {
		return vaulterr.Invalid("time_delay_hours", "must not be negative")
	}
	if err := p.PrimaryToken.validate(now); err != nil {
		return err
	}
	return p.BackupToken.validate(now)
}

// HeirGrant - запрос на выдачу прав наследнику
type HeirGrant struct {
	HeirID       string              `json:"heir_id"`
	Role         models.HeirRole     `json:"role"`
	Capabilities models.Capabilities `json:"capabilities"` // все false - флаги роли
}

func (g HeirGrant) validate() error {
	if strings.TrimSpace(g.HeirID) == "" {
		return vaulterr.Invalid("heir_id", "is required")
	}
	if !g.Role.Valid() {
		return vaulterr.Invalid("role", "unknown role %q", g.Role)
	}
	return nil
}

// AddMemoryParams - параметры привязки воспоминания к хранилищу
type AddMemoryParams struct {
	Emotional   *models.EmotionalContext `json:"emotional_context,omitempty"` // nil - аннотация через Analyzer
	Search      *models.SearchMetadata   `json:"search_metadata,omitempty"`
	MemoryID    string                   `json:"memory_id"`
	AccessLevel models.MemoryAccessLevel `json:"access_level,omitempty"`
	Size        int64                    `json:"size"`
}

func (p AddMemoryParams) validate() error {
	if strings.TrimSpace(p.MemoryID) == "" {
		return vaulterr.Invalid("memory_id", "is required")
	}
	if p.Size < 0 {
		return vaulterr.Invalid("size", "must not be negative")
	}
	switch p.AccessLevel {
	case "", models.MemoryPublic, models.MemoryFamily, models.MemoryPrivate:
	default:
		return vaulterr.Invalid("access_level", "unknown access level %q", p.AccessLevel)
	}
	if e := p.Emotional; e != nil {
		if !e.Sentiment.Valid() {
			return vaulterr.Invalid("sentiment", "unknown sentiment %q", e.Sentiment)
		}
		if e.Intensity < 0 || e.Intensity > 1 {
			return vaulterr.Invalid("intensity", "must be between 0 and 1")
		}
	}
	return nil
}
