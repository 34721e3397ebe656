package api

import (
	"time"

	"github.com/iudanet/legacyvault/internal/models"
)

// TokenPolicy - явная политика токена разблокировки
type TokenPolicy struct {
	ExpiresAt    *time.Time               `json:"expires_at,omitempty"`
	MaxUsages    *int                     `json:"max_usages,omitempty"` // nil - без ограничений
	Type         models.TokenType         `json:"type,omitempty"`
	Restrictions models.TokenRestrictions `json:"restrictions"`
}

// CreateVaultRequest - запрос на создание хранилища
type CreateVaultRequest struct {
	UnlockDate       *time.Time                  `json:"unlock_date,omitempty"`
	Inheritance      *models.InheritanceSettings `json:"inheritance_settings,omitempty"`
	Privacy          *models.PrivacySettings     `json:"privacy_settings,omitempty"`
	Name             string                      `json:"name"`
	Description      string                      `json:"description,omitempty"`
	Tags             []string                    `json:"tags,omitempty"`
	UnlockConditions models.UnlockConditions     `json:"unlock_conditions"`
	PrimaryToken     TokenPolicy                 `json:"primary_token"`
	BackupToken      TokenPolicy                 `json:"backup_token"`
	BackupCount      int                         `json:"backup_count,omitempty"`
}

// CreateVaultResponse - созданное хранилище и токены.
// Секреты токенов возвращаются только в этом ответе.
type CreateVaultResponse struct {
	Vault  *models.Vault         `json:"vault"`
	Tokens []*models.IssuedToken `json:"tokens"`
}

// UnlockRequest - запрос разблокировки хранилища по токену
type UnlockRequest struct {
	Token    string `json:"token"`
	Location string `json:"location,omitempty"`
}

// UnlockResponse - результат разблокировки
type UnlockResponse struct {
	Vault         *models.Vault `json:"vault"`
	Message       string        `json:"message"`
	AccessGranted bool          `json:"access_granted"`
}

// InheritanceRequest - ручной запуск наследования
type InheritanceRequest struct {
	Event models.TriggerEvent `json:"event,omitempty"` // пусто - manual_trigger
}

// VaultListResponse - списки хранилищ пользователя
type VaultListResponse struct {
	Owned     []*models.Vault `json:"owned"`
	Inherited []*models.Vault `json:"inherited"`
}
