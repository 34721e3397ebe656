package auth

import (
	"context"

	"github.com/iudanet/legacyvault/internal/models"
	pkgapi "github.com/iudanet/legacyvault/pkg/api"
)

//go:generate moq -out apiclient_mock.go . APIClient

// APIClient - часть HTTP клиента, нужная авторизации и настройке шифрования
type APIClient interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	GetSalt(ctx context.Context, username string) (*pkgapi.SaltResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	SetupEncryption(ctx context.Context, accessToken string, envelope *models.MasterKeyEnvelope) error
	GetEnvelope(ctx context.Context, accessToken string) (*models.MasterKeyEnvelope, error)
}
