package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/pkg/api"
)

// StatusError - ответ сервера с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// StatusCode возвращает HTTP код из ошибки клиента или 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// GetSalt получает public_salt пользователя
func (c *Client) GetSalt(ctx context.Context, username string) (*api.SaltResponse, error) {
	var resp api.SaltResponse
	path := "/api/v1/auth/salt/" + url.PathEscape(username)
	if err := c.doRequest(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("get salt request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новую пару токенов
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", refreshToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return &resp, nil
}

// Logout отзывает refresh tokens пользователя на сервере
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// SetupEncryption сохраняет конверт мастер-ключа на сервере
func (c *Client) SetupEncryption(ctx context.Context, accessToken string, envelope *models.MasterKeyEnvelope) error {
	req := api.EnvelopeRequest{Envelope: envelope}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/encryption/setup", accessToken, req, nil); err != nil {
		return fmt.Errorf("encryption setup request failed: %w", err)
	}
	return nil
}

// GetEnvelope получает конверт мастер-ключа
func (c *Client) GetEnvelope(ctx context.Context, accessToken string) (*models.MasterKeyEnvelope, error) {
	var resp api.EnvelopeResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/encryption/envelope", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("get envelope request failed: %w", err)
	}
	return resp.Envelope, nil
}

// CreateVault создает хранилище. Секреты токенов приходят только в этом ответе.
func (c *Client) CreateVault(ctx context.Context, accessToken string, req api.CreateVaultRequest) (*api.CreateVaultResponse, error) {
	var resp api.CreateVaultResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/vaults", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("create vault request failed: %w", err)
	}
	return &resp, nil
}

// ListVaults возвращает собственные и унаследованные хранилища
func (c *Client) ListVaults(ctx context.Context, accessToken string) (*api.VaultListResponse, error) {
	var resp api.VaultListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/vaults", accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("list vaults request failed: %w", err)
	}
	return &resp, nil
}

// GetVault возвращает хранилище по ID
func (c *Client) GetVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error) {
	var resp models.Vault
	if err := c.doRequest(ctx, http.MethodGet, vaultPath(vaultID, ""), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("get vault request failed: %w", err)
	}
	return &resp, nil
}

// OpenVault открывает хранилище владельцем без токена
func (c *Client) OpenVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error) {
	var resp models.Vault
	if err := c.doRequest(ctx, http.MethodPost, vaultPath(vaultID, "/open"), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("open vault request failed: %w", err)
	}
	return &resp, nil
}

// UnlockVault разблокирует хранилище по токену.
// accessToken может быть пустым для анонимного держателя токена.
func (c *Client) UnlockVault(ctx context.Context, accessToken string, req api.UnlockRequest) (*api.UnlockResponse, error) {
	var resp api.UnlockResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/vaults/unlock", accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("unlock request failed: %w", err)
	}
	return &resp, nil
}

// IssueToken выпускает дополнительный токен разблокировки
func (c *Client) IssueToken(ctx context.Context, accessToken, vaultID string, policy api.TokenPolicy) (*models.IssuedToken, error) {
	var resp models.IssuedToken
	if err := c.doRequest(ctx, http.MethodPost, vaultPath(vaultID, "/tokens"), accessToken, policy, &resp); err != nil {
		return nil, fmt.Errorf("issue token request failed: %w", err)
	}
	return &resp, nil
}

// ListTokens возвращает метаданные токенов хранилища
func (c *Client) ListTokens(ctx context.Context, accessToken, vaultID string) ([]*models.VaultToken, error) {
	var resp []*models.VaultToken
	if err := c.doRequest(ctx, http.MethodGet, vaultPath(vaultID, "/tokens"), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("list tokens request failed: %w", err)
	}
	return resp, nil
}

// RevokeToken отзывает токен
func (c *Client) RevokeToken(ctx context.Context, accessToken, vaultID, tokenID string) error {
	path := vaultPath(vaultID, "/tokens/"+url.PathEscape(tokenID))
	if err := c.doRequest(ctx, http.MethodDelete, path, accessToken, nil, nil); err != nil {
		return fmt.Errorf("revoke token request failed: %w", err)
	}
	return nil
}

// AccessLogs возвращает последние записи журнала доступа
func (c *Client) AccessLogs(ctx context.Context, accessToken, vaultID string, limit int) ([]*models.VaultAccessLog, error) {
	path := vaultPath(vaultID, "/logs")
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp []*models.VaultAccessLog
	if err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("access logs request failed: %w", err)
	}
	return resp, nil
}

// TriggerInheritance запускает наследование вручную
func (c *Client) TriggerInheritance(ctx context.Context, accessToken, vaultID string, event models.TriggerEvent) (*models.VaultInheritance, error) {
	var resp models.VaultInheritance
	req := api.InheritanceRequest{Event: event}
	if err := c.doRequest(ctx, http.MethodPost, vaultPath(vaultID, "/inheritance"), accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("trigger inheritance request failed: %w", err)
	}
	return &resp, nil
}

// CancelInheritance отменяет ожидающее наследование
func (c *Client) CancelInheritance(ctx context.Context, accessToken, vaultID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, vaultPath(vaultID, "/inheritance"), accessToken, nil, nil); err != nil {
		return fmt.Errorf("cancel inheritance request failed: %w", err)
	}
	return nil
}

// ArchiveVault архивирует хранилище
func (c *Client) ArchiveVault(ctx context.Context, accessToken, vaultID string) (*models.Vault, error) {
	var resp models.Vault
	if err := c.doRequest(ctx, http.MethodPost, vaultPath(vaultID, "/archive"), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("archive vault request failed: %w", err)
	}
	return &resp, nil
}

func vaultPath(vaultID, suffix string) string {
	return "/api/v1/vaults/" + url.PathEscape(vaultID) + suffix
}

// doRequest выполняет HTTP запрос.
// bearer добавляется в заголовок Authorization, если не пустой.
func (c *Client) doRequest(ctx context.Context, method, path, bearer string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
