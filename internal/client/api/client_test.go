package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/pkg/api"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testuser", req.Username)
		assert.Equal(t, "hash123", req.AuthKeyHash)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.RegisterResponse{UserID: "user-123", Message: "ok"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{
		Username:    "testuser",
		AuthKeyHash: "hash123",
		PublicSalt:  "salt123",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedErrMsg string
		statusCode     int
	}{
		{
			name:           "json error",
			statusCode:     http.StatusConflict,
			body:           `{"error":"Conflict","message":"user already exists"}`,
			expectedErrMsg: "server error (409): user already exists",
		},
		{
			name:           "plain text error",
			statusCode:     http.StatusInternalServerError,
			body:           "Internal Server Error\n",
			expectedErrMsg: "server error (500): Internal Server Error",
		},
		{
			name:           "rate limited",
			statusCode:     http.StatusTooManyRequests,
			body:           `{"error":"Too Many Requests","message":"rate limit exceeded"}`,
			expectedErrMsg: "server error (429): rate limit exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{Username: "u"})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)
			assert.Equal(t, tt.statusCode, StatusCode(err))
		})
	}
}

func TestStatusCode_NonHTTPError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(nil))
	assert.Equal(t, 0, StatusCode(context.Canceled))
}

func TestClient_GetSaltEscapesUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/auth/salt/a%2Fb", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(api.SaltResponse{PublicSalt: "c2FsdA=="})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).GetSalt(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "c2FsdA==", resp.PublicSalt)
}

func TestClient_RefreshAndLogoutSendBearer(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path+" "+r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			_ = json.NewEncoder(w).Encode(api.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900})
		case "/api/v1/auth/logout":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	tokens, err := client.Refresh(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tokens.AccessToken)

	require.NoError(t, client.Logout(ctx, "access-1"))

	assert.Equal(t, []string{
		"/api/v1/auth/refresh Bearer refresh-1",
		"/api/v1/auth/logout Bearer access-1",
	}, seen)
}

func TestClient_Encryption(t *testing.T) {
	envelope := &models.MasterKeyEnvelope{
		WrappedKey: models.EncryptedPayload{Ciphertext: "Y2lwaGVy", IV: "aXY="},
		Salt:       "c2FsdA==",
		KDF:        models.KDFParams{Algorithm: models.KDFArgon2id, Iterations: 3, MemoryKiB: 65536, Threads: 4},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/encryption/setup":
			var req api.EnvelopeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, envelope, req.Envelope)
			w.WriteHeader(http.StatusNoContent)
		case "GET /api/v1/encryption/envelope":
			_ = json.NewEncoder(w).Encode(api.EnvelopeResponse{Envelope: envelope})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	require.NoError(t, client.SetupEncryption(ctx, "jwt", envelope))

	got, err := client.GetEnvelope(ctx, "jwt")
	require.NoError(t, err)
	assert.Equal(t, envelope, got)
}

func TestClient_VaultEndpoints(t *testing.T) {
	vault := &models.Vault{ID: "v1", Name: "Family", Status: models.VaultLocked}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		switch route {
		case "POST /api/v1/vaults":
			var req api.CreateVaultRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Family", req.Name)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.CreateVaultResponse{
				Vault:  vault,
				Tokens: []*models.IssuedToken{{Token: &models.VaultToken{ID: "t1", Type: models.TokenPrimary}, Secret: "s3cret"}},
			})
		case "GET /api/v1/vaults":
			_ = json.NewEncoder(w).Encode(api.VaultListResponse{Owned: []*models.Vault{vault}})
		case "GET /api/v1/vaults/v1":
			_ = json.NewEncoder(w).Encode(vault)
		case "POST /api/v1/vaults/v1/open":
			assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
			opened := *vault
			opened.Status = models.VaultUnlocked
			_ = json.NewEncoder(w).Encode(opened)
		case "POST /api/v1/vaults/unlock":
			assert.Empty(t, r.Header.Get("Authorization"))
			var req api.UnlockRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "s3cret", req.Token)
			unlocked := *vault
			unlocked.Status = models.VaultUnlocked
			_ = json.NewEncoder(w).Encode(api.UnlockResponse{Vault: &unlocked, AccessGranted: true, Message: "ok"})
		case "POST /api/v1/vaults/v1/tokens":
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(models.IssuedToken{Token: &models.VaultToken{ID: "t2"}, Secret: "other"})
		case "GET /api/v1/vaults/v1/tokens":
			_ = json.NewEncoder(w).Encode([]*models.VaultToken{{ID: "t1"}, {ID: "t2"}})
		case "DELETE /api/v1/vaults/v1/tokens/t2":
			w.WriteHeader(http.StatusNoContent)
		case "GET /api/v1/vaults/v1/logs":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode([]*models.VaultAccessLog{{ID: "log1", Success: true}})
		case "POST /api/v1/vaults/v1/inheritance":
			var req api.InheritanceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, models.TriggerDeathCertificate, req.Event)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.VaultInheritance{ID: "inh1", Status: models.InheritancePending})
		case "DELETE /api/v1/vaults/v1/inheritance":
			w.WriteHeader(http.StatusNoContent)
		case "POST /api/v1/vaults/v1/archive":
			archived := *vault
			archived.Status = models.VaultArchived
			_ = json.NewEncoder(w).Encode(archived)
		default:
			t.Errorf("unexpected request %s", route)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	created, err := client.CreateVault(ctx, "jwt", api.CreateVaultRequest{Name: "Family"})
	require.NoError(t, err)
	require.Len(t, created.Tokens, 1)
	assert.Equal(t, "s3cret", created.Tokens[0].Secret)

	list, err := client.ListVaults(ctx, "jwt")
	require.NoError(t, err)
	assert.Len(t, list.Owned, 1)

	got, err := client.GetVault(ctx, "jwt", "v1")
	require.NoError(t, err)
	assert.Equal(t, "Family", got.Name)

	opened, err := client.OpenVault(ctx, "jwt", "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VaultUnlocked, opened.Status)

	unlocked, err := client.UnlockVault(ctx, "", api.UnlockRequest{Token: "s3cret"})
	require.NoError(t, err)
	assert.True(t, unlocked.AccessGranted)
	assert.Equal(t, models.VaultUnlocked, unlocked.Vault.Status)

	issued, err := client.IssueToken(ctx, "jwt", "v1", api.TokenPolicy{Type: models.TokenBackup})
	require.NoError(t, err)
	assert.Equal(t, "other", issued.Secret)

	tokens, err := client.ListTokens(ctx, "jwt", "v1")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	require.NoError(t, client.RevokeToken(ctx, "jwt", "v1", "t2"))

	logs, err := client.AccessLogs(ctx, "jwt", "v1", 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)

	record, err := client.TriggerInheritance(ctx, "jwt", "v1", models.TriggerDeathCertificate)
	require.NoError(t, err)
	assert.Equal(t, models.InheritancePending, record.Status)

	require.NoError(t, client.CancelInheritance(ctx, "jwt", "v1"))

	archived, err := client.ArchiveVault(ctx, "jwt", "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VaultArchived, archived.Status)
}

func TestClient_UnlockDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Forbidden", Message: "access denied"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).UnlockVault(context.Background(), "", api.UnlockRequest{Token: "bad"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Contains(t, err.Error(), "access denied")
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).ListVaults(ctx, "jwt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
