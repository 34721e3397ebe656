package access

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/crypto"
	"github.com/iudanet/legacyvault/internal/models"
	"github.com/iudanet/legacyvault/internal/server/inheritance"
	"github.com/iudanet/legacyvault/internal/server/storage/sqlite"
	"github.com/iudanet/legacyvault/internal/vaulterr"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

type fakeClock struct {
	t  time.Time
	mu sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingNotifier struct {
	events []inheritance.Event
	mu     sync.Mutex
}

func (n *recordingNotifier) Notify(_ context.Context, notification inheritance.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification.Event)
	return nil
}

func (n *recordingNotifier) Events() []inheritance.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]inheritance.Event(nil), n.events...)
}

type fixture struct {
	store      *sqlite.Storage
	controller *Controller
	scheduler  *inheritance.Scheduler
	notifier   *recordingNotifier
	clock      *fakeClock
	ownerID    string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ownerID := uuid.New().String()
	require.NoError(t, store.CreateUser(ctx, &models.User{
		ID:          ownerID,
		Username:    "owner",
		AuthKeyHash: "hash",
		PublicSalt:  "salt",
		CreatedAt:   time.Now(),
	}))

	// вторник, 12:00 UTC
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	logger := setupTestLogger()
	scheduler := inheritance.NewScheduler(store, notifier, logger, inheritance.WithClock(clock.Now))

	return &fixture{
		store:      store,
		controller: NewController(store, scheduler, logger, WithClock(clock.Now)),
		scheduler:  scheduler,
		notifier:   notifier,
		clock:      clock,
		ownerID:    ownerID,
	}
}

type vaultOptions struct {
	unlockers []string
	emails    []string
	delay     int
	auto      bool
}

func (f *fixture) createVault(t *testing.T, opts vaultOptions) *models.Vault {
	t.Helper()
	now := f.clock.Now()
	vault := &models.Vault{
		ID:               uuid.New().String(),
		OwnerID:          f.ownerID,
		Name:             "Letters to Emma",
		Status:           models.VaultLocked,
		UnlockConditions: models.UnlockConditions{AllowedUnlockers: opts.unlockers},
		Inheritance: models.InheritanceSettings{
			AutomaticInheritance: opts.auto,
			DelayHours:           opts.delay,
			NotificationEmails:   opts.emails,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.CreateVault(context.Background(), vault))
	return vault
}

// issueToken сохраняет хеш и возвращает сырой секрет
func (f *fixture) issueToken(t *testing.T, vaultID string, maxUsages *int, restrictions models.TokenRestrictions) string {
	t.Helper()
	secret, err := crypto.IssueToken(crypto.MinTokenBytes)
	require.NoError(t, err)

	require.NoError(t, f.store.CreateVaultToken(context.Background(), &models.VaultToken{
		ID:           uuid.New().String(),
		VaultID:      vaultID,
		TokenHash:    crypto.HashToken(secret),
		Type:         models.TokenPrimary,
		CreatedBy:    f.ownerID,
		CreatedAt:    f.clock.Now(),
		IsActive:     true,
		MaxUsages:    maxUsages,
		Restrictions: restrictions,
	}))
	return secret
}

func (f *fixture) countLogs(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.store.DB().QueryRow(`SELECT COUNT(*) FROM vault_access_logs`).Scan(&n))
	return n
}

func (f *fixture) tokenUsage(t *testing.T, vaultID string) int {
	t.Helper()
	tokens, err := f.store.ListVaultTokens(context.Background(), vaultID)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	return tokens[0].UsageCount
}

func intPtr(v int) *int {
	return &v
}

func TestController_Unlock_Success(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{auto: true, delay: 24, emails: []string{"emma@example.com"}})
	secret := f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})

	result, err := f.controller.Unlock(ctx, secret, RequestContext{IP: "203.0.113.7", UserAgent: "test", CallerID: "heir-1"})
	require.NoError(t, err)
	assert.True(t, result.AccessGranted)
	assert.Equal(t, "Vault successfully unlocked", result.Message)
	assert.Equal(t, models.VaultUnlocked, result.Vault.Status)
	require.NotNil(t, result.Inheritance)
	assert.Equal(t, models.InheritancePending, result.Inheritance.Status)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), result.Inheritance.DueAt)

	got, err := f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultUnlocked, got.Status)
	require.NotNil(t, got.UnlockedAt)
	assert.True(t, got.UnlockedAt.Equal(f.clock.Now()))

	tokens, err := f.store.ListVaultTokens(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].UsageCount)
	assert.Equal(t, "heir-1", tokens[0].LastUsedBy)

	logs, err := f.store.ListAccessLogs(ctx, vault.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, crypto.TokenFingerprint(secret), logs[0].TokenFingerprint)
	assert.NotContains(t, logs[0].TokenFingerprint, secret)

	assert.Equal(t, []inheritance.Event{inheritance.EventUnlocked}, f.notifier.Events())
}

func TestController_Unlock_InvalidToken(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{})
	f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})

	result, err := f.controller.Unlock(ctx, "not-the-token", RequestContext{IP: "198.51.100.1"})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidToken)
	assert.Nil(t, result)

	assert.Equal(t, 1, f.countLogs(t))
	var reason string
	require.NoError(t, f.store.DB().QueryRow(`SELECT failure_reason FROM vault_access_logs WHERE vault_id IS NULL`).Scan(&reason))
	assert.Equal(t, string(vaulterr.ReasonInvalidToken), reason)

	got, err := f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultLocked, got.Status)
}

func TestController_Unlock_RevokedAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{})
	secret := f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})

	tokens, err := f.store.ListVaultTokens(ctx, vault.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.RevokeVaultToken(ctx, vault.ID, tokens[0].ID))

	_, err = f.controller.Unlock(ctx, secret, RequestContext{})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidToken)

	expiredSecret, err := crypto.IssueToken(crypto.MinTokenBytes)
	require.NoError(t, err)
	expiry := f.clock.Now().Add(-time.Minute)
	require.NoError(t, f.store.CreateVaultToken(ctx, &models.VaultToken{
		ID: uuid.New().String(), VaultID: vault.ID, TokenHash: crypto.HashToken(expiredSecret),
		Type: models.TokenTemporary, CreatedBy: f.ownerID, CreatedAt: f.clock.Now().Add(-time.Hour),
		IsActive: true, ExpiresAt: &expiry,
	}))

	_, err = f.controller.Unlock(ctx, expiredSecret, RequestContext{})
	assert.ErrorIs(t, err, vaulterr.ErrInvalidToken)
}

func TestController_Unlock_Restrictions(t *testing.T) {
	tests := []struct {
		restrictions models.TokenRestrictions
		name         string
		ip           string
		wantReason   vaulterr.FailureReason
		hour         int
	}{
		{
			name:         "ip not whitelisted",
			restrictions: models.TokenRestrictions{IPWhitelist: []string{"10.0.0.0/8"}},
			ip:           "198.51.100.1",
			hour:         12,
			wantReason:   vaulterr.ReasonIPNotWhitelisted,
		},
		{
			name:         "whitelisted cidr",
			restrictions: models.TokenRestrictions{IPWhitelist: []string{"10.0.0.0/8"}},
			ip:           "10.20.30.40",
			hour:         12,
		},
		{
			name:         "before allowed window",
			restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedHours: []int{9, 17}, Timezone: "UTC"}},
			hour:         8,
			wantReason:   vaulterr.ReasonOutsideHours,
		},
		{
			name:         "after allowed window",
			restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedHours: []int{9, 17}, Timezone: "UTC"}},
			hour:         18,
			wantReason:   vaulterr.ReasonOutsideHours,
		},
		{
			name:         "inside allowed window",
			restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedHours: []int{9, 17}, Timezone: "UTC"}},
			hour:         17,
		},
		{
			name:         "weekend only token on tuesday",
			restrictions: models.TokenRestrictions{Time: &models.TimeRestrictions{AllowedDays: []int{0, 6}}},
			hour:         12,
			wantReason:   vaulterr.ReasonOutsideDays,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := setupFixture(t)
			f.clock.Set(time.Date(2026, 3, 10, tt.hour, 0, 0, 0, time.UTC))
			vault := f.createVault(t, vaultOptions{})
			secret := f.issueToken(t, vault.ID, nil, tt.restrictions)

			_, err := f.controller.Unlock(ctx, secret, RequestContext{IP: tt.ip})

			logs, lerr := f.store.ListAccessLogs(ctx, vault.ID, 10)
			require.NoError(t, lerr)
			require.Len(t, logs, 1, "exactly one log entry per attempt")

			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.True(t, logs[0].Success)
				assert.Equal(t, 1, f.tokenUsage(t, vault.ID))
				return
			}

			assert.ErrorIs(t, err, vaulterr.ErrRestrictionViolation)
			assert.Equal(t, tt.wantReason, vaulterr.ReasonOf(err))
			assert.False(t, logs[0].Success)
			assert.Equal(t, string(tt.wantReason), logs[0].FailureReason)
			assert.Equal(t, 0, f.tokenUsage(t, vault.ID), "usage must not change on denial")

			got, gerr := f.store.GetVault(ctx, vault.ID)
			require.NoError(t, gerr)
			assert.Equal(t, models.VaultLocked, got.Status)
		})
	}
}

func TestController_Unlock_UsageCeiling(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{})
	secret := f.issueToken(t, vault.ID, intPtr(1), models.TokenRestrictions{})

	_, err := f.controller.Unlock(ctx, secret, RequestContext{})
	require.NoError(t, err)

	first, err := f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	require.NotNil(t, first.UnlockedAt)

	f.clock.Set(f.clock.Now().Add(time.Hour))
	_, err = f.controller.Unlock(ctx, secret, RequestContext{})
	assert.ErrorIs(t, err, vaulterr.ErrRestrictionViolation)
	assert.Equal(t, vaulterr.ReasonUsageLimitExceeded, vaulterr.ReasonOf(err))

	second, err := f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.True(t, first.UnlockedAt.Equal(*second.UnlockedAt), "first unlock timestamp unchanged")
	assert.Equal(t, 1, f.tokenUsage(t, vault.ID))
	assert.Equal(t, 2, f.countLogs(t))
}

func TestController_Unlock_AllowedUnlockers(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{unlockers: []string{"heir-1"}})
	secret := f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})

	_, err := f.controller.Unlock(ctx, secret, RequestContext{CallerID: "stranger"})
	assert.Equal(t, vaulterr.ReasonUnlockerNotAllowed, vaulterr.ReasonOf(err))

	_, err = f.controller.Unlock(ctx, secret, RequestContext{CallerID: "heir-1"})
	assert.NoError(t, err)
}

func TestController_Unlock_ArchivedVault(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{})
	secret := f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})
	require.NoError(t, f.store.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultArchived, f.clock.Now()))

	_, err := f.controller.Unlock(ctx, secret, RequestContext{})
	assert.ErrorIs(t, err, vaulterr.ErrRestrictionViolation)
	assert.Equal(t, vaulterr.ReasonVaultArchived, vaulterr.ReasonOf(err))
	assert.Equal(t, 0, f.tokenUsage(t, vault.ID))
}

// Сценарий: автоматическое наследование с нулевой задержкой и одноразовым токеном
func TestController_Unlock_ZeroDelayInheritanceScenario(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{auto: true, delay: 0})
	primary := f.issueToken(t, vault.ID, intPtr(1), models.TokenRestrictions{})

	result, err := f.controller.Unlock(ctx, primary, RequestContext{CallerID: "heir"})
	require.NoError(t, err)
	assert.Equal(t, models.VaultUnlocked, result.Vault.Status)
	require.NotNil(t, result.Inheritance)

	activated, err := f.scheduler.ActivateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	got, err := f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultInherited, got.Status)

	_, err = f.controller.Unlock(ctx, primary, RequestContext{CallerID: "heir"})
	require.Error(t, err)
	assert.ErrorIs(t, err, vaulterr.ErrRestrictionViolation)

	got, err = f.store.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VaultInherited, got.Status, "inherited never regresses")
}

func TestController_Unlock_InheritedVaultDoesNotRegress(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{auto: true})
	secret := f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})
	require.NoError(t, f.store.TransitionVault(ctx, vault.ID, models.VaultLocked, models.VaultInherited, f.clock.Now()))

	result, err := f.controller.Unlock(ctx, secret, RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, models.VaultInherited, result.Vault.Status)
	assert.Nil(t, result.Inheritance)
	assert.Empty(t, f.notifier.Events())

	_, err = f.store.GetOpenInheritance(ctx, vault.ID)
	assert.ErrorIs(t, err, vaulterr.ErrNotFound)
}

func TestController_Unlock_ConcurrentTokensScheduleOnce(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{auto: true, delay: 24})

	const attempts = 8
	secrets := make([]string, attempts)
	for i := range secrets {
		secrets[i] = f.issueToken(t, vault.ID, nil, models.TokenRestrictions{})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		scheduled int
		failures  int
	)
	for _, secret := range secrets {
		wg.Add(1)
		go func(secret string) {
			defer wg.Done()
			result, err := f.controller.Unlock(ctx, secret, RequestContext{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			if result.Inheritance != nil {
				scheduled++
			}
		}(secret)
	}
	wg.Wait()

	assert.Equal(t, 0, failures)
	assert.Equal(t, 1, scheduled, "inheritance scheduled exactly once")
	assert.Equal(t, attempts, f.countLogs(t))
}

func TestController_Unlock_ConcurrentUsageCeiling(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, vaultOptions{})
	secret := f.issueToken(t, vault.ID, intPtr(2), models.TokenRestrictions{})

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.controller.Unlock(ctx, secret, RequestContext{}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, successes)
	assert.Equal(t, 2, f.tokenUsage(t, vault.ID))
	assert.Equal(t, attempts, f.countLogs(t))
}
