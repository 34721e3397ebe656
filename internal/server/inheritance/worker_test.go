package inheritance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/legacyvault/internal/models"
)

func TestWorker_ActivatesOnKick(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, models.VaultUnlocked, 1)

	record, err := f.scheduler.ForceTrigger(ctx, vault.ID, f.owner(), models.TriggerManual)
	require.NoError(t, err)

	worker := NewWorker(f.scheduler, time.Hour, setupTestLogger())
	worker.Start(ctx)
	defer worker.Stop()

	f.clock.Advance(2 * time.Hour)
	f.scheduler.Kick()

	assert.Eventually(t, func() bool {
		got, err := f.store.GetInheritance(ctx, record.ID)
		return err == nil && got.Status == models.InheritanceActive
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_ReplaysOnStart(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	vault := f.createVault(t, models.VaultUnlocked, 0)

	// запись создана до "перезапуска", срок уже наступил
	record, err := f.scheduler.ForceTrigger(ctx, vault.ID, f.owner(), models.TriggerManual)
	require.NoError(t, err)
	<-f.scheduler.kick

	restarted := NewScheduler(f.store, f.notifier, setupTestLogger(), WithClock(f.clock.Now))
	worker := NewWorker(restarted, time.Hour, setupTestLogger())
	worker.Start(ctx)
	defer worker.Stop()

	assert.Eventually(t, func() bool {
		got, err := f.store.GetVault(ctx, vault.ID)
		return err == nil && got.Status == models.VaultInherited
	}, 2*time.Second, 10*time.Millisecond)

	got, err := f.store.GetInheritance(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InheritanceActive, got.Status)
}

func TestWorker_StopIdempotent(t *testing.T) {
	f := setupFixture(t)
	worker := NewWorker(f.scheduler, 0, setupTestLogger())
	assert.Equal(t, DefaultPollInterval, worker.interval)

	worker.Stop()
	worker.Start(context.Background())
	worker.Start(context.Background())
	worker.Stop()
	worker.Stop()
}
