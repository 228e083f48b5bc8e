package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultcode-ai/vaultcode/internal/storage"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

func newSettingsStore(t *testing.T) (*SettingsStore, *storage.Store) {
	t.Helper()
	fileStore := storage.New(t.TempDir())
	store, err := NewSettingsStore(context.Background(), fileStore)
	require.NoError(t, err)
	return store, fileStore
}

func TestSettingsStoreDefaults(t *testing.T) {
	store, _ := newSettingsStore(t)
	assert.Equal(t, types.DefaultSettings(), store.Current())
}

func TestSettingsStoreUpdatePersists(t *testing.T) {
	store, fileStore := newSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, func(s *types.Settings) {
		s.AutoApproveVaultWrites = true
		s.MaxBudgetPerSession = 10
	}))

	assert.True(t, store.Current().AutoApproveVaultWrites)

	persisted, err := fileStore.LoadSettings(ctx)
	require.NoError(t, err)
	assert.True(t, persisted.AutoApproveVaultWrites)
	assert.Equal(t, 10.0, persisted.MaxBudgetPerSession)
}

func TestAddAlwaysAllowed(t *testing.T) {
	store, _ := newSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddAlwaysAllowed(ctx, "Bash"))
	require.NoError(t, store.AddAlwaysAllowed(ctx, "Bash")) // no duplicate
	require.NoError(t, store.AddAlwaysAllowed(ctx, "WebFetch"))

	assert.Equal(t, []string{"Bash", "WebFetch"}, store.Current().AlwaysAllowedTools)
}

func TestCurrentReturnsCopy(t *testing.T) {
	store, _ := newSettingsStore(t)
	require.NoError(t, store.AddAlwaysAllowed(context.Background(), "Bash"))

	got := store.Current()
	got.AlwaysAllowedTools[0] = "mutated"

	assert.Equal(t, []string{"Bash"}, store.Current().AlwaysAllowedTools)
}

func TestOnChangeNotified(t *testing.T) {
	store, _ := newSettingsStore(t)

	var seen []types.Settings
	store.OnChange(func(s types.Settings) { seen = append(seen, s) })

	require.NoError(t, store.Update(context.Background(), func(s *types.Settings) {
		s.RequireBashApproval = false
	}))

	require.Len(t, seen, 1)
	assert.False(t, seen[0].RequireBashApproval)
}

func TestWatchPicksUpExternalEdit(t *testing.T) {
	dir := t.TempDir()
	fileStore := storage.New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewSettingsStore(ctx, fileStore)
	require.NoError(t, err)
	// The watched directory must exist before Watch.
	require.NoError(t, fileStore.SaveSettings(ctx, store.Current()))
	require.NoError(t, store.Watch(ctx))

	// Simulate another process editing the settings file.
	external := types.DefaultSettings()
	external.MaxTurns = 99
	require.NoError(t, storage.New(dir).SaveSettings(ctx, external))

	require.Eventually(t, func() bool {
		return store.Current().MaxTurns == 99
	}, 2*time.Second, 10*time.Millisecond)
}
