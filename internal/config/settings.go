package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/internal/storage"
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// SettingsStore holds the mutable runtime settings (approval policy, budget
// and turn limits, always-allowed tools). It persists through the storage
// layer and can watch the settings file for external edits, so changes made
// by another process take effect mid-session.
type SettingsStore struct {
	store *storage.Store

	mu      sync.RWMutex
	current types.Settings
	subs    []func(types.Settings)

	watcher *fsnotify.Watcher
}

// NewSettingsStore loads persisted settings (or defaults) from store.
func NewSettingsStore(ctx context.Context, store *storage.Store) (*SettingsStore, error) {
	settings, err := store.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{store: store, current: settings}, nil
}

// Current returns a copy of the active settings.
func (s *SettingsStore) Current() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	out.AlwaysAllowedTools = append([]string(nil), s.current.AlwaysAllowedTools...)
	return out
}

// Update applies mutate to the settings, persists the result, and notifies
// subscribers.
func (s *SettingsStore) Update(ctx context.Context, mutate func(*types.Settings)) error {
	s.mu.Lock()
	mutate(&s.current)
	updated := s.current
	subs := append([]func(types.Settings){}, s.subs...)
	s.mu.Unlock()

	if err := s.store.SaveSettings(ctx, updated); err != nil {
		return err
	}
	for _, fn := range subs {
		fn(updated)
	}
	return nil
}

// AddAlwaysAllowed appends a tool to the always-allowed list if not already
// present. This is the persistence path for an approve-always decision.
func (s *SettingsStore) AddAlwaysAllowed(ctx context.Context, tool string) error {
	return s.Update(ctx, func(settings *types.Settings) {
		for _, existing := range settings.AlwaysAllowedTools {
			if existing == tool {
				return
			}
		}
		settings.AlwaysAllowedTools = append(settings.AlwaysAllowedTools, tool)
	})
}

// OnChange registers a callback invoked after every settings change,
// whether from Update or from an external file edit.
func (s *SettingsStore) OnChange(fn func(types.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Watch reloads settings when the underlying file changes on disk. It
// returns once the watcher is installed; reloads run until ctx ends.
func (s *SettingsStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: atomic renames replace the inode.
	if err := watcher.Add(filepath.Dir(s.store.SettingsPath())); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	log := logging.ForService("settings")
	target := s.store.SettingsPath()

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				s.reload(ctx, log)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("settings watcher error")
			}
		}
	}()
	return nil
}

func (s *SettingsStore) reload(ctx context.Context, log zerolog.Logger) {
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reload settings")
		return
	}

	s.mu.Lock()
	s.current = settings
	subs := append([]func(types.Settings){}, s.subs...)
	s.mu.Unlock()

	log.Info().Msg("settings reloaded from disk")
	for _, fn := range subs {
		fn(settings)
	}
}
