// Package storage persists session snapshots, queued messages, and settings
// as JSON files under a base directory. Writes go through an exclusive file
// lock and an atomic rename so concurrent processes never observe a torn
// file.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

var ErrNotFound = errors.New("not found")

// Store is file-based JSON storage rooted at a base directory.
type Store struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// New creates a Store rooted at basePath. The directory is created lazily
// on first write.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

const (
	dirSessions  = "sessions"
	dirQueues    = "queues"
	fileSettings = "settings"
)

// SaveSession writes a session snapshot.
func (s *Store) SaveSession(ctx context.Context, sess *types.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session has no ID")
	}
	return s.put(ctx, []string{dirSessions, sess.ID}, sess)
}

// LoadSession reads a session snapshot by ID.
func (s *Store) LoadSession(ctx context.Context, id string) (*types.Session, error) {
	var sess types.Session
	if err := s.get(ctx, []string{dirSessions, id}, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns the IDs of all stored sessions.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	return s.list(ctx, []string{dirSessions})
}

// DeleteSession removes a session snapshot and its queue.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.delete(ctx, []string{dirSessions, id}); err != nil {
		return err
	}
	return s.delete(ctx, []string{dirQueues, id})
}

// SaveQueue writes the pending message queue for a session. An empty queue
// removes the file.
func (s *Store) SaveQueue(ctx context.Context, sessionID string, pending []types.QueuedMessage) error {
	if len(pending) == 0 {
		return s.delete(ctx, []string{dirQueues, sessionID})
	}
	return s.put(ctx, []string{dirQueues, sessionID}, pending)
}

// LoadQueue reads the pending message queue for a session. A missing file
// is an empty queue.
func (s *Store) LoadQueue(ctx context.Context, sessionID string) ([]types.QueuedMessage, error) {
	var pending []types.QueuedMessage
	err := s.get(ctx, []string{dirQueues, sessionID}, &pending)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// SaveSettings persists the settings snapshot.
func (s *Store) SaveSettings(ctx context.Context, settings types.Settings) error {
	return s.put(ctx, []string{fileSettings}, settings)
}

// LoadSettings reads persisted settings, falling back to defaults when no
// snapshot exists.
func (s *Store) LoadSettings(ctx context.Context) (types.Settings, error) {
	settings := types.DefaultSettings()
	err := s.get(ctx, []string{fileSettings}, &settings)
	if errors.Is(err, ErrNotFound) {
		return types.DefaultSettings(), nil
	}
	if err != nil {
		return settings, err
	}
	return settings, nil
}

// SettingsPath returns the on-disk location of the settings snapshot, for
// callers that watch it for external edits.
func (s *Store) SettingsPath() string {
	return s.pathToFile([]string{fileSettings})
}

func (s *Store) pathToFile(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...) + ".json"
}

func (s *Store) pathToDir(path []string) string {
	parts := append([]string{s.basePath}, path...)
	return filepath.Join(parts...)
}

func (s *Store) get(ctx context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}

	return nil
}

func (s *Store) put(ctx context.Context, path []string, v any) error {
	filePath := s.pathToFile(path)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to temp file first, then rename (atomic operation)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

func (s *Store) delete(ctx context.Context, path []string) error {
	filePath := s.pathToFile(path)

	// Nothing on disk means nothing to delete. Taking the lock first would
	// fail when the parent directory was never created.
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *Store) list(ctx context.Context, path []string) ([]string, error) {
	dirPath := s.pathToDir(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var items []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".json") {
			items = append(items, strings.TrimSuffix(name, ".json"))
		}
	}

	return items, nil
}

func (s *Store) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}

	return lock
}
