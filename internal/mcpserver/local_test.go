package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultcode-ai/vaultcode/internal/event"
)

func newVault(t *testing.T) (string, *LocalWorkspace) {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "daily"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inbox.md"), []byte("# Inbox"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "daily", "today.md"), []byte("# Today"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".obsidian", "app.json"), []byte("{}"), 0o644))

	return dir, NewLocalWorkspace(dir)
}

func TestLocalStats(t *testing.T) {
	_, ws := newVault(t)

	stats, err := ws.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.FileCount)
	assert.Equal(t, 2, stats.NoteCount)
	assert.Equal(t, 1, stats.FolderCount)
	assert.NotZero(t, stats.TotalBytes)
}

func TestLocalRecentFiles(t *testing.T) {
	dir, ws := newVault(t)

	// Make one file clearly newest.
	newest := filepath.Join(dir, "daily", "today.md")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(newest, future, future))

	files, err := ws.RecentFiles(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "daily/today.md", files[0].Path)
}

func TestLocalRecentFilesSkipsHidden(t *testing.T) {
	_, ws := newVault(t)

	files, err := ws.RecentFiles(context.Background(), 0)
	require.NoError(t, err)
	for _, f := range files {
		assert.NotContains(t, f.Path, ".obsidian")
	}
}

func TestLocalOpenFilePublishesEvent(t *testing.T) {
	event.Reset()
	_, ws := newVault(t)

	got := make(chan event.Event, 1)
	unsub := event.Subscribe(event.WorkspaceOpenFile, func(e event.Event) {
		got <- e
	})
	defer unsub()

	require.NoError(t, ws.OpenFile(context.Background(), "inbox.md"))

	select {
	case e := <-got:
		data, ok := e.Data.(event.WorkspaceOpenFileData)
		require.True(t, ok)
		assert.Equal(t, "inbox.md", data.Path)
		assert.False(t, data.Reveal)
	case <-time.After(2 * time.Second):
		t.Fatal("no workspace.open-file event")
	}
}

func TestLocalOpenFileMissing(t *testing.T) {
	event.Reset()
	_, ws := newVault(t)

	assert.Error(t, ws.OpenFile(context.Background(), "missing.md"))
}

func TestLocalCreateNote(t *testing.T) {
	event.Reset()
	dir, ws := newVault(t)

	file, err := ws.CreateNote(context.Background(), "projects/idea.md", "# Idea", false)
	require.NoError(t, err)
	assert.Equal(t, "projects/idea.md", file.Path)

	content, err := os.ReadFile(filepath.Join(dir, "projects", "idea.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Idea", string(content))
}

func TestLocalCreateNoteRefusesOverwrite(t *testing.T) {
	event.Reset()
	_, ws := newVault(t)

	_, err := ws.CreateNote(context.Background(), "inbox.md", "clobber", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLocalPathEscapeRejected(t *testing.T) {
	event.Reset()
	_, ws := newVault(t)

	err := ws.OpenFile(context.Background(), "../outside.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes vault")
}

func TestLocalShowNotice(t *testing.T) {
	event.Reset()
	_, ws := newVault(t)

	got := make(chan event.Event, 1)
	unsub := event.Subscribe(event.WorkspaceNotice, func(e event.Event) {
		got <- e
	})
	defer unsub()

	require.NoError(t, ws.ShowNotice(context.Background(), "saved", 2000))

	select {
	case e := <-got:
		data, ok := e.Data.(event.WorkspaceNoticeData)
		require.True(t, ok)
		assert.Equal(t, "saved", data.Message)
		assert.Equal(t, 2000, data.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("no workspace.notice event")
	}
}
