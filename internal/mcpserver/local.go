package mcpserver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vaultcode-ai/vaultcode/internal/event"
)

// LocalWorkspace serves workspace introspection straight off the vault
// directory on disk. UI operations are relayed over the event bus for the
// connected editor to perform; headless runs simply observe them on the
// event stream.
type LocalWorkspace struct {
	root string
}

// NewLocalWorkspace creates a workspace rooted at dir.
func NewLocalWorkspace(dir string) *LocalWorkspace {
	return &LocalWorkspace{root: dir}
}

// ActiveFile always reports no open file; only the editor knows focus.
func (w *LocalWorkspace) ActiveFile(ctx context.Context) (*FileInfo, error) {
	return nil, nil
}

// Stats walks the vault and counts files, markdown notes and folders.
func (w *LocalWorkspace) Stats(ctx context.Context) (*VaultStats, error) {
	stats := &VaultStats{}
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if hidden(path, w.root) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != w.root {
				stats.FolderCount++
			}
			return nil
		}
		stats.FileCount++
		if strings.HasSuffix(d.Name(), ".md") {
			stats.NoteCount++
		}
		if info, err := d.Info(); err == nil {
			stats.TotalBytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	return stats, nil
}

// RecentFiles returns up to limit vault files, most recently modified first.
func (w *LocalWorkspace) RecentFiles(ctx context.Context, limit int) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if hidden(path, w.root) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:       filepath.ToSlash(rel),
			Name:       d.Name(),
			ModifiedAt: info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ModifiedAt > files[j].ModifiedAt })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// Commands returns nothing; commands live in the editor, which answers
// over its own MCP connection when present.
func (w *LocalWorkspace) Commands(ctx context.Context) ([]Command, error) {
	return []Command{}, nil
}

// OpenFile relays an open request to the editor after verifying the file
// exists.
func (w *LocalWorkspace) OpenFile(ctx context.Context, path string) error {
	abs, err := w.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	event.Publish(event.Event{
		Type: event.WorkspaceOpenFile,
		Data: event.WorkspaceOpenFileData{Path: path},
	})
	return nil
}

// ShowNotice relays a notice to the editor.
func (w *LocalWorkspace) ShowNotice(ctx context.Context, message string, durationMs int) error {
	event.Publish(event.Event{
		Type: event.WorkspaceNotice,
		Data: event.WorkspaceNoticeData{Message: message, DurationMs: durationMs},
	})
	return nil
}

// RevealInExplorer relays a reveal request for an existing file.
func (w *LocalWorkspace) RevealInExplorer(ctx context.Context, path string) error {
	abs, err := w.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("reveal %s: %w", path, err)
	}
	event.Publish(event.Event{
		Type: event.WorkspaceOpenFile,
		Data: event.WorkspaceOpenFileData{Path: path, Reveal: true},
	})
	return nil
}

// ExecuteCommand relays a command invocation to the editor.
func (w *LocalWorkspace) ExecuteCommand(ctx context.Context, commandID string) error {
	if commandID == "" {
		return fmt.Errorf("command id is required")
	}
	event.Publish(event.Event{
		Type: event.WorkspaceCommand,
		Data: event.WorkspaceCommandData{CommandID: commandID},
	})
	return nil
}

// CreateNote writes a new note, refusing to overwrite an existing file.
func (w *LocalWorkspace) CreateNote(ctx context.Context, path, content string, open bool) (*FileInfo, error) {
	abs, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("create %s: file already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	if open {
		event.Publish(event.Event{
			Type: event.WorkspaceOpenFile,
			Data: event.WorkspaceOpenFileData{Path: path},
		})
	}

	return &FileInfo{
		Path:       filepath.ToSlash(path),
		Name:       filepath.Base(path),
		ModifiedAt: info.ModTime().UnixMilli(),
	}, nil
}

// resolve maps a vault-relative path to an absolute one, rejecting
// escapes above the vault root.
func (w *LocalWorkspace) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	abs := filepath.Join(w.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes vault: %s", path)
	}
	return abs, nil
}

// hidden reports whether path sits inside a dot-directory such as
// .obsidian or .git.
func hidden(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
