// Package mcpserver exposes the workspace tools over the Model Context
// Protocol. Vault I/O itself stays behind the Workspace interface; this
// package only shapes it into tools.
package mcpserver

import "context"

// FileInfo describes one file in the workspace.
type FileInfo struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	ModifiedAt int64  `json:"modifiedAt"` // epoch milliseconds
}

// VaultStats summarizes the workspace.
type VaultStats struct {
	FileCount   int   `json:"fileCount"`
	NoteCount   int   `json:"noteCount"`
	FolderCount int   `json:"folderCount"`
	TotalBytes  int64 `json:"totalBytes"`
}

// Command is one invokable workspace command.
type Command struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Workspace is what the host application provides: introspection over the
// vault and control of its UI. Implementations are expected to be safe for
// concurrent use.
type Workspace interface {
	// ActiveFile returns the file currently focused in the editor, or
	// nil when nothing is open.
	ActiveFile(ctx context.Context) (*FileInfo, error)

	// Stats returns aggregate counts for the vault.
	Stats(ctx context.Context) (*VaultStats, error)

	// RecentFiles returns up to limit files ordered most recent first.
	RecentFiles(ctx context.Context, limit int) ([]FileInfo, error)

	// Commands lists the invokable workspace commands.
	Commands(ctx context.Context) ([]Command, error)

	// OpenFile opens a file in the editor.
	OpenFile(ctx context.Context, path string) error

	// ShowNotice displays a transient notice to the operator.
	ShowNotice(ctx context.Context, message string, durationMs int) error

	// RevealInExplorer highlights a file in the system file explorer.
	RevealInExplorer(ctx context.Context, path string) error

	// ExecuteCommand invokes a workspace command by id.
	ExecuteCommand(ctx context.Context, commandID string) error

	// CreateNote creates a new note and optionally opens it.
	CreateNote(ctx context.Context, path, content string, open bool) (*FileInfo, error)
}
