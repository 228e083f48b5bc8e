package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkspace records calls and returns canned data.
type fakeWorkspace struct {
	active      *FileInfo
	stats       VaultStats
	recent      []FileInfo
	commands    []Command
	opened      []string
	notices     []string
	revealed    []string
	executed    []string
	created     []string
	failWith    error
	recentLimit int
}

func (f *fakeWorkspace) ActiveFile(ctx context.Context) (*FileInfo, error) {
	return f.active, f.failWith
}

func (f *fakeWorkspace) Stats(ctx context.Context) (*VaultStats, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &f.stats, nil
}

func (f *fakeWorkspace) RecentFiles(ctx context.Context, limit int) ([]FileInfo, error) {
	f.recentLimit = limit
	return f.recent, f.failWith
}

func (f *fakeWorkspace) Commands(ctx context.Context) ([]Command, error) {
	return f.commands, f.failWith
}

func (f *fakeWorkspace) OpenFile(ctx context.Context, path string) error {
	f.opened = append(f.opened, path)
	return f.failWith
}

func (f *fakeWorkspace) ShowNotice(ctx context.Context, message string, durationMs int) error {
	f.notices = append(f.notices, message)
	return f.failWith
}

func (f *fakeWorkspace) RevealInExplorer(ctx context.Context, path string) error {
	f.revealed = append(f.revealed, path)
	return f.failWith
}

func (f *fakeWorkspace) ExecuteCommand(ctx context.Context, commandID string) error {
	f.executed = append(f.executed, commandID)
	return f.failWith
}

func (f *fakeWorkspace) CreateNote(ctx context.Context, path, content string, open bool) (*FileInfo, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.created = append(f.created, path)
	return &FileInfo{Path: path, Name: path}, nil
}

func callTool(t *testing.T, ws Workspace, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	srv := NewServer(ws)
	tool := srv.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := tool.Handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be text")
	return text.Text
}

func TestServerExposesAllWorkspaceTools(t *testing.T) {
	srv := NewServer(&fakeWorkspace{})

	names := []string{
		"get_active_file", "get_vault_stats", "get_recent_files",
		"list_commands", "open_file", "show_notice",
		"reveal_in_explorer", "execute_command", "create_note",
	}
	for _, name := range names {
		assert.NotNil(t, srv.GetTool(name), "tool %s should be registered", name)
	}
}

func TestGetActiveFile(t *testing.T) {
	ws := &fakeWorkspace{active: &FileInfo{Path: "notes/today.md", Name: "today.md"}}

	result := callTool(t, ws, "get_active_file", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "notes/today.md")
}

func TestGetActiveFileNoneOpen(t *testing.T) {
	result := callTool(t, &fakeWorkspace{}, "get_active_file", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no file is currently open")
}

func TestGetVaultStats(t *testing.T) {
	ws := &fakeWorkspace{stats: VaultStats{FileCount: 42, NoteCount: 40}}

	result := callTool(t, ws, "get_vault_stats", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"fileCount":42`)
}

func TestGetRecentFilesDefaultLimit(t *testing.T) {
	ws := &fakeWorkspace{recent: []FileInfo{{Path: "a.md"}}}

	result := callTool(t, ws, "get_recent_files", nil)
	assert.False(t, result.IsError)
	assert.Equal(t, defaultRecentLimit, ws.recentLimit)
}

func TestGetRecentFilesExplicitLimit(t *testing.T) {
	ws := &fakeWorkspace{}

	callTool(t, ws, "get_recent_files", map[string]any{"limit": float64(3)})
	assert.Equal(t, 3, ws.recentLimit)
}

func TestOpenFile(t *testing.T) {
	ws := &fakeWorkspace{}

	result := callTool(t, ws, "open_file", map[string]any{"path": "notes/plan.md"})
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"notes/plan.md"}, ws.opened)
}

func TestOpenFileMissingPath(t *testing.T) {
	result := callTool(t, &fakeWorkspace{}, "open_file", map[string]any{})
	assert.True(t, result.IsError)
}

func TestShowNotice(t *testing.T) {
	ws := &fakeWorkspace{}

	result := callTool(t, ws, "show_notice", map[string]any{"message": "done"})
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"done"}, ws.notices)
}

func TestExecuteCommand(t *testing.T) {
	ws := &fakeWorkspace{}

	result := callTool(t, ws, "execute_command", map[string]any{"commandId": "editor:save"})
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"editor:save"}, ws.executed)
}

func TestCreateNote(t *testing.T) {
	ws := &fakeWorkspace{}

	result := callTool(t, ws, "create_note", map[string]any{
		"path":    "notes/new.md",
		"content": "# New",
	})
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"notes/new.md"}, ws.created)
	assert.Contains(t, resultText(t, result), "notes/new.md")
}

func TestWorkspaceErrorBecomesToolError(t *testing.T) {
	ws := &fakeWorkspace{failWith: errors.New("vault unavailable")}

	result := callTool(t, ws, "get_vault_stats", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "vault unavailable")
}
