package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/event"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
)

func TestRunnerRoutesWorkspaceTools(t *testing.T) {
	ws := &fakeWorkspace{
		active: &FileInfo{Path: "daily/2026-09-01.md", Name: "2026-09-01.md"},
	}
	r := NewRunner(ws, askuser.New())

	out, err := r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_1",
		Name:   ToolPrefix + "get_active_file",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "daily/2026-09-01.md")

	out, err = r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_2",
		Name:   ToolPrefix + "open_file",
		Input:  map[string]any{"path": "daily/2026-09-01.md"},
	})
	require.NoError(t, err)
	assert.Equal(t, "opened daily/2026-09-01.md", out)
	assert.Equal(t, []string{"daily/2026-09-01.md"}, ws.opened)
}

func TestRunnerCreateNote(t *testing.T) {
	ws := &fakeWorkspace{}
	r := NewRunner(ws, askuser.New())

	out, err := r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_1",
		Name:   ToolPrefix + "create_note",
		Input:  map[string]any{"path": "inbox/idea.md", "content": "# Idea", "open": true},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "inbox/idea.md")
	assert.Equal(t, []string{"inbox/idea.md"}, ws.created)
}

func TestRunnerMissingRequiredArg(t *testing.T) {
	r := NewRunner(&fakeWorkspace{}, askuser.New())

	_, err := r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_1",
		Name:   ToolPrefix + "open_file",
		Input:  map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path argument is required")
}

func TestRunnerUnknownTool(t *testing.T) {
	r := NewRunner(&fakeWorkspace{}, askuser.New())

	_, err := r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_1",
		Name:   "Bash",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestRunnerAskUserQuestion(t *testing.T) {
	event.Reset()
	asker := askuser.New()
	r := NewRunner(&fakeWorkspace{}, asker)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.Run(context.Background(), transport.ToolInvocation{
			SessionID: "ses_1",
			CallID:    "call_1",
			Name:      askuser.ToolName,
			Input: map[string]any{
				"questions": []any{
					map[string]any{
						"question": "Which format?",
						"options": []any{
							map[string]any{"label": "markdown"},
							map[string]any{"label": "plain"},
						},
					},
				},
			},
		})
		done <- result{out, err}
	}()

	var pending []askuser.Request
	require.Eventually(t, func() bool {
		pending = asker.Pending()
		return len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, asker.Respond(pending[0].ID, map[string]string{"Which format?": "markdown"}))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, `"Which format?":"markdown"`)
	case <-time.After(2 * time.Second):
		t.Fatal("AskUserQuestion did not return")
	}
}

func TestRunnerAskUserBadInput(t *testing.T) {
	r := NewRunner(&fakeWorkspace{}, askuser.New())

	_, err := r.Run(context.Background(), transport.ToolInvocation{
		CallID: "call_1",
		Name:   askuser.ToolName,
		Input:  map[string]any{},
	})
	assert.Error(t, err)
}

func TestToolDefsCoverPermissionSets(t *testing.T) {
	defs := ToolDefs()

	byName := map[string]bool{}
	for _, d := range defs {
		byName[d.Name] = true
	}

	for _, name := range []string{
		ToolPrefix + "get_active_file",
		ToolPrefix + "get_vault_stats",
		ToolPrefix + "get_recent_files",
		ToolPrefix + "list_commands",
		ToolPrefix + "open_file",
		ToolPrefix + "show_notice",
		ToolPrefix + "reveal_in_explorer",
		ToolPrefix + "execute_command",
		ToolPrefix + "create_note",
		askuser.ToolName,
	} {
		assert.True(t, byName[name], "missing tool def %s", name)
	}
}
