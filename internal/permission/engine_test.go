package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

func settingsWith(mod func(*types.Settings)) types.Settings {
	s := types.DefaultSettings()
	if mod != nil {
		mod(&s)
	}
	return s
}

func approvalsOf(tools ...string) *Approvals {
	a := NewApprovals()
	for _, name := range tools {
		a.Add(name)
	}
	return a
}

func TestDecideReadOnly(t *testing.T) {
	readOnly := []string{
		"Read", "Glob", "Grep", "LS",
		"mcp__obsidian__get_active_file",
		"mcp__obsidian__get_vault_stats",
		"mcp__obsidian__get_recent_files",
		"mcp__obsidian__list_commands",
	}

	// Regardless of settings, read-only tools pass.
	variants := []types.Settings{
		settingsWith(nil),
		settingsWith(func(s *types.Settings) { s.AutoApproveVaultWrites = true }),
		settingsWith(func(s *types.Settings) { s.RequireBashApproval = false }),
		settingsWith(func(s *types.Settings) { s.AlwaysAllowedTools = []string{"Read", "Bash"} }),
	}

	for _, tool := range readOnly {
		for _, settings := range variants {
			d := Decide(tool, settings, nil)
			assert.True(t, d.Approved, tool)
			assert.Equal(t, ReasonReadOnly, d.Reason, tool)
		}
	}
}

func TestDecideWorkspaceUI(t *testing.T) {
	uiTools := []string{
		"mcp__obsidian__open_file",
		"mcp__obsidian__show_notice",
		"mcp__obsidian__reveal_in_explorer",
		"mcp__obsidian__execute_command",
		"mcp__obsidian__create_note",
	}

	for _, tool := range uiTools {
		d := Decide(tool, settingsWith(nil), nil)
		assert.True(t, d.Approved, tool)
		assert.Equal(t, ReasonWorkspaceUI, d.Reason, tool)
	}
}

func TestDecideWriteTools(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		settings types.Settings
		approved *Approvals
		expected Decision
	}{
		{
			name:     "write denied by default",
			tool:     "Write",
			settings: settingsWith(nil),
			expected: Decision{Approved: false, Reason: ReasonRequiresWriteApproval},
		},
		{
			name:     "edit denied by default",
			tool:     "Edit",
			settings: settingsWith(nil),
			expected: Decision{Approved: false, Reason: ReasonRequiresWriteApproval},
		},
		{
			name:     "multiedit denied by default",
			tool:     "MultiEdit",
			settings: settingsWith(nil),
			expected: Decision{Approved: false, Reason: ReasonRequiresWriteApproval},
		},
		{
			name:     "auto-approve setting wins",
			tool:     "Write",
			settings: settingsWith(func(s *types.Settings) { s.AutoApproveVaultWrites = true }),
			expected: Decision{Approved: true, Reason: ReasonAutoApproveWrites},
		},
		{
			name:     "session approval wins when auto-approve is off",
			tool:     "Write",
			settings: settingsWith(nil),
			approved: approvalsOf("Write"),
			expected: Decision{Approved: true, Reason: ReasonSessionApproved},
		},
		{
			name:     "session approval for a different tool does not help",
			tool:     "Edit",
			settings: settingsWith(nil),
			approved: approvalsOf("Write"),
			expected: Decision{Approved: false, Reason: ReasonRequiresWriteApproval},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.tool, tt.settings, tt.approved))
		})
	}
}

func TestDecideBash(t *testing.T) {
	tests := []struct {
		name     string
		settings types.Settings
		approved *Approvals
		expected Decision
	}{
		{
			name:     "denied when approval required",
			settings: settingsWith(nil),
			expected: Decision{Approved: false, Reason: ReasonRequiresBashApproval},
		},
		{
			name:     "approved when approval disabled",
			settings: settingsWith(func(s *types.Settings) { s.RequireBashApproval = false }),
			expected: Decision{Approved: true, Reason: ReasonBashDisabled},
		},
		{
			name:     "session approval wins",
			settings: settingsWith(nil),
			approved: approvalsOf("Bash"),
			expected: Decision{Approved: true, Reason: ReasonSessionApproved},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide("Bash", tt.settings, tt.approved))
		})
	}
}

func TestDecideAlwaysAllowedPrecedesSpecificRules(t *testing.T) {
	// always-allowed is evaluated before the write rule...
	settings := settingsWith(func(s *types.Settings) { s.AlwaysAllowedTools = []string{"Write"} })
	d := Decide("Write", settings, nil)
	assert.Equal(t, Decision{Approved: true, Reason: ReasonAlwaysAllowed}, d)

	// ...and before the bash rule, even with approval required.
	settings = settingsWith(func(s *types.Settings) { s.AlwaysAllowedTools = []string{"Bash"} })
	d = Decide("Bash", settings, nil)
	assert.Equal(t, Decision{Approved: true, Reason: ReasonAlwaysAllowed}, d)
}

func TestDecideTask(t *testing.T) {
	variants := []types.Settings{
		settingsWith(nil),
		settingsWith(func(s *types.Settings) { s.AutoApproveVaultWrites = true }),
		settingsWith(func(s *types.Settings) { s.RequireBashApproval = false }),
	}
	for _, settings := range variants {
		d := Decide("Task", settings, nil)
		assert.Equal(t, Decision{Approved: true, Reason: ReasonSubagent}, d)
	}
}

func TestDecideDefault(t *testing.T) {
	for _, tool := range []string{"WebFetch", "NotebookEdit", "SomeFutureTool"} {
		d := Decide(tool, settingsWith(nil), nil)
		assert.Equal(t, Decision{Approved: true, Reason: ReasonDefault}, d, tool)
	}
}

func TestDecideAlwaysAllowedArbitraryTool(t *testing.T) {
	settings := settingsWith(func(s *types.Settings) { s.AlwaysAllowedTools = []string{"WebFetch"} })
	d := Decide("WebFetch", settings, nil)
	assert.Equal(t, Decision{Approved: true, Reason: ReasonAlwaysAllowed}, d)
}

func TestDecideDeterministic(t *testing.T) {
	settings := settingsWith(func(s *types.Settings) {
		s.AlwaysAllowedTools = []string{"Grep", "WebFetch"}
	})
	approved := approvalsOf("Bash", "Write")

	for _, tool := range []string{"Read", "Write", "Edit", "Bash", "Task", "WebFetch", "x"} {
		first := Decide(tool, settings, approved)
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, Decide(tool, settings, approved), tool)
		}
	}
}

func TestApprovals(t *testing.T) {
	a := NewApprovals()
	assert.False(t, a.Has("Write"))

	a.Add("Write")
	a.Add("Bash")
	assert.True(t, a.Has("Write"))
	assert.True(t, a.Has("Bash"))
	assert.ElementsMatch(t, []string{"Write", "Bash"}, a.List())

	a.Clear()
	assert.False(t, a.Has("Write"))
	assert.Empty(t, a.List())

	var nilSet *Approvals
	assert.False(t, nilSet.Has("Write"))
}
