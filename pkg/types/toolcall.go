package types

import (
	"strconv"
	"strings"
)

// ToolCallStatus represents the lifecycle state of a tool invocation.
type ToolCallStatus string

const (
	ToolPending ToolCallStatus = "pending"
	ToolRunning ToolCallStatus = "running"
	ToolSuccess ToolCallStatus = "success"
	ToolError   ToolCallStatus = "error"
)

// SubagentStatus is the independent state axis for Task (sub-agent) calls.
// It is only meaningful when ToolCall.IsSubagent is true, and takes
// precedence over ToolCallStatus for display and terminality decisions.
type SubagentStatus string

const (
	SubagentStarting    SubagentStatus = "starting"
	SubagentRunning     SubagentStatus = "running"
	SubagentThinking    SubagentStatus = "thinking"
	SubagentCompleted   SubagentStatus = "completed"
	SubagentInterrupted SubagentStatus = "interrupted"
	SubagentError       SubagentStatus = "error"
)

// SubagentProgress carries live progress for a running sub-agent.
type SubagentProgress struct {
	Message   string `json:"message"`
	StartTime int64  `json:"startTime"`
}

// ToolCall represents one tool invocation inside a turn. Instances are
// mutated in place as output, error and end time arrive; they are never
// deleted, only marked terminal.
type ToolCall struct {
	ID      string         `json:"id"`
	TurnID  string         `json:"turnID"`
	Name    string         `json:"name"`
	Input   map[string]any `json:"input"`
	Output  *string        `json:"output,omitempty"`
	Error   *string        `json:"error,omitempty"`
	Status  ToolCallStatus `json:"status"`
	Time    ToolCallTime   `json:"time"`

	IsSubagent       bool              `json:"isSubagent,omitempty"`
	SubagentStatus   SubagentStatus    `json:"subagentStatus,omitempty"`
	SubagentProgress *SubagentProgress `json:"subagentProgress,omitempty"`
}

// ToolCallTime contains timestamps for a tool call, epoch milliseconds.
type ToolCallTime struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end,omitempty"`
}

// Terminal reports whether the call has reached a terminal state.
// For sub-agent calls the sub-agent axis decides.
func (t *ToolCall) Terminal() bool {
	if t.IsSubagent && t.SubagentStatus != "" {
		switch t.SubagentStatus {
		case SubagentCompleted, SubagentInterrupted, SubagentError:
			return true
		}
		return false
	}
	return t.Status == ToolSuccess || t.Status == ToolError
}

const mcpWorkspacePrefix = "mcp__obsidian__"

// DisplayName returns a friendly name for the tool call.
// Skill and Task calls include their target; MCP workspace tools are
// shortened to a readable form.
func (t *ToolCall) DisplayName() string {
	if t.Name == "Skill" {
		if skill, ok := t.Input["skill"].(string); ok && skill != "" {
			return "Skill: " + skill
		}
	}
	if t.Name == "Task" {
		if agent, ok := t.Input["subagent_type"].(string); ok && agent != "" {
			return "Task: " + agent
		}
	}
	if strings.HasPrefix(t.Name, mcpWorkspacePrefix) {
		short := strings.TrimPrefix(t.Name, mcpWorkspacePrefix)
		return strings.ReplaceAll(short, "_", " ")
	}
	return t.Name
}

// InputSummary returns a short human-readable summary of the call input.
func (t *ToolCall) InputSummary() string {
	str := func(key string) (string, bool) {
		v, ok := t.Input[key].(string)
		return v, ok && v != ""
	}

	if t.Name == "Skill" {
		if args, ok := str("args"); ok {
			return clip(args, 40)
		}
	}
	if t.Name == "Task" {
		if desc, ok := str("description"); ok {
			return desc
		}
	}

	if path, ok := str("file_path"); ok {
		return basename(path)
	}
	if path, ok := str("path"); ok {
		return basename(path)
	}
	if pattern, ok := str("pattern"); ok {
		return pattern
	}
	if cmd, ok := str("command"); ok {
		return clip(cmd, 30)
	}
	if q, ok := str("query"); ok {
		return clip(q, 30)
	}

	if n := len(t.Input); n > 0 {
		if n == 1 {
			return "1 param"
		}
		return strconv.Itoa(n) + " params"
	}
	return ""
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

