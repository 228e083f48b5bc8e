// Package permission decides whether a tool invocation may execute, and
// mediates the human approval flow for the ones that may not.
package permission

import (
	"github.com/vaultcode-ai/vaultcode/pkg/types"
)

// Reason is the closed set of decision reasons.
type Reason string

const (
	ReasonReadOnly              Reason = "read-only"
	ReasonWorkspaceUI           Reason = "obsidian-ui"
	ReasonAlwaysAllowed         Reason = "always-allowed"
	ReasonAutoApproveWrites     Reason = "auto-approve-writes"
	ReasonSessionApproved       Reason = "session-approved"
	ReasonRequiresWriteApproval Reason = "requires-write-approval"
	ReasonBashDisabled          Reason = "bash-approval-disabled"
	ReasonRequiresBashApproval  Reason = "requires-bash-approval"
	ReasonSubagent              Reason = "subagent"
	ReasonDefault               Reason = "default"
)

// Decision is the result of evaluating a tool call.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   Reason `json:"reason"`
}

// readOnlyTools never touch workspace state and are always approved.
var readOnlyTools = map[string]bool{
	"Read": true,
	"Glob": true,
	"Grep": true,
	"LS":   true,
	"mcp__obsidian__get_active_file":  true,
	"mcp__obsidian__get_vault_stats":  true,
	"mcp__obsidian__get_recent_files": true,
	"mcp__obsidian__list_commands":    true,
}

// workspaceUITools drive the workspace UI and are considered safe.
var workspaceUITools = map[string]bool{
	"mcp__obsidian__open_file":          true,
	"mcp__obsidian__show_notice":        true,
	"mcp__obsidian__reveal_in_explorer": true,
	"mcp__obsidian__execute_command":    true,
	"mcp__obsidian__create_note":        true,
}

// writeTools mutate vault files and are gated by settings.
var writeTools = map[string]bool{
	"Write":     true,
	"Edit":      true,
	"MultiEdit": true,
}

// Decide evaluates a tool name against the settings snapshot and the
// session-scoped approval set. Rules are checked in fixed priority order
// and the first match wins; in particular, always-allowed is checked
// before the write/bash rules so a persisted always-allow overrides a
// stricter per-call setting. Pure and total: it never blocks, never
// mutates its inputs, and every tool name maps to exactly one decision.
func Decide(toolName string, settings types.Settings, sessionApproved *Approvals) Decision {
	if readOnlyTools[toolName] {
		return Decision{Approved: true, Reason: ReasonReadOnly}
	}

	if workspaceUITools[toolName] {
		return Decision{Approved: true, Reason: ReasonWorkspaceUI}
	}

	if settings.AlwaysAllowed(toolName) {
		return Decision{Approved: true, Reason: ReasonAlwaysAllowed}
	}

	if writeTools[toolName] {
		if settings.AutoApproveVaultWrites {
			return Decision{Approved: true, Reason: ReasonAutoApproveWrites}
		}
		if sessionApproved.Has(toolName) {
			return Decision{Approved: true, Reason: ReasonSessionApproved}
		}
		return Decision{Approved: false, Reason: ReasonRequiresWriteApproval}
	}

	if toolName == "Bash" {
		if !settings.RequireBashApproval {
			return Decision{Approved: true, Reason: ReasonBashDisabled}
		}
		if sessionApproved.Has(toolName) {
			return Decision{Approved: true, Reason: ReasonSessionApproved}
		}
		return Decision{Approved: false, Reason: ReasonRequiresBashApproval}
	}

	// Sub-agents run their own permission pass; approving here avoids
	// double-gating the same underlying calls.
	if toolName == "Task" {
		return Decision{Approved: true, Reason: ReasonSubagent}
	}

	return Decision{Approved: true, Reason: ReasonDefault}
}
