package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
)

// ToolPrefix is how workspace tools appear in agent tool names.
const ToolPrefix = "mcp__obsidian__"

// Runner executes approved tool calls against the workspace and routes
// AskUserQuestion through the asker. It implements transport.ToolRunner.
type Runner struct {
	ws    Workspace
	asker *askuser.Asker
}

// NewRunner creates a runner shared by all sessions.
func NewRunner(ws Workspace, asker *askuser.Asker) *Runner {
	return &Runner{ws: ws, asker: asker}
}

// Run executes one approved tool call and returns its text result.
func (r *Runner) Run(ctx context.Context, inv transport.ToolInvocation) (string, error) {
	if inv.Name == askuser.ToolName {
		return r.runAskUser(ctx, inv)
	}

	name := strings.TrimPrefix(inv.Name, ToolPrefix)
	if name == inv.Name {
		return "", fmt.Errorf("unknown tool: %s", inv.Name)
	}

	switch name {
	case "get_active_file":
		file, err := r.ws.ActiveFile(ctx)
		if err != nil {
			return "", err
		}
		if file == nil {
			return "no file is currently open", nil
		}
		return encode(file)

	case "get_vault_stats":
		stats, err := r.ws.Stats(ctx)
		if err != nil {
			return "", err
		}
		return encode(stats)

	case "get_recent_files":
		limit := intArg(inv.Input, "limit", defaultRecentLimit)
		files, err := r.ws.RecentFiles(ctx, limit)
		if err != nil {
			return "", err
		}
		if files == nil {
			files = []FileInfo{}
		}
		return encode(files)

	case "list_commands":
		commands, err := r.ws.Commands(ctx)
		if err != nil {
			return "", err
		}
		if commands == nil {
			commands = []Command{}
		}
		return encode(commands)

	case "open_file":
		path, err := stringArg(inv.Input, "path")
		if err != nil {
			return "", err
		}
		if err := r.ws.OpenFile(ctx, path); err != nil {
			return "", err
		}
		return "opened " + path, nil

	case "show_notice":
		message, err := stringArg(inv.Input, "message")
		if err != nil {
			return "", err
		}
		if err := r.ws.ShowNotice(ctx, message, intArg(inv.Input, "duration", 0)); err != nil {
			return "", err
		}
		return "notice shown", nil

	case "reveal_in_explorer":
		path, err := stringArg(inv.Input, "path")
		if err != nil {
			return "", err
		}
		if err := r.ws.RevealInExplorer(ctx, path); err != nil {
			return "", err
		}
		return "revealed " + path, nil

	case "execute_command":
		commandID, err := stringArg(inv.Input, "commandId")
		if err != nil {
			return "", err
		}
		if err := r.ws.ExecuteCommand(ctx, commandID); err != nil {
			return "", err
		}
		return "executed " + commandID, nil

	case "create_note":
		path, err := stringArg(inv.Input, "path")
		if err != nil {
			return "", err
		}
		content, _ := inv.Input["content"].(string)
		open, _ := inv.Input["open"].(bool)
		file, err := r.ws.CreateNote(ctx, path, content, open)
		if err != nil {
			return "", err
		}
		return encode(file)
	}

	return "", fmt.Errorf("unknown tool: %s", inv.Name)
}

func (r *Runner) runAskUser(ctx context.Context, inv transport.ToolInvocation) (string, error) {
	questions, err := askuser.ParseInput(inv.Input)
	if err != nil {
		return "", err
	}
	answers, err := r.asker.Ask(ctx, inv.SessionID, inv.CallID, questions)
	if err != nil {
		return "", err
	}
	return askuser.FormatResult(answers)
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

func stringArg(input map[string]any, key string) (string, error) {
	v, ok := input[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s argument is required", key)
	}
	return v, nil
}

func intArg(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
