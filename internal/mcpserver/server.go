package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// defaultRecentLimit bounds get_recent_files when the agent omits limit.
const defaultRecentLimit = 10

// NewServer creates an MCP server exposing the workspace tools.
func NewServer(ws Workspace) *server.MCPServer {
	s := server.NewMCPServer(
		"obsidian",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewTool("get_active_file",
		mcp.WithDescription("Returns the file currently open in the editor"),
	), getActiveFileHandler(ws))

	s.AddTool(mcp.NewTool("get_vault_stats",
		mcp.WithDescription("Returns aggregate counts for the vault"),
	), getVaultStatsHandler(ws))

	s.AddTool(mcp.NewTool("get_recent_files",
		mcp.WithDescription("Returns recently modified files, most recent first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of files to return"),
		),
	), getRecentFilesHandler(ws))

	s.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("Lists the invokable workspace commands"),
	), listCommandsHandler(ws))

	s.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Opens a file in the editor"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path of the file to open"),
		),
	), openFileHandler(ws))

	s.AddTool(mcp.NewTool("show_notice",
		mcp.WithDescription("Shows a transient notice to the user"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Notice text"),
		),
		mcp.WithNumber("duration",
			mcp.Description("Display duration in milliseconds"),
		),
	), showNoticeHandler(ws))

	s.AddTool(mcp.NewTool("reveal_in_explorer",
		mcp.WithDescription("Reveals a file in the system file explorer"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path of the file to reveal"),
		),
	), revealInExplorerHandler(ws))

	s.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Executes a workspace command by id"),
		mcp.WithString("commandId",
			mcp.Required(),
			mcp.Description("Command id, as returned by list_commands"),
		),
	), executeCommandHandler(ws))

	s.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Creates a new note in the vault"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Vault-relative path for the new note"),
		),
		mcp.WithString("content",
			mcp.Description("Initial note content"),
		),
		mcp.WithBoolean("open",
			mcp.Description("Open the note in the editor after creating it"),
		),
	), createNoteHandler(ws))

	return s
}

func getActiveFileHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := ws.ActiveFile(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if file == nil {
			return mcp.NewToolResultText("no file is currently open"), nil
		}
		return jsonResult(file)
	}
}

func getVaultStatsHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := ws.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(stats)
	}
}

func getRecentFilesHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", defaultRecentLimit)
		if limit <= 0 {
			limit = defaultRecentLimit
		}
		files, err := ws.RecentFiles(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if files == nil {
			files = []FileInfo{}
		}
		return jsonResult(files)
	}
}

func listCommandsHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		commands, err := ws.Commands(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if commands == nil {
			commands = []Command{}
		}
		return jsonResult(commands)
	}
}

func openFileHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := ws.OpenFile(ctx, path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("opened " + path), nil
	}
}

func showNoticeHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := request.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		duration := request.GetInt("duration", 0)
		if err := ws.ShowNotice(ctx, message, duration); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("notice shown"), nil
	}
}

func revealInExplorerHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := ws.RevealInExplorer(ctx, path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("revealed " + path), nil
	}
}

func executeCommandHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		commandID, err := request.RequireString("commandId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := ws.ExecuteCommand(ctx, commandID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("executed " + commandID), nil
	}
}

func createNoteHandler(ws Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content := request.GetString("content", "")
		open := request.GetBool("open", false)

		file, err := ws.CreateNote(ctx, path, content, open)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(file)
	}
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
