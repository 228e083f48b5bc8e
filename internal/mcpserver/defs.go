package mcpserver

import (
	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
)

// ToolDefs returns the tool definitions the transport advertises to the
// model: the workspace tools under their prefixed names, plus the
// ask-user-question tool.
func ToolDefs() []transport.ToolDef {
	return []transport.ToolDef{
		{
			Name:        ToolPrefix + "get_active_file",
			Description: "Returns the file currently open in the editor",
			InputSchema: map[string]any{},
		},
		{
			Name:        ToolPrefix + "get_vault_stats",
			Description: "Returns aggregate counts for the vault",
			InputSchema: map[string]any{},
		},
		{
			Name:        ToolPrefix + "get_recent_files",
			Description: "Returns recently modified files, most recent first",
			InputSchema: map[string]any{
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of files to return",
				},
			},
		},
		{
			Name:        ToolPrefix + "list_commands",
			Description: "Lists the invokable workspace commands",
			InputSchema: map[string]any{},
		},
		{
			Name:        ToolPrefix + "open_file",
			Description: "Opens a file in the editor",
			InputSchema: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Vault-relative path of the file to open",
				},
			},
		},
		{
			Name:        ToolPrefix + "show_notice",
			Description: "Shows a transient notice to the user",
			InputSchema: map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Notice text",
				},
				"duration": map[string]any{
					"type":        "number",
					"description": "Display duration in milliseconds",
				},
			},
		},
		{
			Name:        ToolPrefix + "reveal_in_explorer",
			Description: "Reveals a file in the system file explorer",
			InputSchema: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Vault-relative path of the file to reveal",
				},
			},
		},
		{
			Name:        ToolPrefix + "execute_command",
			Description: "Executes a workspace command by id",
			InputSchema: map[string]any{
				"commandId": map[string]any{
					"type":        "string",
					"description": "Command id, as returned by list_commands",
				},
			},
		},
		{
			Name:        ToolPrefix + "create_note",
			Description: "Creates a new note in the vault",
			InputSchema: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Vault-relative path for the new note",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Initial note content",
				},
				"open": map[string]any{
					"type":        "boolean",
					"description": "Open the note in the editor after creating it",
				},
			},
		},
		{
			Name:        askuser.ToolName,
			Description: "Asks the user one or more structured questions and waits for answers",
			InputSchema: map[string]any{
				"questions": map[string]any{
					"type":        "array",
					"description": "Questions to present, in order",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"question":    map[string]any{"type": "string"},
							"header":      map[string]any{"type": "string"},
							"multiSelect": map[string]any{"type": "boolean"},
							"options": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"label":       map[string]any{"type": "string"},
										"description": map[string]any{"type": "string"},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
