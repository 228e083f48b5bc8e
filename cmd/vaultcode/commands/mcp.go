package commands

import (
	mcpgo "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/vaultcode-ai/vaultcode/internal/config"
	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/internal/mcpserver"
)

var mcpDir string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workspace tools over stdio",
	Long: `Expose the workspace introspection and UI tools as an MCP server
on stdin/stdout, for an external agent process to connect to.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDir, "directory", "", "Vault directory")
}

func runMCP(cmd *cobra.Command, args []string) error {
	dir, err := workDir(mcpDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	// Stdout carries the protocol; logs must stay on stderr.
	logging.Init(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		File:  cfg.LogFile,
	})

	workspace := mcpserver.NewLocalWorkspace(cfg.Workspace)
	return mcpgo.ServeStdio(mcpserver.NewServer(workspace))
}
