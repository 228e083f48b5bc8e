// Package commands provides the CLI commands for VaultCode.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

var rootCmd = &cobra.Command{
	Use:   "vaultcode",
	Short: "VaultCode - agent session core for a notes vault",
	Long: `VaultCode mediates sessions between a human operator and an LLM
agent working against a trusted notes vault.

Run 'vaultcode serve' to start the session server the editor plugin
connects to, or 'vaultcode mcp' to expose the workspace tools over
stdio for an external agent.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "Human-readable console logs")

	rootCmd.SetVersionTemplate(fmt.Sprintf("vaultcode %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// workDir returns the working directory from flag or current directory.
func workDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
