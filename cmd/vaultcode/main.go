// Package main provides the entry point for the VaultCode CLI.
package main

import (
	"fmt"
	"os"

	"github.com/vaultcode-ai/vaultcode/cmd/vaultcode/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
