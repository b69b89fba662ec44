// Package agentsmcp holds process-wide defaults shared by the config loader,
// the harness factory and the CLI.
package agentsmcp

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName = "agents-mcp"
	EnvPrefix      = "AGENTS_MCP"

	DefaultServerName    = "autodialer-agents-mcp"
	DefaultServerVersion = "1.0.0"
	DefaultTransport     = "stdio"
	DefaultAddress       = ":8080"

	DefaultAgentCommand   = "cursor-agent"
	DefaultModelFlag      = "--model"
	DefaultPromptFlag     = "-p"
	DefaultMaxOutputBytes = 10 * 1024 * 1024

	DefaultInputHeader = "## ВХОДНЫЕ ДАННЫЕ:"
)

// DefaultAgentArgs are passed to the agent command ahead of the model and prompt flags.
var DefaultAgentArgs = []string{"-f"}

// DefaultConfigPath is the per-user config directory, falling back to the
// working directory when no home directory is available.
var DefaultConfigPath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", DefaultAppName)
}()
