package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/config"
	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "agents-mcp",
	Short:         "agents-mcp - MCP front end for the agent pipeline",
	Long:          `agents-mcp exposes the analyst, reviewer, architect, planner, developer and code-reviewer agents as MCP tools backed by an external agent CLI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: config.yaml in ., .., etc/agents-mcp or ~/.config/agents-mcp)")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// runtime is what every subcommand needs: the loaded config, a stderr logger
// and a validated harness factory.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	factory *harness.Factory
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	factory, err := harness.NewFactory(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, factory: factory}, nil
}

// dispatcher creates the dispatcher and attaches the invocation journal when
// one is configured. The returned func closes the journal.
func (rt *runtime) dispatcher(ctx context.Context) (*harness.Dispatcher, func(), error) {
	d, err := rt.factory.CreateDispatcher()
	if err != nil {
		return nil, nil, err
	}
	journal, err := rt.factory.OpenJournal(ctx)
	if err != nil {
		return nil, nil, err
	}
	if journal == nil {
		return d, func() {}, nil
	}
	closeJournal := func() {
		if err := journal.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("failed to close invocation journal")
		}
	}
	return d.WithJournal(journal), closeJournal, nil
}

// newLogger builds the process logger. Output goes to w, never stdout: stdout
// carries the stdio transport.
func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
