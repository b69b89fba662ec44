package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/server"
	"github.com/spf13/cobra"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport to serve on: stdio or sse (overrides server.transport)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for sse (overrides server.address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if serveTransport != "" {
		rt.cfg.Server.Transport = serveTransport
	}
	if serveAddr != "" {
		rt.cfg.Server.Address = serveAddr
	}
	if err := rt.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Missing templates are reported per call; at startup they are only a warning.
	if err := rt.factory.CheckTemplates(ctx); err != nil {
		rt.logger.Warn().Err(err).Str("project_root", rt.factory.ProjectRoot()).Msg("some agent templates are not readable")
	}

	dispatcher, closeJournal, err := rt.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeJournal()

	s := server.New(
		server.Info{Name: rt.cfg.Server.Name, Version: rt.cfg.Server.Version},
		rt.factory.Catalog(),
		dispatcher,
		rt.logger,
	)

	switch rt.cfg.Server.Transport {
	case "sse":
		return server.ServeSSE(ctx, s, rt.cfg.Server.Address, rt.cfg.Server.BaseURL, rt.logger)
	default:
		return server.ServeStdio(ctx, s, os.Stdin, os.Stdout, rt.logger)
	}
}
