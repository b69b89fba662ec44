// Package server exposes the harness dispatcher as an MCP tool server.
//
// One MCP tool is registered per catalog operation. Every tool call, including
// calls naming no registered tool, is handed to the dispatcher and its Result is
// returned as a single text content block; failures set isError and are never
// reported as protocol errors.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Dispatcher routes a tool call to its agent.
type Dispatcher interface {
	Dispatch(ctx context.Context, toolName string, args map[string]any) harness.Result
}

// Info identifies the server during the initialize handshake.
type Info struct {
	Name    string
	Version string
}

// unroutedTool receives calls whose name matches no registered tool, so the
// dispatcher can answer them with an error envelope. It is never listed.
const unroutedTool = "agents_mcp_unrouted"

// Keys of the wrapped arguments handed to unroutedTool.
const (
	unroutedNameKey = "name"
	unroutedArgsKey = "arguments"
)

// New creates the MCP server with every catalog operation registered as a tool.
func New(info Info, catalog *harness.Catalog, dispatcher Dispatcher, logger zerolog.Logger) *server.MCPServer {
	specs := catalog.ToolSpecs()
	registered := make(map[string]struct{}, len(specs))
	for _, ts := range specs {
		registered[ts.Name] = struct{}{}
	}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(rerouteUnregistered(registered))

	s := server.NewMCPServer(
		info.Name,
		info.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithToolFilter(hideUnrouted),
		server.WithInstructions(instructions),
	)

	h := &toolHandler{dispatcher: dispatcher, logger: logger}
	for _, ts := range specs {
		s.AddTool(mcp.NewToolWithRawSchema(ts.Name, ts.Description, ts.JSONSchema), h.handle)
	}
	s.AddTool(mcp.NewTool(unroutedTool), h.handleUnrouted)
	return s
}

// rerouteUnregistered points calls for unknown names at unroutedTool, keeping
// the requested name and the raw arguments (absent stays absent).
func rerouteUnregistered(registered map[string]struct{}) server.OnBeforeCallToolFunc {
	return func(_ context.Context, _ any, req *mcp.CallToolRequest) {
		if _, ok := registered[req.Params.Name]; ok {
			return
		}
		wrapped := map[string]any{unroutedNameKey: req.Params.Name}
		if req.Params.Arguments != nil {
			wrapped[unroutedArgsKey] = req.Params.Arguments
		}
		req.Params.Name = unroutedTool
		req.Params.Arguments = wrapped
	}
}

func hideUnrouted(_ context.Context, tools []mcp.Tool) []mcp.Tool {
	out := tools[:0:0]
	for _, t := range tools {
		if t.Name != unroutedTool {
			out = append(out, t)
		}
	}
	return out
}

// ToCallToolResult converts a dispatcher Result into the MCP envelope.
func ToCallToolResult(res harness.Result) *mcp.CallToolResult {
	if res.IsError {
		return mcp.NewToolResultError(res.Text)
	}
	return mcp.NewToolResultText(res.Text)
}

type toolHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

func (h *toolHandler) handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.dispatch(ctx, request.Params.Name, request.GetArguments()), nil
}

func (h *toolHandler) handleUnrouted(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wrapped := request.GetArguments()
	name, _ := wrapped[unroutedNameKey].(string)
	args, _ := wrapped[unroutedArgsKey].(map[string]any)
	return h.dispatch(ctx, name, args), nil
}

func (h *toolHandler) dispatch(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	start := time.Now()
	res := h.dispatcher.Dispatch(ctx, name, args)

	event := h.logger.Info()
	if res.IsError {
		event = h.logger.Warn().Err(res.Cause)
	}
	event.
		Str("tool", name).
		Bool("is_error", res.IsError).
		Dur("duration", time.Since(start)).
		Msg("tool call finished")

	return ToCallToolResult(res)
}

// ServeStdio serves s on in/out until ctx is cancelled or in is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(logger, "", 0))

	logger.Info().Msg("Autodialer Agents MCP server running on stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// SSE endpoint paths, as served by mcp-go's SSEServer.
const (
	ssePath     = "/sse"
	messagePath = "/message"
	healthPath  = "/healthz"
)

// NewSSEHandler routes the SSE transport endpoints and a health check.
func NewSSEHandler(sse *server.SSEServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle(ssePath, sse)
	r.Handle(messagePath, sse)
	return r
}

// ServeSSE serves s over server-sent events on addr until ctx is cancelled.
// Open event streams are tied to ctx and end with it.
func ServeSSE(ctx context.Context, s *server.MCPServer, addr, baseURL string, logger zerolog.Logger) error {
	var opts []server.SSEOption
	if baseURL != "" {
		opts = append(opts, server.WithBaseURL(baseURL))
	}
	sse := server.NewSSEServer(s, opts...)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           NewSSEHandler(sse),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Autodialer Agents MCP server listening (sse)")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("sse server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return httpServer.Close()
		}
		return fmt.Errorf("sse shutdown: %w", err)
	}
	return nil
}

const instructions = `Agent pipeline tools. Typical order: call_analyst → call_tz_reviewer → call_architect → call_architecture_reviewer → call_planner → call_plan_reviewer → call_developer → call_code_reviewer.
File arguments are paths relative to the project root (artifacts usually live under tmp/). Each call runs one external agent and returns its final output as text.`
