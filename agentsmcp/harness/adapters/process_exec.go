package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/rs/zerolog"
)

// ExecRunnerConfig describes the agent command line. The final argv is
// Args + [ModelFlag, model, PromptFlag, prompt].
type ExecRunnerConfig struct {
	Command        string
	Args           []string
	ModelFlag      string
	PromptFlag     string
	Dir            string
	Env            []string
	Timeout        time.Duration
	KillGrace      time.Duration
	MaxOutputBytes int
}

// ExecRunner starts the agent directly with os/exec, never through a shell,
// so the prompt reaches the child as exactly one argv element.
type ExecRunner struct {
	cfg    ExecRunnerConfig
	logger zerolog.Logger
}

// NewExecRunner creates a runner for the configured agent command.
func NewExecRunner(cfg ExecRunnerConfig, logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{cfg: cfg, logger: logger}
}

// Argv returns the argument list passed to the agent for model and prompt.
func (r *ExecRunner) Argv(model, prompt string) []string {
	argv := slices.Clone(r.cfg.Args)
	if r.cfg.ModelFlag != "" {
		argv = append(argv, r.cfg.ModelFlag)
	}
	argv = append(argv, model)
	if r.cfg.PromptFlag != "" {
		argv = append(argv, r.cfg.PromptFlag)
	}
	return append(argv, prompt)
}

// Run executes the agent once and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, model, prompt string) (ports.ProcessOutput, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	// runCtx is cancelled either by the caller or by an output buffer overflowing.
	runCtx, kill := context.WithCancel(ctx)
	defer kill()

	cmd := exec.CommandContext(runCtx, r.cfg.Command, r.Argv(model, prompt)...)
	cmd.Dir = r.cfg.Dir
	if len(r.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cfg.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = r.cfg.KillGrace

	stdout := newLimitedBuffer(r.cfg.MaxOutputBytes, kill)
	stderr := newLimitedBuffer(r.cfg.MaxOutputBytes, kill)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()

	out := ports.ProcessOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}

	r.logger.Debug().
		Str("command", r.cfg.Command).
		Str("model", model).
		Int("exit_code", out.ExitCode).
		Int("stdout_bytes", len(out.Stdout)).
		Int("stderr_bytes", len(out.Stderr)).
		Dur("duration", time.Since(start)).
		Msg("agent process finished")

	var exitErr *exec.ExitError
	switch {
	case stdout.Exceeded() || stderr.Exceeded():
		return out, fmt.Errorf("%w (%d bytes)", ports.ErrOutputLimitExceeded, r.cfg.MaxOutputBytes)
	case ctx.Err() != nil:
		return out, fmt.Errorf("agent process interrupted: %w", ctx.Err())
	case err == nil:
		return out, nil
	case errors.As(err, &exitErr) && exitErr.Exited():
		return out, nil
	case errors.As(err, &exitErr):
		return out, fmt.Errorf("agent process terminated: %s", exitErr)
	default:
		return out, fmt.Errorf("start agent process: %w", err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedBuffer collects a stream up to limit bytes. The first write past the
// bound marks it exceeded and fires onExceed, which kills the process.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
	onExceed func()
}

func newLimitedBuffer(limit int, onExceed func()) *limitedBuffer {
	return &limitedBuffer{limit: limit, onExceed: onExceed}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.exceeded {
		return 0, ports.ErrOutputLimitExceeded
	}
	if b.limit > 0 && b.buf.Len()+len(p) > b.limit {
		b.exceeded = true
		if b.onExceed != nil {
			b.onExceed()
		}
		return 0, ports.ErrOutputLimitExceeded
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string { return b.buf.String() }

func (b *limitedBuffer) Exceeded() bool { return b.exceeded }

// Ensure ExecRunner implements the ProcessRunner interface.
var _ ports.ProcessRunner = (*ExecRunner)(nil)
