package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
)

const (
	noOutputMessage    = "Agent completed successfully (no output)"
	executionErrPrefix = "Agent execution error:\n"
	failedPrefix       = "Failed to execute agent: "
)

// Invocation states, emitted as tracer events.
const (
	StateTemplateLoading = "template_loading"
	StateRendering       = "rendering"
	StateProcessRunning  = "process_running"
	StateSucceeded       = "succeeded"
	StateFailed          = "failed"
)

// Result is the uniform envelope returned for every tool call.
type Result struct {
	Text    string
	IsError bool
	// Cause is the error behind an error result. It is never sent to clients.
	Cause error
}

// Success wraps agent output.
func Success(text string) Result { return Result{Text: text} }

// Failure wraps an error message and its cause.
func Failure(text string, cause error) Result {
	return Result{Text: text, IsError: true, Cause: cause}
}

// AgentInvoker turns a normalized request into one run of the external agent.
type AgentInvoker struct {
	bindings  *Bindings
	templates ports.TemplateSource
	builder   *PromptBuilder
	runner    ports.ProcessRunner
	tracer    ports.Tracer
}

// NewAgentInvoker creates an invoker with its dependencies.
func NewAgentInvoker(
	bindings *Bindings,
	templates ports.TemplateSource,
	builder *PromptBuilder,
	runner ports.ProcessRunner,
	tracer ports.Tracer,
) *AgentInvoker {
	return &AgentInvoker{
		bindings:  bindings,
		templates: templates,
		builder:   builder,
		runner:    runner,
		tracer:    tracer,
	}
}

// Invoke loads the operation's template, renders it with fields and runs the
// agent. Configuration and template errors are returned as errors; every
// process outcome is returned as a Result.
func (i *AgentInvoker) Invoke(ctx context.Context, operation string, fields Fields) (Result, error) {
	binding, ok := i.bindings.Lookup(operation)
	if !ok {
		return Result{}, fmt.Errorf("%w %q", ErrBindingMissing, operation)
	}

	ctx, finish := i.tracer.StartSpan(ctx, "invoke_agent", map[string]any{
		"operation": operation,
		"model":     binding.Model,
		"template":  binding.Template,
	})

	i.tracer.Event(ctx, StateTemplateLoading, nil)
	template, err := i.templates.Load(ctx, binding.Template)
	if err != nil {
		err = fmt.Errorf("%w %s: %w", ErrTemplateLoad, binding.Template, err)
		i.tracer.Event(ctx, StateFailed, nil)
		finish(err)
		return Result{}, err
	}

	i.tracer.Event(ctx, StateRendering, nil)
	prompt := i.builder.Render(template, fields)

	i.tracer.Event(ctx, StateProcessRunning, map[string]any{"prompt_bytes": len(prompt)})
	out, runErr := i.runner.Run(ctx, binding.Model, prompt)

	result := interpret(out, runErr)
	if result.IsError {
		i.tracer.Event(ctx, StateFailed, map[string]any{"exit_code": out.ExitCode})
	} else {
		i.tracer.Event(ctx, StateSucceeded, map[string]any{"output_bytes": len(out.Stdout)})
	}
	finish(result.Cause)
	return result, nil
}

// interpret maps a process outcome onto the envelope. Output that appears only
// on stderr after a clean exit is treated as a failure.
func interpret(out ports.ProcessOutput, runErr error) Result {
	switch {
	case runErr != nil:
		cause := runErr
		if !errors.Is(runErr, ports.ErrOutputLimitExceeded) {
			cause = fmt.Errorf("%w: %w", ErrProcessFailure, runErr)
		}
		return Failure(failedPrefix+withDetail(runErr.Error(), out.Stderr), cause)
	case out.ExitCode != 0:
		msg := fmt.Sprintf("exit status %d", out.ExitCode)
		return Failure(failedPrefix+withDetail(msg, out.Stderr), fmt.Errorf("%w: %s", ErrProcessFailure, msg))
	case out.Stdout == "" && out.Stderr != "":
		return Failure(executionErrPrefix+out.Stderr, ErrSilentSuccess)
	case out.Stdout == "":
		return Success(noOutputMessage)
	default:
		return Success(out.Stdout)
	}
}

func withDetail(msg, stderr string) string {
	if detail := strings.TrimSpace(stderr); detail != "" {
		return msg + "\n" + detail
	}
	return msg
}
