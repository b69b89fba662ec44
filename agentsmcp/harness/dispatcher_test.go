package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/config"
	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
)

func TestDispatch_MissingArguments(t *testing.T) {
	f := newFixture(t, &StubRunner{})

	for _, tool := range []string{"call_developer", "call_nonexistent"} {
		res := f.dispatcher.Dispatch(context.Background(), tool, nil)
		assert.True(t, res.IsError)
		assert.Equal(t, "Error: Missing arguments for tool call", res.Text)
		assert.ErrorIs(t, res.Cause, ErrMissingArguments)
	}

	assert.Zero(t, f.templates.Loads())
	assert.Empty(t, f.runner.Calls())
}

func TestDispatch_UnknownTool(t *testing.T) {
	f := newFixture(t, &StubRunner{})

	res := f.dispatcher.Dispatch(context.Background(), "call_nonexistent", map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: Unknown tool: call_nonexistent", res.Text)
	assert.ErrorIs(t, res.Cause, ErrUnknownOperation)

	// Bare operation names are not tool names
	res = f.dispatcher.Dispatch(context.Background(), "developer", map[string]any{"task_file": "t"})
	assert.True(t, res.IsError)
	assert.ErrorIs(t, res.Cause, ErrUnknownOperation)

	assert.Zero(t, f.templates.Loads())
	assert.Empty(t, f.runner.Calls())
}

func TestDispatch_EmptyArgumentsFailRequired(t *testing.T) {
	f := newFixture(t, &StubRunner{})

	res := f.dispatcher.Dispatch(context.Background(), "call_analyst", map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, `Error: missing required field "task_description" for operation "analyst"`, res.Text)
	assert.Zero(t, f.templates.Loads())
	assert.Empty(t, f.runner.Calls())
}

// TestDispatch_DeveloperPrompt checks the prompt the agent receives end to end.
func TestDispatch_DeveloperPrompt(t *testing.T) {
	runner := &StubRunner{out: ports.ProcessOutput{Stdout: "implemented tasks/01.md\n"}}
	f := newFixture(t, runner)

	res := f.dispatcher.Dispatch(context.Background(), "call_developer", map[string]any{
		"project_docs": "See README",
		"task_file":    "tasks/01.md",
		"extra":        "ignored",
	})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "implemented tasks/01.md\n", res.Text)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "composer-1", calls[0].Model)
	assert.Equal(t,
		"You are the developer agent.\n\n## ВХОДНЫЕ ДАННЫЕ:\n\n- task_file: tasks/01.md\n- project_docs: See README\n",
		calls[0].Prompt)
}

func TestDispatch_PromptIsPassedUnmodified(t *testing.T) {
	runner := &StubRunner{out: ports.ProcessOutput{Stdout: "ok"}}
	f := newFixture(t, runner)

	hostile := `"; rm -rf / $(whoami) && echo pwned`
	res := f.dispatcher.Dispatch(context.Background(), "call_analyst", map[string]any{
		"task_description": hostile,
	})
	require.False(t, res.IsError, res.Text)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "opus-4.5", calls[0].Model)
	assert.Contains(t, calls[0].Prompt, "- task_description: "+hostile+"\n")
}

func TestDispatch_ProcessOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		out       ports.ProcessOutput
		err       error
		wantText  string
		wantError bool
	}{
		{name: "stdout", out: ports.ProcessOutput{Stdout: "done"}, wantText: "done"},
		{name: "silent", wantText: "Agent completed successfully (no output)"},
		{
			name:      "stderr only",
			out:       ports.ProcessOutput{Stderr: "quota exceeded"},
			wantText:  "Agent execution error:\nquota exceeded",
			wantError: true,
		},
		{
			name:      "exit code",
			out:       ports.ProcessOutput{ExitCode: 1, Stderr: "bad flag"},
			wantText:  "Failed to execute agent: exit status 1\nbad flag",
			wantError: true,
		},
		{
			name:      "output bound",
			err:       ports.ErrOutputLimitExceeded,
			wantText:  "Failed to execute agent: agent output exceeded limit",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &StubRunner{out: tt.out, err: tt.err})

			res := f.dispatcher.Dispatch(context.Background(), "call_architect", map[string]any{"tz_file": "tmp/tz.md"})
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantError, res.IsError)
		})
	}
}

func TestDispatch_TemplateMissing(t *testing.T) {
	f := newFixture(t, &StubRunner{})
	bindings := DefaultBindings().WithOverrides(map[string]Binding{
		"planner": {Template: "agents/missing.md"},
	})
	guardrails, err := NewGuardrails(DefaultCatalog())
	require.NoError(t, err)
	invoker := NewAgentInvoker(bindings, f.templates, NewPromptBuilder(""), f.runner, f.tracer)
	d := NewDispatcher(DefaultCatalog(), guardrails, invoker, f.tracer)

	res := d.Dispatch(context.Background(), "call_planner", map[string]any{
		"tz_file":           "tmp/tz.md",
		"architecture_file": "tmp/arch.md",
	})
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Text, "Error: failed to load agent template agents/missing.md"), res.Text)
	assert.ErrorIs(t, res.Cause, ErrTemplateLoad)
	assert.Empty(t, f.runner.Calls())
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	runner := &StubRunner{runFn: func(ctx context.Context, model, prompt string) (ports.ProcessOutput, error) {
		panic("runner exploded")
	}}
	f := newFixture(t, runner)

	res := f.dispatcher.Dispatch(context.Background(), "call_developer", map[string]any{"task_file": "t"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: panic during call_developer: runner exploded", res.Text)

	// The dispatcher keeps serving afterwards
	runner.runFn = nil
	runner.out = ports.ProcessOutput{Stdout: "fine"}
	res = f.dispatcher.Dispatch(context.Background(), "call_developer", map[string]any{"task_file": "t"})
	assert.False(t, res.IsError)
	assert.Equal(t, "fine", res.Text)
}

func TestDispatch_ConcurrentCallsAreIsolated(t *testing.T) {
	runner := &StubRunner{runFn: func(ctx context.Context, model, prompt string) (ports.ProcessOutput, error) {
		// Echo the task file back so each caller can recognise its own result
		for _, line := range strings.Split(prompt, "\n") {
			if v, ok := strings.CutPrefix(line, "- task_file: "); ok {
				return ports.ProcessOutput{Stdout: v}, nil
			}
		}
		return ports.ProcessOutput{}, nil
	}}
	f := newFixture(t, runner)

	const n = 32
	results := make([]Result, n)
	var wg conc.WaitGroup
	for i := range n {
		wg.Go(func() {
			results[i] = f.dispatcher.Dispatch(context.Background(), "call_developer", map[string]any{
				"task_file": fmt.Sprintf("tmp/tasks/%02d.md", i),
			})
		})
	}
	wg.Wait()

	for i, res := range results {
		require.False(t, res.IsError, res.Text)
		assert.Equal(t, fmt.Sprintf("tmp/tasks/%02d.md", i), res.Text)
	}
	assert.Len(t, runner.Calls(), n)
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	cfg.Prompts.ProjectRoot = root
	return cfg
}

func TestFactory_RejectsUnknownBindingOverride(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Bindings = map[string]config.BindingConfig{"tester": {Model: "x", Template: "agents/10.md"}}

	_, err := NewFactory(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBindingMismatch)
}

func TestFactory_CheckTemplates(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, root)

	factory, err := NewFactory(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, root, factory.ProjectRoot())

	err = factory.CheckTemplates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "developer")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "agents"), 0o755))
	for _, op := range factory.Bindings().Operations() {
		b, _ := factory.Bindings().Lookup(op)
		require.NoError(t, os.WriteFile(filepath.Join(root, b.Template), []byte("# "+op), 0o644))
	}
	require.NoError(t, factory.CheckTemplates(context.Background()))

	d, err := factory.CreateDispatcher()
	require.NoError(t, err)
	assert.Equal(t, factory.Catalog().Names(), d.Catalog().Names())
}

// memoryJournal keeps records in memory.
type memoryJournal struct {
	mu      sync.Mutex
	records []ports.InvocationRecord
	err     error
}

func (j *memoryJournal) Record(ctx context.Context, rec ports.InvocationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

func (j *memoryJournal) Recent(ctx context.Context, limit int) ([]ports.InvocationRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := slices.Clone(j.records)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestDispatch_RecordsEveryCall(t *testing.T) {
	f := newFixture(t, &StubRunner{out: ports.ProcessOutput{Stdout: "ok"}})
	journal := &memoryJournal{}
	f.dispatcher.WithJournal(journal)

	ctx := context.Background()
	f.dispatcher.Dispatch(ctx, "call_developer", map[string]any{"task_file": "t"})
	f.dispatcher.Dispatch(ctx, "call_nonexistent", map[string]any{})
	f.dispatcher.Dispatch(ctx, "call_developer", nil)

	require.Len(t, journal.records, 3)

	ok := journal.records[0]
	assert.Equal(t, "call_developer", ok.Tool)
	assert.Equal(t, "developer", ok.Operation)
	assert.False(t, ok.IsError)
	assert.Empty(t, ok.Error)
	assert.NotEmpty(t, ok.ID)
	assert.False(t, ok.StartedAt.IsZero())

	unknown := journal.records[1]
	assert.True(t, unknown.IsError)
	assert.Empty(t, unknown.Operation)
	assert.Contains(t, unknown.Error, "Unknown tool")

	assert.NotEqual(t, journal.records[0].ID, journal.records[2].ID)
}

func TestDispatch_JournalFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(t, &StubRunner{out: ports.ProcessOutput{Stdout: "ok"}})
	f.dispatcher.WithJournal(&memoryJournal{err: errors.New("disk full")})

	res := f.dispatcher.Dispatch(context.Background(), "call_developer", map[string]any{"task_file": "t"})
	assert.False(t, res.IsError)
	assert.Equal(t, "ok", res.Text)
	assert.Contains(t, f.tracer.events, "journal_write_failed")
}

func TestFactory_OpenJournal(t *testing.T) {
	cfg := testConfig(t, t.TempDir())

	factory, err := NewFactory(cfg, zerolog.Nop())
	require.NoError(t, err)
	j, err := factory.OpenJournal(context.Background())
	require.NoError(t, err)
	assert.Nil(t, j)

	cfg.Journal.URL = "file:" + filepath.Join(t.TempDir(), "journal.db")
	j, err = factory.OpenJournal(context.Background())
	require.NoError(t, err)
	require.NotNil(t, j)
	defer j.Close()

	d, err := factory.CreateDispatcher()
	require.NoError(t, err)
	d.WithJournal(j).Dispatch(context.Background(), "call_developer", nil)

	records, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "call_developer", records[0].Tool)
	assert.True(t, records[0].IsError)
}
