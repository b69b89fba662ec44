package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/config"
	"github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/adapters"
	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Factory creates and wires harness components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
	root   string

	catalog   *Catalog
	bindings  *Bindings
	templates *adapters.FSTemplateSource
}

// NewFactory resolves the project root and validates the binding table. A
// mismatch between bindings and catalog is fatal.
func NewFactory(cfg *config.Config, logger zerolog.Logger) (*Factory, error) {
	root, err := filepath.Abs(cfg.Prompts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	catalog := DefaultCatalog()
	bindings := DefaultBindings().WithOverrides(bindingOverrides(cfg.Bindings))
	if err := bindings.Validate(catalog); err != nil {
		return nil, err
	}

	f := &Factory{
		cfg:       cfg,
		logger:    logger,
		root:      root,
		catalog:   catalog,
		bindings:  bindings,
		templates: adapters.NewProjectTemplateSource(root),
	}
	return f, nil
}

// Catalog returns the operation catalog.
func (f *Factory) Catalog() *Catalog { return f.catalog }

// ProjectRoot is the absolute directory templates are read from and the agent runs in.
func (f *Factory) ProjectRoot() string { return f.root }

// Bindings returns the validated binding table.
func (f *Factory) Bindings() *Bindings { return f.bindings }

// CreateDispatcher creates a fully wired Dispatcher from config.
func (f *Factory) CreateDispatcher() (*Dispatcher, error) {
	guardrails, err := NewGuardrails(f.catalog)
	if err != nil {
		return nil, err
	}
	tracer := f.createTracer()
	invoker := NewAgentInvoker(
		f.bindings,
		f.templates,
		NewPromptBuilder(f.cfg.Prompts.InputHeader),
		f.createRunner(),
		tracer,
	)
	return NewDispatcher(f.catalog, guardrails, invoker, tracer), nil
}

// OpenJournal opens the configured invocation journal. It returns nil when
// journal.url is empty.
func (f *Factory) OpenJournal(ctx context.Context) (*adapters.LibSQLJournal, error) {
	if f.cfg.Journal.URL == "" {
		return nil, nil
	}
	j, err := adapters.OpenLibSQLJournal(ctx, f.cfg.Journal.URL)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Str("url", f.cfg.Journal.URL).Msg("invocation journal opened")
	return j, nil
}

// CheckTemplates stats every bound template concurrently and returns the
// combined error for the ones that are missing or unreadable.
func (f *Factory) CheckTemplates(ctx context.Context) error {
	p := pool.New().WithErrors().WithContext(ctx)
	for _, op := range f.catalog.Names() {
		binding, _ := f.bindings.Lookup(op)
		p.Go(func(ctx context.Context) error {
			if err := f.templates.Stat(binding.Template); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			return nil
		})
	}
	return p.Wait()
}

func (f *Factory) createRunner() ports.ProcessRunner {
	agent := f.cfg.Agent
	return adapters.NewExecRunner(adapters.ExecRunnerConfig{
		Command:        agent.Command,
		Args:           agent.Args,
		ModelFlag:      agent.ModelFlag,
		PromptFlag:     agent.PromptFlag,
		Dir:            f.root,
		Env:            agent.Env,
		Timeout:        agent.Timeout,
		KillGrace:      agent.KillGrace,
		MaxOutputBytes: agent.MaxOutputBytes,
	}, f.logger.With().Str("component", "runner").Logger())
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.Log.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

func bindingOverrides(in map[string]config.BindingConfig) map[string]Binding {
	out := make(map[string]Binding, len(in))
	for op, b := range in {
		out[op] = Binding{Model: b.Model, Template: b.Template}
	}
	return out
}

// noOpTracer implements Tracer interface with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var _ ports.Tracer = (*noOpTracer)(nil)
