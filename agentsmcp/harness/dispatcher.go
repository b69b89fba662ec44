package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/google/uuid"
)

// Invoker runs a validated operation.
type Invoker interface {
	Invoke(ctx context.Context, operation string, fields Fields) (Result, error)
}

// Dispatcher is the tool-call boundary: every call ends in a Result, whatever
// goes wrong underneath.
type Dispatcher struct {
	catalog    *Catalog
	guardrails *Guardrails
	invoker    Invoker
	tracer     ports.Tracer
	journal    ports.InvocationJournal
}

// NewDispatcher creates a dispatcher over a catalog and an invoker.
func NewDispatcher(catalog *Catalog, guardrails *Guardrails, invoker Invoker, tracer ports.Tracer) *Dispatcher {
	return &Dispatcher{
		catalog:    catalog,
		guardrails: guardrails,
		invoker:    invoker,
		tracer:     tracer,
	}
}

// WithJournal makes the dispatcher record every finished call in j.
func (d *Dispatcher) WithJournal(j ports.InvocationJournal) *Dispatcher {
	d.journal = j
	return d
}

// Catalog returns the catalog the dispatcher routes against.
func (d *Dispatcher) Catalog() *Catalog { return d.catalog }

// Dispatch validates args for toolName and invokes the bound agent. A nil args
// map is rejected before the catalog is consulted. Unknown tools and invalid
// arguments never reach the invoker.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args map[string]any) (res Result) {
	rec := ports.InvocationRecord{
		ID:        uuid.NewString(),
		Tool:      toolName,
		StartedAt: time.Now(),
	}
	ctx, finish := d.tracer.StartSpan(ctx, "dispatch", map[string]any{
		"tool":          toolName,
		"invocation_id": rec.ID,
	})
	defer func() {
		if r := recover(); r != nil {
			res = errorResult(fmt.Errorf("panic during %s: %v", toolName, r))
		}
		finish(res.Cause)
		d.record(ctx, rec, res)
	}()

	if args == nil {
		return errorResult(ErrMissingArguments)
	}

	spec, ok := d.catalog.LookupTool(toolName)
	if !ok {
		return errorResult(fmt.Errorf("%w: %s", ErrUnknownOperation, toolName))
	}
	rec.Operation = spec.Name

	fields, err := d.guardrails.Normalize(spec, args)
	if err != nil {
		return errorResult(err)
	}

	result, err := d.invoker.Invoke(ctx, spec.Name, fields)
	if err != nil {
		return errorResult(err)
	}
	return result
}

func (d *Dispatcher) record(ctx context.Context, rec ports.InvocationRecord, res Result) {
	if d.journal == nil {
		return
	}
	rec.IsError = res.IsError
	rec.Duration = time.Since(rec.StartedAt)
	if res.Cause != nil {
		rec.Error = res.Cause.Error()
	}
	// The caller may already be gone; the record is still written
	if err := d.journal.Record(context.WithoutCancel(ctx), rec); err != nil {
		d.tracer.Event(ctx, "journal_write_failed", map[string]any{"error": err.Error()})
	}
}

func errorResult(err error) Result {
	msg := err.Error()
	if errors.Is(err, ErrMissingArguments) {
		msg = "Missing arguments for tool call"
	}
	return Failure("Error: "+msg, err)
}
