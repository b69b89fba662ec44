package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Binding ties an operation to the model the agent runs with and the template
// it is prompted with. Template paths are relative to the project root.
type Binding struct {
	Model    string
	Template string
}

// Bindings is the immutable operation → binding table.
type Bindings struct {
	table map[string]Binding
}

// NewBindings copies table so later mutation by the caller has no effect.
func NewBindings(table map[string]Binding) *Bindings {
	return &Bindings{table: maps.Clone(table)}
}

// DefaultBindings matches DefaultCatalog one to one.
func DefaultBindings() *Bindings {
	return NewBindings(map[string]Binding{
		"analyst":               {Model: "opus-4.5", Template: "agents/02_analyst_prompt.md"},
		"tz_reviewer":           {Model: "composer-1", Template: "agents/03_tz_reviewer_prompt.md"},
		"architect":             {Model: "opus-4.5", Template: "agents/04_architect_prompt.md"},
		"architecture_reviewer": {Model: "composer-1", Template: "agents/05_architecture_reviewer_prompt.md"},
		"planner":               {Model: "opus-4.5", Template: "agents/06_agent_planner.md"},
		"plan_reviewer":         {Model: "composer-1", Template: "agents/07_agent_plan_reviewer.md"},
		"developer":             {Model: "composer-1", Template: "agents/08_agent_developer.md"},
		"code_reviewer":         {Model: "composer-1", Template: "agents/09_agent_code_reviewer.md"},
	})
}

// Lookup returns the binding for operation.
func (b *Bindings) Lookup(operation string) (Binding, bool) {
	binding, ok := b.table[operation]
	return binding, ok
}

// Operations lists bound operation names, sorted.
func (b *Bindings) Operations() []string {
	return slices.Sorted(maps.Keys(b.table))
}

// WithOverrides returns a new table where non-empty override fields replace
// the bound model or template. Overrides for operations not in the table are
// added as-is, so Validate reports them as extras.
func (b *Bindings) WithOverrides(overrides map[string]Binding) *Bindings {
	next := maps.Clone(b.table)
	if next == nil {
		next = make(map[string]Binding)
	}
	for op, o := range overrides {
		cur := next[op]
		if o.Model != "" {
			cur.Model = o.Model
		}
		if o.Template != "" {
			cur.Template = o.Template
		}
		next[op] = cur
	}
	return &Bindings{table: next}
}

// Validate checks that bindings and catalog are in one-to-one correspondence
// and that every binding names a model and a template.
func (b *Bindings) Validate(catalog *Catalog) error {
	var problems []string
	for _, name := range catalog.Names() {
		binding, ok := b.table[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("operation %q has no binding", name))
			continue
		}
		if strings.TrimSpace(binding.Model) == "" {
			problems = append(problems, fmt.Sprintf("operation %q has no model", name))
		}
		if strings.TrimSpace(binding.Template) == "" {
			problems = append(problems, fmt.Sprintf("operation %q has no template", name))
		}
	}
	for _, name := range b.Operations() {
		if _, ok := catalog.Lookup(name); !ok {
			problems = append(problems, fmt.Sprintf("binding %q matches no operation", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrBindingMismatch, strings.Join(problems, "; "))
	}
	return nil
}
