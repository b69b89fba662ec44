package harness

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Field is one normalized argument. Exactly one of Text or List is meaningful,
// depending on Kind.
type Field struct {
	Key  string
	Kind Kind
	Text string
	List []string
}

// Empty reports whether the field carries no value.
func (f Field) Empty() bool {
	if f.Kind == KindStringArray {
		return len(f.List) == 0
	}
	return f.Text == ""
}

// Value renders the field as a single line value.
func (f Field) Value() string {
	if f.Kind == KindStringArray {
		return strings.Join(f.List, ", ")
	}
	return f.Text
}

// Fields is an ordered argument record. Order is significant: it is the order
// the fields are rendered in.
type Fields []Field

func (fs Fields) get(key string) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Guardrails validates raw argument bags against the catalog before anything
// is loaded or spawned.
type Guardrails struct {
	schemas map[string]*gojsonschema.Schema
}

// NewGuardrails compiles the argument schema of every operation in catalog.
func NewGuardrails(catalog *Catalog) (*Guardrails, error) {
	g := &Guardrails{schemas: make(map[string]*gojsonschema.Schema)}
	for _, spec := range catalog.List() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(spec.JSONSchema()))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", spec.Name, err)
		}
		g.schemas[spec.Name] = schema
	}
	return g, nil
}

// Normalize extracts the fields declared by spec from args, in declaration
// order. Unknown keys are dropped, nulls count as absent, blank list items are
// dropped, required fields must be non-empty and every value must match the
// declared type. Absent optional fields default to empty.
func (g *Guardrails) Normalize(spec OperationSpec, args map[string]any) (Fields, error) {
	declared := make(map[string]any, len(spec.Fields))
	for _, f := range spec.Fields {
		if v, ok := args[f.Key]; ok && v != nil {
			declared[f.Key] = v
		}
	}

	for _, f := range spec.Fields {
		if f.Required && isEmptyValue(declared[f.Key]) {
			return nil, fmt.Errorf("%w %q for operation %q", ErrMissingRequiredField, f.Key, spec.Name)
		}
	}

	if err := g.validate(spec.Name, declared); err != nil {
		return nil, err
	}

	fields := make(Fields, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		field := Field{Key: f.Key, Kind: f.Kind}
		switch f.Kind {
		case KindStringArray:
			field.List = toStrings(declared[f.Key])
		default:
			field.Text, _ = declared[f.Key].(string)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func (g *Guardrails) validate(operation string, doc map[string]any) error {
	schema, ok := g.schemas[operation]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, operation)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w for operation %q: %v", ErrInvalidArgument, operation, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w for operation %q: %s", ErrInvalidArgument, operation, strings.Join(msgs, "; "))
	}
	return nil
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		for _, item := range val {
			if s, ok := item.(string); !ok || !isBlank(s) {
				return false
			}
		}
		return true
	case []string:
		return len(toStrings(val)) == 0
	default:
		return false
	}
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// toStrings keeps the non-blank string items of a list value.
func toStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []string:
		for _, s := range val {
			if !isBlank(s) {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && !isBlank(s) {
				out = append(out, s)
			}
		}
	}
	return out
}
