package harness

import (
	"encoding/json"
	"strings"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
)

// ToolPrefix is prepended to operation names to form the MCP tool names.
const ToolPrefix = "call_"

// Kind is the argument type of a declared field.
type Kind string

const (
	KindString      Kind = "string"
	KindStringArray Kind = "string_array"
)

// FieldSpec declares one argument of an operation.
type FieldSpec struct {
	Key         string
	Kind        Kind
	Required    bool
	Description string
}

// OperationSpec declares one agent operation. Field order is the order the
// fields appear in the rendered prompt.
type OperationSpec struct {
	Name        string
	Description string
	Fields      []FieldSpec
}

// ToolName is the name under which the operation is exposed to MCP clients.
func (s OperationSpec) ToolName() string { return ToolPrefix + s.Name }

// Required lists the keys of required fields in declaration order.
func (s OperationSpec) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Key)
		}
	}
	return out
}

// JSONSchema renders the argument schema (draft-07 object schema).
func (s OperationSpec) JSONSchema() []byte {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		prop := map[string]any{"description": f.Description}
		switch f.Kind {
		case KindStringArray:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		default:
			prop["type"] = "string"
		}
		props[f.Key] = prop
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := s.Required(); len(req) > 0 {
		schema["required"] = req
	}
	data, _ := json.Marshal(schema)
	return data
}

// Catalog is the immutable registry of operations.
type Catalog struct {
	specs  []OperationSpec
	byName map[string]int
	byTool map[string]int
}

// NewCatalog indexes specs. Duplicate names panic: the catalog is static and a
// duplicate is a programming error.
func NewCatalog(specs ...OperationSpec) *Catalog {
	c := &Catalog{
		specs:  make([]OperationSpec, 0, len(specs)),
		byName: make(map[string]int, len(specs)),
		byTool: make(map[string]int, len(specs)),
	}
	for _, s := range specs {
		if _, dup := c.byName[s.Name]; dup {
			panic("harness: duplicate operation " + s.Name)
		}
		c.byName[s.Name] = len(c.specs)
		c.byTool[s.ToolName()] = len(c.specs)
		c.specs = append(c.specs, s)
	}
	return c
}

// List returns every operation in declaration order. The result is a copy.
func (c *Catalog) List() []OperationSpec {
	out := make([]OperationSpec, len(c.specs))
	for i, s := range c.specs {
		s.Fields = append([]FieldSpec(nil), s.Fields...)
		out[i] = s
	}
	return out
}

// Names returns the operation names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Name
	}
	return out
}

// Lookup resolves an operation by name.
func (c *Catalog) Lookup(operation string) (OperationSpec, bool) {
	i, ok := c.byName[operation]
	if !ok {
		return OperationSpec{}, false
	}
	return c.specs[i], true
}

// LookupTool resolves an operation by its MCP tool name.
func (c *Catalog) LookupTool(toolName string) (OperationSpec, bool) {
	i, ok := c.byTool[strings.TrimSpace(toolName)]
	if !ok {
		return OperationSpec{}, false
	}
	return c.specs[i], true
}

// ToolSpecs describes every operation as a tool declaration.
func (c *Catalog) ToolSpecs() []ports.ToolSpec {
	out := make([]ports.ToolSpec, len(c.specs))
	for i, s := range c.specs {
		out[i] = ports.ToolSpec{
			Name:        s.ToolName(),
			Description: s.Description,
			JSONSchema:  s.JSONSchema(),
		}
	}
	return out
}

func str(key, desc string, required bool) FieldSpec {
	return FieldSpec{Key: key, Kind: KindString, Required: required, Description: desc}
}

func strs(key, desc string, required bool) FieldSpec {
	return FieldSpec{Key: key, Kind: KindStringArray, Required: required, Description: desc}
}

// DefaultCatalog is the agent pipeline: analysis, review, architecture,
// planning, implementation and code review.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		OperationSpec{
			Name:        "analyst",
			Description: "Call analyst agent to create technical specification (TZ)",
			Fields: []FieldSpec{
				str("task_description", "High-level task description from user", true),
				str("project_description", "Existing project description (if applicable)", false),
			},
		},
		OperationSpec{
			Name:        "tz_reviewer",
			Description: "Review technical specification created by analyst",
			Fields: []FieldSpec{
				str("tz_file", "Path to TZ file (from tmp/)", true),
				str("task_description", "Original task description", true),
				str("project_description", "Project description", false),
			},
		},
		OperationSpec{
			Name:        "architect",
			Description: "Call architect agent to design system architecture",
			Fields: []FieldSpec{
				str("tz_file", "Path to approved TZ file (from tmp/)", true),
				str("project_description", "Project description", false),
			},
		},
		OperationSpec{
			Name:        "architecture_reviewer",
			Description: "Review architecture design",
			Fields: []FieldSpec{
				str("architecture_file", "Path to architecture file (from tmp/)", true),
				str("tz_file", "Path to TZ file", true),
				str("project_description", "Project description", false),
			},
		},
		OperationSpec{
			Name:        "planner",
			Description: "Call planner agent to create development plan",
			Fields: []FieldSpec{
				str("tz_file", "Path to TZ file (from tmp/)", true),
				str("architecture_file", "Path to architecture file (from tmp/)", true),
				str("project_description", "Project description", false),
			},
		},
		OperationSpec{
			Name:        "plan_reviewer",
			Description: "Review development plan",
			Fields: []FieldSpec{
				str("plan_file", "Path to plan file (from tmp/)", true),
				strs("task_files", "List of task file paths (from tmp/tasks/)", true),
				str("tz_file", "Path to TZ file", true),
			},
		},
		OperationSpec{
			Name:        "developer",
			Description: "Call developer agent to implement task",
			Fields: []FieldSpec{
				str("task_file", "Path to task description file (from tmp/tasks/)", true),
				str("project_code", "Current project code context", false),
				str("project_docs", "Project documentation", false),
			},
		},
		OperationSpec{
			Name:        "code_reviewer",
			Description: "Review code implementation",
			Fields: []FieldSpec{
				str("task_file", "Path to task description file (from tmp/tasks/)", true),
				strs("modified_files", "List of modified file paths", false),
				str("test_report", "Path to test report (from tmp/)", true),
				str("project_code", "Current project code", false),
			},
		},
	)
}
