package harness

import (
	"strings"

	internal "github.com/ZanzyTHEbar/agents-mcp/agentsmcp"
)

// PromptBuilder appends the caller's inputs to an instruction template.
type PromptBuilder struct {
	header string
}

// NewPromptBuilder uses header as the title of the input section; an empty
// header selects the default.
func NewPromptBuilder(header string) *PromptBuilder {
	if strings.TrimSpace(header) == "" {
		header = internal.DefaultInputHeader
	}
	return &PromptBuilder{header: header}
}

// Render returns template followed by the input section. Each non-empty field
// becomes one "- key: value" line, in the order of fields; list values are
// joined with ", ". The template text is used verbatim.
func (b *PromptBuilder) Render(template string, fields Fields) string {
	var sb strings.Builder
	sb.Grow(len(template) + len(b.header) + 64*len(fields))

	sb.WriteString(template)
	sb.WriteString("\n\n")
	sb.WriteString(b.header)
	sb.WriteString("\n\n")
	for _, f := range fields {
		if f.Empty() {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(f.Key)
		sb.WriteString(": ")
		sb.WriteString(f.Value())
		sb.WriteString("\n")
	}
	return sb.String()
}
