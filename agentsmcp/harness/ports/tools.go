package harnessports

// ToolSpec describes a callable tool exposed to MCP clients.
type ToolSpec struct {
	Name        string // unique logical name
	Description string // concise doc for model selection
	JSONSchema  []byte // JSON schema for args (draft-07)
}
