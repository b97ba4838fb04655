package dispatch

// ToolDescriptor declares the static interface of a tool.
// InputSchema is a JSON Schema (draft 2020-12) in UTF-8 bytes.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema []byte `json:"input_schema"`
}
