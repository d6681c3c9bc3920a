package domain

// ToolCall represents a function call requested by a tool-augmented oracle.
// Ideally compatible with OpenAI/MCP tool call schemas.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON, as sent by the model
}

// ToolResult represents the output of a tool call fed back to the oracle.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool defines metadata about a tool available to an oracle.
// This is used for generating function schemas.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}
