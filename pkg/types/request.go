package types

import "strings"

// ──────────────────────────────────────────────────────────────────────────────
// Tool call request — the payload sent by a caller over the HTTP surface.
// ──────────────────────────────────────────────────────────────────────────────

// Supported tool names.
const (
	ToolCreate      = "create"
	ToolRead        = "read"
	ToolSearch      = "search"
	ToolSearchRead  = "search_read"
	ToolUpdate      = "update"
	ToolDelete      = "delete"
	ToolExecute     = "execute"
	ToolFieldsGet   = "fields_get"
	ToolSearchCount = "search_count"
)

// ToolCallRequest carries one tool invocation. Only the fields relevant to
// the named tool are consulted; Validate enforces which are required.
type ToolCallRequest struct {
	InstanceID string `json:"instance_id"`
	Model      string `json:"model"`

	// Record addressing and contents
	IDs    []int64        `json:"ids,omitempty"`
	Values map[string]any `json:"values,omitempty"`

	// Search family
	Domain []any    `json:"domain,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Order  string   `json:"order,omitempty"`

	// Escape hatch (execute)
	Method string         `json:"method,omitempty"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// Normalize trims identifier fields.
func (r *ToolCallRequest) Normalize() {
	r.InstanceID = strings.TrimSpace(r.InstanceID)
	r.Model = strings.TrimSpace(r.Model)
	r.Method = strings.TrimSpace(r.Method)
}

// Validate enforces the structural requirements of the named tool. It never
// touches the network; deeper domain/payload checks happen in the tool
// registry before dispatch.
func (r *ToolCallRequest) Validate(tool string) error {
	r.Normalize()

	if r.InstanceID == "" {
		return &ValidationError{Field: "instance_id", Reason: "required"}
	}
	if r.Model == "" {
		return &ValidationError{Field: "model", Reason: "required"}
	}
	if r.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	if r.Offset < 0 {
		return &ValidationError{Field: "offset", Reason: "must not be negative"}
	}

	switch tool {
	case ToolCreate:
		if r.Values == nil {
			return &ValidationError{Field: "values", Reason: "required"}
		}
	case ToolRead, ToolDelete:
		if len(r.IDs) == 0 {
			return &ValidationError{Field: "ids", Reason: "required"}
		}
	case ToolUpdate:
		if len(r.IDs) == 0 {
			return &ValidationError{Field: "ids", Reason: "required"}
		}
		if r.Values == nil {
			return &ValidationError{Field: "values", Reason: "required"}
		}
	case ToolExecute:
		if r.Method == "" {
			return &ValidationError{Field: "method", Reason: "required"}
		}
	case ToolSearch, ToolSearchRead, ToolSearchCount, ToolFieldsGet:
		// Domain and fields are optional; shape is checked at dispatch.
	default:
		return &ValidationError{Field: "tool", Reason: "unknown tool " + tool}
	}
	return nil
}
