package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the model to run one registered tool.
// Arguments holds the JSON object exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments parses Arguments into a map. Blank arguments decode to an
// empty map.
func (tc ToolCall) DecodeArguments() (map[string]any, error) {
	args := make(map[string]any)
	if strings.TrimSpace(tc.Arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = make(map[string]any)
	}
	return args, nil
}

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool results only
	ToolName   string     `json:"tool_name,omitempty"`    // tool results only
}

// HasToolCalls reports whether the message asks for tool execution.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

type DatasetSource string

const (
	SourceUpload DatasetSource = "upload"
	SourceWatch  DatasetSource = "watch"
)

// DatasetRecord is a catalog entry for a CSV file known to the server.
type DatasetRecord struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	Path      string        `json:"path"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	Source    DatasetSource `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}
