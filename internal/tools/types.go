// Package tools exposes the dataset operations the model may call.
//
// Tools are identified by an enumerated ID rather than free-form strings. The
// registry is built once, checked for exhaustiveness, and never mutated, so a
// name the model invents maps to the single "not found" case instead of a
// runtime registration gap.
package tools

import "context"

// ID enumerates the registered tools.
type ID int

const (
	Inspect ID = iota + 1
	AnalyzeColumn
	Query
)

// All lists every tool ID in registration order.
var All = []ID{Inspect, AnalyzeColumn, Query}

// Name is the wire name the model uses to call the tool.
func (id ID) Name() string {
	switch id {
	case Inspect:
		return "read_csv_tool"
	case AnalyzeColumn:
		return "analyze_csv_column"
	case Query:
		return "query_csv_data"
	default:
		return ""
	}
}

func (id ID) String() string {
	return id.Name()
}

// Lookup maps a wire name to its ID.
func Lookup(name string) (ID, bool) {
	for _, id := range All {
		if id.Name() == name {
			return id, true
		}
	}
	return 0, false
}

// Argument names shared by the tools.
const (
	ArgFilePath   = "file_path"
	ArgColumnName = "column_name"
	ArgQuery      = "query"
)

// Property describes a single parameter for the JSON schema sent to the model.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema defines the arguments a tool accepts.
type Schema struct {
	Required   []string
	Properties map[string]Property
}

// JSONSchema renders s as a JSON schema object.
func (s Schema) JSONSchema() map[string]any {
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": s.Properties,
		"required":   required,
	}
}

// Handler runs a tool against the dataset at path. Failures are rendered into
// the returned text; handlers never abort a turn.
type Handler func(ctx context.Context, path string, args map[string]any) string

type Tool struct {
	ID          ID
	Description string
	Schema      Schema
	Execute     Handler
}
