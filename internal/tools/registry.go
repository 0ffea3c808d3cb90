package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Registry maps every tool ID to its definition. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	tools    map[ID]*Tool
	fallback string
	logger   *zap.Logger
}

// NewRegistry builds a registry from defs. Every ID in All must be covered
// exactly once. fallback is the dataset used when a call names no readable
// file.
func NewRegistry(fallback string, logger *zap.Logger, defs ...*Tool) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:    make(map[ID]*Tool, len(All)),
		fallback: fallback,
		logger:   logger,
	}
	for _, def := range defs {
		if def.ID.Name() == "" {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTool, def.ID)
		}
		if def.Execute == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingHandler, def.ID)
		}
		if _, exists := r.tools[def.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, def.ID)
		}
		r.tools[def.ID] = def
	}
	for _, id := range All {
		if _, ok := r.tools[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHandler, id)
		}
	}
	return r, nil
}

// FallbackPath is the dataset substituted for missing or unreadable paths.
func (r *Registry) FallbackPath() string {
	return r.fallback
}

// ResolvePath returns path when it names an existing file and the fallback
// dataset otherwise.
func (r *Registry) ResolvePath(path string) string {
	if path == "" {
		return r.fallback
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		r.logger.Debug("Dataset path unavailable, using fallback",
			zap.String("path", path),
			zap.String("fallback", r.fallback))
		return r.fallback
	}
	return path
}

// Dispatch runs the tool called name and returns its text result. It never
// fails: unknown tools and bad arguments come back as text so the
// conversation can carry on.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) string {
	id, ok := Lookup(name)
	if !ok {
		r.logger.Warn("Model requested unknown tool", zap.String("tool", name))
		return fmt.Sprintf("Tool '%s' not found.", name)
	}
	tool := r.tools[id]

	for _, required := range tool.Schema.Required {
		if _, ok := StringArg(args, required); !ok {
			err := fmt.Errorf("%w '%s' for tool '%s'", ErrMissingArgument, required, name)
			r.logger.Warn("Tool call rejected", zap.Error(err))
			return "Error: " + err.Error()
		}
	}

	path, _ := StringArg(args, ArgFilePath)
	path = r.ResolvePath(path)

	start := time.Now()
	result := tool.Execute(ctx, path, args)
	r.logger.Debug("Tool completed",
		zap.String("tool", name),
		zap.String("path", path),
		zap.Duration("duration", time.Since(start)))
	return result
}

// Definitions describes the tools in the form the model API expects.
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(All))
	for _, id := range All {
		tool := r.tools[id]
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        id.Name(),
				Description: tool.Description,
				Parameters:  tool.Schema.JSONSchema(),
			},
		})
	}
	return defs
}

// StringArg reads args[key] as a string. Non-string primitives are
// formatted; a nil or absent value reports false.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}
