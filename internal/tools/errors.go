package tools

import "errors"

var (
	// ErrUnknownTool is returned for an ID outside the enumeration.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingHandler is returned when an enumerated tool has no handler.
	ErrMissingHandler = errors.New("tool has no handler")

	// ErrDuplicateTool is returned when the same ID is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrMissingArgument is reported when a call omits a required argument.
	ErrMissingArgument = errors.New("missing required argument")
)
