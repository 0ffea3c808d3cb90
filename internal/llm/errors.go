package llm

import "errors"

var (
	// ErrModelService wraps any failure of the completion call. It ends the
	// turn without a partial answer.
	ErrModelService = errors.New("model service error")

	// ErrMaxRoundsExceeded ends a turn whose model kept requesting tools past
	// the configured number of model calls.
	ErrMaxRoundsExceeded = errors.New("max model rounds exceeded")

	// ErrNotConfigured is returned when no model credentials are configured.
	ErrNotConfigured = errors.New("language model is not configured")
)
