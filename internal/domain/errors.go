package domain

import "errors"

var (
	// ErrInvalidInput marks requests rejected before they reach an engine.
	ErrInvalidInput = errors.New("invalid input")

	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEngineDisabled is returned when the dense engine was not configured.
	ErrEngineDisabled = errors.New("engine not enabled")

	// ErrEmbedding wraps failures of the embedding backend.
	ErrEmbedding = errors.New("embedding failed")
)
