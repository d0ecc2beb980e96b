package llm

import "errors"

var (
	// ErrNotConfigured is returned when no provider model is available.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrNoJSON is returned when a completion carries no JSON object.
	ErrNoJSON = errors.New("no JSON object in completion")
	// ErrEmptyResponse is returned when the provider sends no choices.
	ErrEmptyResponse = errors.New("empty completion")
)
