package tools

import (
	"fmt"
	"strings"
)

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned when a tool name cannot be resolved.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// SchemaValidationError lists the violations of a tool call's arguments.
type SchemaValidationError struct {
	Tool       string
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Violations, "; "))
}

// ProviderError wraps a failure of the external service backing a tool.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Err.Error())
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a failure of provider.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// TranscriptNotAvailable is the text handed to the model when a video has no
// transcript.
const TranscriptNotAvailable = "Transcript not available."

// TranscriptUnavailableError signals that a video has no retrievable transcript.
type TranscriptUnavailableError struct {
	VideoID string
	Reason  string
}

func (e *TranscriptUnavailableError) Error() string {
	return TranscriptNotAvailable
}
