package tools

import (
	"time"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

// FailureKind classifies why a tool call did not produce output.
type FailureKind string

const (
	FailureUnknownTool           FailureKind = "unknown_tool"
	FailureSchemaValidation      FailureKind = "schema_validation"
	FailureProvider              FailureKind = "provider"
	FailureTranscriptUnavailable FailureKind = "transcript_unavailable"
	FailureTimeout               FailureKind = "timeout"
	FailureCancelled             FailureKind = "cancelled"
	FailureInternal              FailureKind = "internal"
)

type Failure struct {
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// ToolResult is the outcome of one tool call. Exactly one of Output and
// Failure is meaningful.
type ToolResult struct {
	CallID   string        `json:"call_id" yaml:"call_id"`
	ToolName string        `json:"tool_name" yaml:"tool_name"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Failure  *Failure      `json:"failure,omitempty" yaml:"failure,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (r ToolResult) OK() bool { return r.Failure == nil }

// Text is what the model sees for this result.
func (r ToolResult) Text() string {
	if r.Failure == nil {
		return r.Output
	}
	if r.Failure.Kind == FailureTranscriptUnavailable {
		return TranscriptNotAvailable
	}
	return "Error: " + r.Failure.Message
}

// Message converts the result into the tool message answering its call.
func (r ToolResult) Message() conversation.Message {
	var f *conversation.Failure
	if r.Failure != nil {
		f = &conversation.Failure{Kind: string(r.Failure.Kind), Message: r.Failure.Message}
	}
	return conversation.NewToolMessage(r.CallID, r.ToolName, r.Text(), f)
}

// CancelledResult is the result recorded for a call that never ran because
// the dialogue was interrupted.
func CancelledResult(call conversation.ToolCallRequest) ToolResult {
	return failed(call, FailureCancelled, "execution cancelled")
}

func failed(call conversation.ToolCallRequest, kind FailureKind, msg string) ToolResult {
	return ToolResult{
		CallID:   call.ID,
		ToolName: call.Name,
		Failure:  &Failure{Kind: kind, Message: msg},
	}
}
