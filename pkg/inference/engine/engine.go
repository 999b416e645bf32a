package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

// ErrEmptyModelResponse is returned when the model answers with neither text
// nor tool calls.
var ErrEmptyModelResponse = errors.New("model returned neither text nor tool calls")

// Backend is a chat-completion model that can request tool calls.
type Backend interface {
	// Complete sends the full history and the available tool specs and
	// returns one assistant message: either plain text or a set of tool calls.
	Complete(ctx context.Context, history []conversation.Message, specs []tools.ToolSpec) (conversation.Message, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, history []conversation.Message, specs []tools.ToolSpec) (conversation.Message, error)

func (f BackendFunc) Complete(ctx context.Context, history []conversation.Message, specs []tools.ToolSpec) (conversation.Message, error) {
	return f(ctx, history, specs)
}

var _ Backend = BackendFunc(nil)
