package tools

import (
	"context"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

type currentToolCallKey struct{}

// WithCurrentToolCall annotates ctx with the call being executed.
func WithCurrentToolCall(ctx context.Context, call conversation.ToolCallRequest) context.Context {
	return context.WithValue(ctx, currentToolCallKey{}, call)
}

// CurrentToolCallFromContext returns the call being executed, if any.
func CurrentToolCallFromContext(ctx context.Context) (conversation.ToolCallRequest, bool) {
	if ctx == nil {
		return conversation.ToolCallRequest{}, false
	}
	call, ok := ctx.Value(currentToolCallKey{}).(conversation.ToolCallRequest)
	return call, ok
}
