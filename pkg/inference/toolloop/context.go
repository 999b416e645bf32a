package toolloop

import (
	"context"

	"github.com/go-go-golems/gaia/pkg/conversation"
)

// Snapshot phases reported to a SnapshotHook.
const (
	SnapshotPreInference  = "pre_inference"
	SnapshotPostInference = "post_inference"
	SnapshotPostTools     = "post_tools"
)

// SnapshotHook observes the conversation state at defined points of a run.
type SnapshotHook func(ctx context.Context, state *conversation.State, phase string)

type snapshotHookKey struct{}

// WithSnapshotHookContext attaches a snapshot hook to the context.
func WithSnapshotHookContext(ctx context.Context, hook SnapshotHook) context.Context {
	if hook == nil {
		return ctx
	}
	return context.WithValue(ctx, snapshotHookKey{}, hook)
}

// SnapshotHookFromContext returns the snapshot hook attached to the context, if any.
func SnapshotHookFromContext(ctx context.Context) (SnapshotHook, bool) {
	h, ok := ctx.Value(snapshotHookKey{}).(SnapshotHook)
	return h, ok && h != nil
}
