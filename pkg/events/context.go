package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ctxKey is an unexported type for keys defined in this package.
type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
	ctxKeyEventMetadata
)

// WithEventMetadata attaches the session and iteration that events published
// further down the call chain belong to.
func WithEventMetadata(ctx context.Context, md EventMetadata) context.Context {
	return context.WithValue(ctx, ctxKeyEventMetadata, md)
}

// MetadataFromContext returns the attached metadata with a fresh message id.
func MetadataFromContext(ctx context.Context) EventMetadata {
	md, _ := ctx.Value(ctxKeyEventMetadata).(EventMetadata)
	md.ID = uuid.New()
	return md
}

// WithEventSinks attaches one or more EventSink instances to the context.
// Downstream code (tools, the dialogue loop) can publish without holding a
// reference to the sinks.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

// GetEventSinks returns the list of EventSinks attached to the context.
func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes the provided event to all EventSinks stored in the context.
// If no sinks are present, this is a no-op.
func PublishEventToContext(ctx context.Context, event Event) {
	sinks := GetEventSinks(ctx)
	if len(sinks) == 0 {
		return
	}
	log.Trace().Str("event_type", string(event.Type())).Int("sink_count", len(sinks)).Msg("publishing event")
	for _, sink := range sinks {
		// individual sink errors must not disrupt the run
		_ = sink.PublishEvent(event)
	}
}
