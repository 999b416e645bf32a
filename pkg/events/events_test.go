package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) PublishEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func TestPublishEventToContext(t *testing.T) {
	ctx := context.Background()
	PublishEventToContext(ctx, NewInfoEvent(EventMetadata{}, "no sinks", nil))

	a, b := &recordingSink{}, &recordingSink{}
	ctx = WithEventSinks(ctx, a)
	ctx = WithEventSinks(ctx, b)
	require.Len(t, GetEventSinks(ctx), 2)

	PublishEventToContext(ctx, NewInfoEvent(EventMetadata{}, "hello", nil))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMetadataFromContext(t *testing.T) {
	empty := MetadataFromContext(context.Background())
	assert.Empty(t, empty.SessionID)

	ctx := WithEventMetadata(context.Background(), NewEventMetadata("session-1", 3))
	a, b := MetadataFromContext(ctx), MetadataFromContext(ctx)
	assert.Equal(t, "session-1", a.SessionID)
	assert.Equal(t, 3, a.Iteration)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewEventFromJson(t *testing.T) {
	meta := NewEventMetadata("s1", 2)
	in := NewToolCallExecutionResultEvent(meta, ToolResult{ID: "c1", Name: "web_search", Result: "ok", DurationMs: 12})
	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := NewEventFromJson(b)
	require.NoError(t, err)
	res, ok := out.(*EventToolCallExecutionResult)
	require.True(t, ok)
	assert.Equal(t, "web_search", res.ToolResult.Name)
	assert.Equal(t, int64(12), res.ToolResult.DurationMs)
	assert.Equal(t, "s1", res.Metadata().SessionID)
	assert.Equal(t, 2, res.Metadata().Iteration)
	assert.NotEmpty(t, res.Payload())

	phase, err := NewEventFromJson([]byte(`{"type":"phase","from":"awaiting_model","to":"done"}`))
	require.NoError(t, err)
	require.IsType(t, &EventPhase{}, phase)
	assert.Equal(t, "done", phase.(*EventPhase).To)
}

func TestRouterDeliversSinkEvents(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)
	defer func() { _ = router.Close() }()

	received := make(chan Event, 4)
	router.AddHandler("collect", "chat", func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		received <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	sink := router.Sink("chat")
	require.NoError(t, sink.PublishEvent(NewToolCallExecuteEvent(EventMetadata{}, ToolCall{ID: "c1", Name: "wiki_search"})))
	require.NoError(t, sink.PublishEvent(NewFinalEvent(EventMetadata{}, "answer")))

	var got []Event
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-received:
			got = append(got, e)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, EventTypeToolCallExecute, got[0].Type())
	assert.Equal(t, EventTypeFinal, got[1].Type())
}

func TestStepPrinterFunc(t *testing.T) {
	var buf bytes.Buffer
	f := StepPrinterFunc(&buf, false)

	b, err := json.Marshal(NewToolCallExecutionResultEvent(EventMetadata{}, ToolResult{Name: "download_file", FailureKind: "provider", DurationMs: 3}))
	require.NoError(t, err)
	require.NoError(t, f(message.NewMessage("1", b)))
	assert.Equal(t, "[tool] download_file done: provider in 3ms\n", buf.String())
}
