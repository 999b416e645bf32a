package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart is emitted before each model call
	EventTypeStart EventType = "start"
	// EventTypeFinal carries the final assistant answer of a run
	EventTypeFinal EventType = "final"
	EventTypeError EventType = "error"

	// Model requested a tool call
	EventTypeToolCall EventType = "tool-call"

	// Execution-phase events (we are actually executing tools locally)
	EventTypeToolCallExecute         EventType = "tool-call-execute"
	EventTypeToolCallExecutionResult EventType = "tool-call-execution-result"

	// Dialogue loop phase transitions
	EventTypePhase EventType = "phase"

	EventTypeInfo EventType = "info"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// EventMetadata is passed along with every event.
type EventMetadata struct {
	ID        uuid.UUID `json:"message_id" yaml:"message_id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Iteration int       `json:"iteration,omitempty" yaml:"iteration,omitempty"`
	Model     string    `json:"model,omitempty" yaml:"model,omitempty"`
}

// NewEventMetadata creates metadata with a fresh message id.
func NewEventMetadata(sessionID string, iteration int) EventMetadata {
	return EventMetadata{
		ID:        uuid.New(),
		SessionID: sessionID,
		Iteration: iteration,
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.Iteration > 0 {
		e.Int("iteration", em.Iteration)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
}

type EventStart struct {
	EventImpl
	MessageCount int `json:"message_count"`
	ToolCount    int `json:"tool_count"`
}

func NewStartEvent(metadata EventMetadata, messageCount, toolCount int) *EventStart {
	return &EventStart{
		EventImpl:    EventImpl{Type_: EventTypeStart, Metadata_: metadata},
		MessageCount: messageCount,
		ToolCount:    toolCount,
	}
}

var _ Event = &EventStart{}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventFinal{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

type ToolCall struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Input string `json:"input" yaml:"input"`
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{Type_: EventTypeToolCall, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCall{}

// EventToolCallExecute captures the intent to execute a tool locally
type EventToolCallExecute struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallExecuteEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCallExecute {
	return &EventToolCallExecute{
		EventImpl: EventImpl{Type_: EventTypeToolCallExecute, Metadata_: metadata},
		ToolCall:  toolCall,
	}
}

var _ Event = &EventToolCallExecute{}

type ToolResult struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Result      string `json:"result" yaml:"result"`
	FailureKind string `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// EventToolCallExecutionResult captures the result of executing a tool locally
type EventToolCallExecutionResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolCallExecutionResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolCallExecutionResult {
	return &EventToolCallExecutionResult{
		EventImpl:  EventImpl{Type_: EventTypeToolCallExecutionResult, Metadata_: metadata},
		ToolResult: toolResult,
	}
}

var _ Event = &EventToolCallExecutionResult{}

type EventPhase struct {
	EventImpl
	From string `json:"from"`
	To   string `json:"to"`
}

func NewPhaseEvent(metadata EventMetadata, from, to string) *EventPhase {
	return &EventPhase{
		EventImpl: EventImpl{Type_: EventTypePhase, Metadata_: metadata},
		From:      from,
		To:        to,
	}
}

var _ Event = &EventPhase{}

type EventInfo struct {
	EventImpl
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func NewInfoEvent(metadata EventMetadata, message string, data map[string]interface{}) *EventInfo {
	return &EventInfo{
		EventImpl: EventImpl{Type_: EventTypeInfo, Metadata_: metadata},
		Message:   message,
		Data:      data,
	}
}

var _ Event = &EventInfo{}

// NewEventFromJson decodes a serialized event into its typed form.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("empty event payload")
	}
	e.payload = b

	switch e.Type_ {
	case EventTypeStart:
		return decode[EventStart](e)
	case EventTypeFinal:
		return decode[EventFinal](e)
	case EventTypeError:
		return decode[EventError](e)
	case EventTypeToolCall:
		return decode[EventToolCall](e)
	case EventTypeToolCallExecute:
		return decode[EventToolCallExecute](e)
	case EventTypeToolCallExecutionResult:
		return decode[EventToolCallExecutionResult](e)
	case EventTypePhase:
		return decode[EventPhase](e)
	case EventTypeInfo:
		return decode[EventInfo](e)
	}

	return e, nil
}

type typedEvent[T any] interface {
	*T
	Event
	setPayload([]byte)
}

func (e *EventImpl) setPayload(b []byte) { e.payload = b }

func decode[T any, PT typedEvent[T]](e *EventImpl) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok || ret == nil {
		return nil, errors.Errorf("could not cast event to %s", e.Type_)
	}
	PT(ret).setPayload(e.payload)
	return PT(ret), nil
}

// ToTypedEvent re-decodes the raw payload of e into T.
func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}
