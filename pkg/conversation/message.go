package conversation

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) String() string { return string(r) }

// PartKind identifies the payload of a Part.
type PartKind string

const (
	PartKindText  PartKind = "text"
	PartKindImage PartKind = "image"
	PartKindFile  PartKind = "file"
)

// Part is one piece of multi-part message content. Binary payloads are
// referenced by path or URL, never inlined into the transcript.
type Part struct {
	Kind     PartKind `yaml:"kind" json:"kind"`
	Text     string   `yaml:"text,omitempty" json:"text,omitempty"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty"`
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`
	MIMEType string   `yaml:"mime_type,omitempty" json:"mime_type,omitempty"`
}

// ToolCallRequest is a single tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Arguments map[string]any `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// Clone returns a copy with its own argument map.
func (c ToolCallRequest) Clone() ToolCallRequest {
	out := c
	if c.Arguments != nil {
		out.Arguments = maps.Clone(c.Arguments)
	}
	return out
}

// Failure describes why a tool message carries an error instead of output.
type Failure struct {
	Kind    string `yaml:"kind" json:"kind"`
	Message string `yaml:"message" json:"message"`
}

// Message is one entry of the conversation history.
type Message struct {
	ID        string    `yaml:"id,omitempty" json:"id,omitempty"`
	Role      Role      `yaml:"role" json:"role"`
	Content   string    `yaml:"content,omitempty" json:"content,omitempty"`
	Parts     []Part    `yaml:"parts,omitempty" json:"parts,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`

	// assistant messages
	ToolCalls []ToolCallRequest `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`

	// tool messages
	ToolCallID string   `yaml:"tool_call_id,omitempty" json:"tool_call_id,omitempty"`
	ToolName   string   `yaml:"tool_name,omitempty" json:"tool_name,omitempty"`
	Failure    *Failure `yaml:"failure,omitempty" json:"failure,omitempty"`
}

// HasToolCalls reports whether the message requests tool invocations.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Parts != nil {
		out.Parts = append([]Part(nil), m.Parts...)
	}
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCallRequest, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			out.ToolCalls[i] = c.Clone()
		}
	}
	if m.Failure != nil {
		f := *m.Failure
		out.Failure = &f
	}
	return out
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewSystemMessage creates a system prompt message.
func NewSystemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

// NewUserMessage creates a user message with optional extra parts.
func NewUserMessage(content string, parts ...Part) Message {
	m := newMessage(RoleUser, content)
	if len(parts) > 0 {
		m.Parts = append([]Part(nil), parts...)
	}
	return m
}

// NewAssistantMessage creates a plain-text assistant message.
func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewToolCallsMessage creates an assistant message carrying tool calls.
func NewToolCallsMessage(content string, calls ...ToolCallRequest) Message {
	m := newMessage(RoleAssistant, content)
	m.ToolCalls = make([]ToolCallRequest, len(calls))
	for i, c := range calls {
		m.ToolCalls[i] = c.Clone()
	}
	return m
}

// NewToolMessage creates the tool message answering the call with id callID.
// failure is nil when the tool succeeded.
func NewToolMessage(callID, toolName, content string, failure *Failure) Message {
	m := newMessage(RoleTool, content)
	m.ToolCallID = callID
	m.ToolName = toolName
	if failure != nil {
		f := *failure
		m.Failure = &f
	}
	return m
}
