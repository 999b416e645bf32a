package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrStateBusy is returned when a second writer tries to acquire a State
// that another run currently owns.
var ErrStateBusy = errors.New("conversation state is busy")

// State is the append-only conversation history of one session.
// Reads are safe from any goroutine; a dialogue run acquires the state
// exclusively so that only one writer appends at a time.
type State struct {
	ID string

	mu       sync.RWMutex
	messages []Message
	version  int64
	busy     bool
}

// NewState creates an empty State with a fresh ID.
func NewState() *State {
	return &State{ID: uuid.NewString()}
}

// Acquire marks the state as owned by the caller. The returned release
// function must be called when the run finishes.
func (s *State) Acquire() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrStateBusy
	}
	s.busy = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
		})
	}, nil
}

// Append adds messages at the end of the history. Missing IDs and
// timestamps are filled in.
func (s *State) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		m = m.Clone()
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		s.messages = append(s.messages, m)
	}
	s.version++
}

// Messages returns a deep copy of the history.
func (s *State) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message.
func (s *State) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}

// HasUserMessage reports whether at least one user message exists.
func (s *State) HasUserMessage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// Version increments on every mutation.
func (s *State) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reset discards the whole history.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.version++
}

// Validate checks the tool pairing rules on the current history.
func (s *State) Validate() error {
	return ValidateToolPairing(s.Messages())
}

// ValidateToolPairing checks that every tool call of an assistant message is
// answered by exactly one tool message, in request order, before any other
// message follows. A trailing assistant message may still have pending calls.
func ValidateToolPairing(msgs []Message) error {
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		switch m.Role {
		case RoleTool:
			return errors.Errorf("tool message %q at index %d does not follow a tool call", m.ToolCallID, i)
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				continue
			}
			seen := make(map[string]bool, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				if c.ID == "" {
					return errors.Errorf("tool call %q at index %d has no id", c.Name, i)
				}
				if seen[c.ID] {
					return errors.Errorf("duplicate tool call id %q at index %d", c.ID, i)
				}
				seen[c.ID] = true
			}
			for j, c := range m.ToolCalls {
				k := i + 1 + j
				if k >= len(msgs) {
					// results still pending
					return nil
				}
				r := msgs[k]
				if r.Role != RoleTool {
					return errors.Errorf("tool call %q missing result before index %d", c.ID, k)
				}
				if r.ToolCallID != c.ID {
					return errors.Errorf("tool result at index %d answers %q, expected %q", k, r.ToolCallID, c.ID)
				}
			}
			i += len(m.ToolCalls)
		}
	}
	return nil
}
