package fixtures

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/inference/engine"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

// Step is one scripted model response.
type Step struct {
	Content   string                         `yaml:"content,omitempty"`
	ToolCalls []conversation.ToolCallRequest `yaml:"tool_calls,omitempty"`
	Error     string                         `yaml:"error,omitempty"`
}

// Script is the on-disk format of a scripted conversation.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// ScriptedBackend replays a fixed sequence of model responses. It records the
// history it was called with so tests can inspect what the model saw.
type ScriptedBackend struct {
	mu       sync.Mutex
	steps    []Step
	next     int
	requests [][]conversation.Message
	specs    [][]tools.ToolSpec
}

var _ engine.Backend = (*ScriptedBackend)(nil)

func NewScriptedBackend(steps ...Step) *ScriptedBackend {
	return &ScriptedBackend{steps: steps}
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*ScriptedBackend, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read script %s", path)
	}
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrapf(err, "could not parse script %s", path)
	}
	return NewScriptedBackend(s.Steps...), nil
}

func (s *ScriptedBackend) Complete(ctx context.Context, history []conversation.Message, specs []tools.ToolSpec) (conversation.Message, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, history)
	s.specs = append(s.specs, specs)
	if s.next >= len(s.steps) {
		return conversation.Message{}, errors.Errorf("script exhausted after %d responses", len(s.steps))
	}
	step := s.steps[s.next]
	s.next++

	if step.Error != "" {
		return conversation.Message{}, errors.New(step.Error)
	}
	if len(step.ToolCalls) > 0 {
		return conversation.NewToolCallsMessage(step.Content, step.ToolCalls...), nil
	}
	return conversation.NewAssistantMessage(step.Content), nil
}

// Calls returns how many times Complete was invoked.
func (s *ScriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Request returns the history passed to the i-th call.
func (s *ScriptedBackend) Request(i int) []conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// Specs returns the tool specs passed to the i-th call.
func (s *ScriptedBackend) Specs(i int) []tools.ToolSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[i]
}
