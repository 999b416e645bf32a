package toolloop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/events"
	"github.com/go-go-golems/gaia/pkg/inference/engine"
	"github.com/go-go-golems/gaia/pkg/inference/fixtures"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

type capturingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *capturingSink) PublishEvent(e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *capturingSink) phases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if p, ok := e.(*events.EventPhase); ok {
			out = append(out, p.To)
		}
	}
	return out
}

func sleepyTool(name string, delay time.Duration, output string) tools.Tool {
	return tools.NewToolFunc(tools.ToolSpec{
		Name:        name,
		Description: name,
		Parameters:  []tools.Parameter{{Name: "query", Type: tools.TypeString, Required: true}},
	}, func(ctx context.Context, args tools.Arguments) (string, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		q, _ := args.String("query")
		return output + " " + q, nil
	})
}

func newState(question string) *conversation.State {
	s := conversation.NewState()
	s.Append(conversation.NewUserMessage(question))
	return s
}

func newLoop(t *testing.T, backend engine.Backend, opts []Option, ts ...tools.Tool) *Loop {
	t.Helper()
	reg := tools.NewRegistry()
	for _, tool := range ts {
		require.NoError(t, reg.Register(tool))
	}
	return New(append([]Option{WithBackend(backend), WithRegistry(reg)}, opts...)...)
}

func TestPlainAnswerFinishesInOneStep(t *testing.T) {
	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "Paris."})
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "x"))
	sink := &capturingSink{}
	ctx := events.WithEventSinks(context.Background(), sink)

	state := newState("What is the capital of France?")
	final, err := loop.Run(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "Paris.", final.Content)
	assert.Equal(t, conversation.RoleAssistant, final.Role)
	assert.Equal(t, 1, backend.Calls())
	assert.Equal(t, 2, state.Len())
	assert.Equal(t, []string{string(PhaseDone)}, sink.phases())
	assert.Equal(t, "web_search", backend.Specs(0)[0].Name)
}

func TestToolRoundTripThenAnswer(t *testing.T) {
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{
			{ID: "call-1", Name: "youtube_transcript", Arguments: map[string]any{"query": "abc123"}},
		}},
		fixtures.Step{Content: "The video is about testing."},
	)
	loop := newLoop(t, backend, nil, sleepyTool("youtube_transcript", 0, "Transcript:\n0.00 - 1.50: hello"))
	sink := &capturingSink{}
	ctx := events.WithEventSinks(context.Background(), sink)

	state := newState("Summarize this video: https://video/watch?v=abc123")
	final, err := loop.Run(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "The video is about testing.", final.Content)

	msgs := state.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.True(t, msgs[1].HasToolCalls())
	assert.Equal(t, conversation.RoleTool, msgs[2].Role)
	assert.Equal(t, "call-1", msgs[2].ToolCallID)
	assert.Contains(t, msgs[2].Content, "abc123")
	assert.Equal(t, conversation.RoleAssistant, msgs[3].Role)
	require.NoError(t, conversation.ValidateToolPairing(msgs))

	// the second model call saw the tool result
	second := backend.Request(1)
	require.Len(t, second, 3)
	assert.Equal(t, conversation.RoleTool, second[2].Role)

	assert.Equal(t, []string{string(PhaseAwaitingTools), string(PhaseAwaitingModel), string(PhaseDone)}, sink.phases())

	var toolEvents int
	for _, e := range sink.events {
		switch e.(type) {
		case *events.EventToolCallExecute, *events.EventToolCallExecutionResult:
			toolEvents++
			assert.Equal(t, state.ID, e.Metadata().SessionID)
			assert.Equal(t, 1, e.Metadata().Iteration)
		}
	}
	assert.Equal(t, 2, toolEvents)
}

func TestParallelToolResultsKeepRequestOrder(t *testing.T) {
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{
			{ID: "a", Name: "web_search", Arguments: map[string]any{"query": "q1"}},
			{ID: "b", Name: "wiki_search", Arguments: map[string]any{"query": "q2"}},
		}},
		fixtures.Step{Content: "combined"},
	)
	loop := newLoop(t, backend, nil,
		sleepyTool("web_search", 80*time.Millisecond, "web"),
		sleepyTool("wiki_search", 1*time.Millisecond, "wiki"),
	)

	state := newState("compare")
	_, err := loop.Run(context.Background(), state)
	require.NoError(t, err)

	msgs := state.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "a", msgs[2].ToolCallID)
	assert.Equal(t, "web q1", msgs[2].Content)
	assert.Equal(t, "b", msgs[3].ToolCallID)
	assert.Equal(t, "wiki q2", msgs[3].Content)
}

func TestProviderFailureContinuesDialogue(t *testing.T) {
	failing := tools.NewToolFunc(tools.ToolSpec{Name: "web_search"}, func(context.Context, tools.Arguments) (string, error) {
		return "", tools.NewProviderError("tavily", errors.New("service unavailable"))
	})
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{{ID: "c1", Name: "web_search"}}},
		fixtures.Step{Content: "I could not search, but here is what I know."},
	)
	loop := newLoop(t, backend, nil, failing)

	state := newState("news?")
	final, err := loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Contains(t, final.Content, "here is what I know")

	msgs := state.Messages()
	toolMsg := msgs[2]
	require.NotNil(t, toolMsg.Failure)
	assert.Equal(t, string(tools.FailureProvider), toolMsg.Failure.Kind)
	assert.Equal(t, "Error: tavily: service unavailable", toolMsg.Content)
	assert.Equal(t, 2, backend.Calls())
}

func TestUnknownToolBecomesFailureResult(t *testing.T) {
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{{ID: "c1", Name: "does_not_exist"}}},
		fixtures.Step{Content: "ok"},
	)
	loop := newLoop(t, backend, nil)
	state := newState("q")
	_, err := loop.Run(context.Background(), state)
	require.NoError(t, err)
	msgs := state.Messages()
	require.NotNil(t, msgs[2].Failure)
	assert.Equal(t, string(tools.FailureUnknownTool), msgs[2].Failure.Kind)
}

func TestEmptyModelResponseIsAnError(t *testing.T) {
	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "  "})
	loop := newLoop(t, backend, nil)
	state := newState("q")
	_, err := loop.Run(context.Background(), state)
	require.ErrorIs(t, err, engine.ErrEmptyModelResponse)
	assert.Equal(t, 1, state.Len())
}

func TestBackendErrorKeepsPartialState(t *testing.T) {
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{{ID: "c1", Name: "web_search", Arguments: map[string]any{"query": "x"}}}},
		fixtures.Step{Error: "rate limited"},
	)
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "r"))
	state := newState("q")
	_, err := loop.Run(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 3, state.Len())
	require.NoError(t, state.Validate())
}

func TestTurnLimitExceeded(t *testing.T) {
	calls := 0
	backend := engine.BackendFunc(func(ctx context.Context, _ []conversation.Message, _ []tools.ToolSpec) (conversation.Message, error) {
		calls++
		return conversation.NewToolCallsMessage("", conversation.ToolCallRequest{ID: "same", Name: "web_search", Arguments: map[string]any{"query": "again"}}), nil
	})
	loop := newLoop(t, backend, []Option{WithLoopConfig(DefaultLoopConfig().WithMaxIterations(3))}, sleepyTool("web_search", 0, "r"))

	state := newState("loop forever")
	_, err := loop.Run(context.Background(), state)
	require.ErrorIs(t, err, ErrTurnLimitExceeded)
	var limitErr *TurnLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 3, limitErr.Limit)
	assert.Equal(t, 3, calls)

	// every request was answered, and repeated ids were rewritten
	msgs := state.Messages()
	require.NoError(t, conversation.ValidateToolPairing(msgs))
	ids := map[string]bool{}
	for _, m := range msgs {
		for _, c := range m.ToolCalls {
			assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
			ids[c.ID] = true
		}
	}
	assert.Len(t, ids, 3)
}

func TestDefaultTurnLimit(t *testing.T) {
	calls := 0
	backend := engine.BackendFunc(func(ctx context.Context, _ []conversation.Message, _ []tools.ToolSpec) (conversation.Message, error) {
		calls++
		return conversation.NewToolCallsMessage("", conversation.ToolCallRequest{Name: "web_search", Arguments: map[string]any{"query": "x"}}), nil
	})
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "r"))
	_, err := loop.Run(context.Background(), newState("q"))
	require.ErrorIs(t, err, ErrTurnLimitExceeded)
	assert.Equal(t, DefaultLoopConfig().MaxIterations, calls)
}

func TestEmptyToolCallIDsAreFilled(t *testing.T) {
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{
			{Name: "web_search", Arguments: map[string]any{"query": "1"}},
			{ID: "dup", Name: "web_search", Arguments: map[string]any{"query": "2"}},
			{ID: "dup", Name: "web_search", Arguments: map[string]any{"query": "3"}},
		}},
		fixtures.Step{Content: "ok"},
	)
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "r"))
	state := newState("q")
	_, err := loop.Run(context.Background(), state)
	require.NoError(t, err)

	msgs := state.Messages()
	calls := msgs[1].ToolCalls
	require.Len(t, calls, 3)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
	assert.Equal(t, "dup", calls[1].ID)
	assert.NotEqual(t, "dup", calls[2].ID)
	require.NoError(t, conversation.ValidateToolPairing(msgs))
}

func TestNoUserMessage(t *testing.T) {
	loop := newLoop(t, fixtures.NewScriptedBackend(), nil)
	_, err := loop.Run(context.Background(), conversation.NewState())
	require.ErrorIs(t, err, ErrNoUserMessage)
}

func TestCancellationDuringToolsKeepsPairing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := tools.NewToolFunc(tools.ToolSpec{Name: "download_file"}, func(ctx context.Context, _ tools.Arguments) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	})
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{{ID: "c1", Name: "download_file"}}},
		fixtures.Step{Content: "never"},
	)
	loop := newLoop(t, backend, nil, blocking)

	state := newState("fetch it")
	_, err := loop.Run(ctx, state)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, backend.Calls())

	msgs := state.Messages()
	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[2].Failure)
	assert.Equal(t, string(tools.FailureCancelled), msgs[2].Failure.Kind)
	require.NoError(t, conversation.ValidateToolPairing(msgs))
}

func TestCancellationBeforeToolsAnswersPendingCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelled := false
	hook := func(_ context.Context, _ *conversation.State, phase string) {
		if phase == SnapshotPostInference && !cancelled {
			cancelled = true
			cancel()
		}
	}
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{
			{ID: "c1", Name: "web_search", Arguments: map[string]any{"query": "a"}},
			{ID: "c2", Name: "web_search", Arguments: map[string]any{"query": "b"}},
		}},
		fixtures.Step{Content: "second turn answer"},
	)
	loop := newLoop(t, backend, []Option{WithSnapshotHook(hook)}, sleepyTool("web_search", 0, "r"))

	state := newState("first")
	_, err := loop.Run(ctx, state)
	require.ErrorIs(t, err, context.Canceled)

	msgs := state.Messages()
	require.Len(t, msgs, 4)
	for i, id := range []string{"c1", "c2"} {
		m := msgs[2+i]
		assert.Equal(t, id, m.ToolCallID)
		require.NotNil(t, m.Failure)
		assert.Equal(t, string(tools.FailureCancelled), m.Failure.Kind)
	}
	require.NoError(t, conversation.ValidateToolPairing(msgs))

	state.Append(conversation.NewUserMessage("second"))
	final, err := loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "second turn answer", final.Content)
	require.Equal(t, 2, backend.Calls())
	require.NoError(t, conversation.ValidateToolPairing(backend.Request(1)))
}

func TestInconsistentHistoryIsRefused(t *testing.T) {
	state := newState("q")
	state.Append(conversation.NewToolCallsMessage("", conversation.ToolCallRequest{ID: "x1", Name: "web_search"}))
	state.Append(conversation.NewUserMessage("again"))

	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "never"})
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "r"))
	_, err := loop.Run(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent")
	assert.Equal(t, 0, backend.Calls())
}

func TestCancelledBeforeModelCall(t *testing.T) {
	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "x"})
	loop := newLoop(t, backend, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loop.Run(ctx, newState("q"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, backend.Calls())
}

func TestConcurrentRunIsRefused(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	backend := engine.BackendFunc(func(ctx context.Context, _ []conversation.Message, _ []tools.ToolSpec) (conversation.Message, error) {
		close(entered)
		<-unblock
		return conversation.NewAssistantMessage("done"), nil
	})
	loop := newLoop(t, backend, nil)
	state := newState("q")

	errCh := make(chan error, 1)
	go func() {
		_, err := loop.Run(context.Background(), state)
		errCh <- err
	}()
	<-entered

	_, err := loop.Run(context.Background(), state)
	require.ErrorIs(t, err, conversation.ErrStateBusy)

	close(unblock)
	require.NoError(t, <-errCh)
}

func TestResumesPendingToolCalls(t *testing.T) {
	state := newState("q")
	state.Append(conversation.NewToolCallsMessage("", conversation.ToolCallRequest{ID: "p1", Name: "web_search", Arguments: map[string]any{"query": "z"}}))

	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "resumed"})
	loop := newLoop(t, backend, nil, sleepyTool("web_search", 0, "r"))
	final, err := loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "resumed", final.Content)
	msgs := state.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "p1", msgs[2].ToolCallID)
}

func TestSystemPromptIsPrepended(t *testing.T) {
	backend := fixtures.NewScriptedBackend(fixtures.Step{Content: "hi"})
	loop := newLoop(t, backend, []Option{WithLoopConfig(DefaultLoopConfig().WithSystemPrompt("be brief"))})
	state := newState("hello")
	_, err := loop.Run(context.Background(), state)
	require.NoError(t, err)

	sent := backend.Request(0)
	require.Len(t, sent, 2)
	assert.Equal(t, conversation.RoleSystem, sent[0].Role)
	assert.Equal(t, "be brief", sent[0].Content)
	// the prompt is not stored in the state
	assert.Equal(t, conversation.RoleUser, state.Messages()[0].Role)
}

func TestSnapshotHookSeesPhases(t *testing.T) {
	var phases []string
	hook := func(_ context.Context, s *conversation.State, phase string) {
		phases = append(phases, phase)
	}
	backend := fixtures.NewScriptedBackend(
		fixtures.Step{ToolCalls: []conversation.ToolCallRequest{{ID: "c", Name: "web_search", Arguments: map[string]any{"query": "x"}}}},
		fixtures.Step{Content: "done"},
	)
	loop := newLoop(t, backend, []Option{WithSnapshotHook(hook)}, sleepyTool("web_search", 0, "r"))
	_, err := loop.Run(context.Background(), newState("q"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		SnapshotPreInference, SnapshotPostInference, SnapshotPostTools,
		SnapshotPreInference, SnapshotPostInference,
	}, phases)
}
