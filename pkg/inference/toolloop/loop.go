package toolloop

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/events"
	"github.com/go-go-golems/gaia/pkg/inference/engine"
	"github.com/go-go-golems/gaia/pkg/inference/tools"
)

// Phase is the state of the dialogue machine within one Run.
type Phase string

const (
	PhaseAwaitingModel Phase = "awaiting_model"
	PhaseAwaitingTools Phase = "awaiting_tools"
	PhaseDone          Phase = "done"
)

// Loop drives one user turn: ask the model, run the tools it requests, feed
// the results back, until the model answers with plain text.
type Loop struct {
	backend  engine.Backend
	registry *tools.Registry
	invoker  *tools.Invoker
	loopCfg  LoopConfig
	toolCfg  tools.ToolConfig

	snapshotHook SnapshotHook
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		loopCfg: DefaultLoopConfig(),
		toolCfg: tools.DefaultToolConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.invoker == nil && l.registry != nil {
		l.invoker = tools.NewInvoker(l.registry, l.toolCfg)
	}
	return l
}

func WithBackend(b engine.Backend) Option {
	return func(l *Loop) { l.backend = b }
}

func WithRegistry(reg *tools.Registry) Option {
	return func(l *Loop) { l.registry = reg }
}

// WithInvoker overrides the invoker built from the registry and tool config.
func WithInvoker(inv *tools.Invoker) Option {
	return func(l *Loop) { l.invoker = inv }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.loopCfg = cfg }
}

func WithToolConfig(cfg tools.ToolConfig) Option {
	return func(l *Loop) { l.toolCfg = cfg }
}

func WithSnapshotHook(h SnapshotHook) Option {
	return func(l *Loop) { l.snapshotHook = h }
}

func (l *Loop) snapshot(ctx context.Context, s *conversation.State, phase string) {
	if l.snapshotHook != nil {
		l.snapshotHook(ctx, s, phase)
		return
	}
	if h, ok := SnapshotHookFromContext(ctx); ok {
		h(ctx, s, phase)
	}
}

// Run processes the pending user turn of state and returns the final
// assistant message. On error the state keeps every message appended so far.
func (l *Loop) Run(ctx context.Context, state *conversation.State) (*conversation.Message, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.backend == nil {
		return nil, errors.New("tool loop backend is nil")
	}
	if l.registry == nil || l.invoker == nil {
		return nil, errors.New("tool loop registry is nil")
	}
	if state == nil {
		return nil, errors.New("conversation state is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	release, err := state.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if !state.HasUserMessage() {
		return nil, ErrNoUserMessage
	}
	if err := state.Validate(); err != nil {
		return nil, errors.Wrap(err, "conversation history is inconsistent")
	}

	maxIterations := l.loopCfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultLoopConfig().MaxIterations
	}
	specs := l.registry.Describe()

	phase := PhaseAwaitingModel
	pending := pendingToolCalls(state.Messages())
	if len(pending) > 0 {
		// a previous run stopped before all results were recorded
		phase = PhaseAwaitingTools
	}

	iteration := 0
	transition := func(to Phase) {
		log.Debug().Str("from", string(phase)).Str("to", string(to)).Int("iteration", iteration).Msg("toolloop: phase transition")
		events.PublishEventToContext(ctx, events.NewPhaseEvent(events.NewEventMetadata(state.ID, iteration), string(phase), string(to)))
		phase = to
	}

	for {
		if phase != PhaseDone {
			if err := ctx.Err(); err != nil {
				if phase == PhaseAwaitingTools {
					l.cancelPending(state, pending)
				}
				return nil, errors.Wrapf(err, "run interrupted in phase %s", phase)
			}
		}

		switch phase {
		case PhaseAwaitingModel:
			if iteration >= maxIterations {
				log.Warn().Int("max_iterations", maxIterations).Msg("toolloop: maximum iterations reached")
				err := &TurnLimitExceededError{Limit: maxIterations}
				events.PublishEventToContext(ctx, events.NewErrorEvent(events.NewEventMetadata(state.ID, iteration), err))
				return nil, err
			}
			iteration++

			l.snapshot(ctx, state, SnapshotPreInference)
			history := l.history(state)
			log.Debug().Int("iteration", iteration).Int("messages", len(history)).Msg("toolloop: model call")
			events.PublishEventToContext(ctx, events.NewStartEvent(events.NewEventMetadata(state.ID, iteration), len(history), len(specs)))

			resp, err := l.backend.Complete(ctx, history, specs)
			if err != nil {
				events.PublishEventToContext(ctx, events.NewErrorEvent(events.NewEventMetadata(state.ID, iteration), err))
				return nil, errors.Wrap(err, "model call failed")
			}
			resp.Role = conversation.RoleAssistant

			if len(resp.ToolCalls) > 0 {
				resp.ToolCalls = normalizeToolCallIDs(state.Messages(), resp.ToolCalls)
				state.Append(resp)
				for _, c := range resp.ToolCalls {
					events.PublishEventToContext(ctx, events.NewToolCallEvent(
						events.NewEventMetadata(state.ID, iteration),
						events.ToolCall{ID: c.ID, Name: c.Name},
					))
				}
				pending = resp.ToolCalls
				l.snapshot(ctx, state, SnapshotPostInference)
				transition(PhaseAwaitingTools)
				continue
			}

			if strings.TrimSpace(resp.Content) == "" && len(resp.Parts) == 0 {
				events.PublishEventToContext(ctx, events.NewErrorEvent(events.NewEventMetadata(state.ID, iteration), engine.ErrEmptyModelResponse))
				return nil, engine.ErrEmptyModelResponse
			}
			state.Append(resp)
			l.snapshot(ctx, state, SnapshotPostInference)
			transition(PhaseDone)

		case PhaseAwaitingTools:
			toolCtx := events.WithEventMetadata(ctx, events.NewEventMetadata(state.ID, iteration))
			results := l.invoker.InvokeAll(toolCtx, pending)
			msgs := make([]conversation.Message, 0, len(results))
			for _, r := range results {
				msgs = append(msgs, r.Message())
			}
			state.Append(msgs...)
			pending = nil
			l.snapshot(ctx, state, SnapshotPostTools)
			transition(PhaseAwaitingModel)

		case PhaseDone:
			final, _ := state.Last()
			events.PublishEventToContext(ctx, events.NewFinalEvent(events.NewEventMetadata(state.ID, iteration), final.Content))
			return &final, nil
		}
	}
}

// cancelPending answers calls that will not run so the history stays paired.
func (l *Loop) cancelPending(state *conversation.State, pending []conversation.ToolCallRequest) {
	if len(pending) == 0 {
		return
	}
	msgs := make([]conversation.Message, 0, len(pending))
	for _, c := range pending {
		msgs = append(msgs, tools.CancelledResult(c).Message())
	}
	log.Debug().Int("calls", len(pending)).Msg("toolloop: recording cancelled tool calls")
	state.Append(msgs...)
}

func (l *Loop) history(state *conversation.State) []conversation.Message {
	msgs := state.Messages()
	if l.loopCfg.SystemPrompt == "" {
		return msgs
	}
	if len(msgs) > 0 && msgs[0].Role == conversation.RoleSystem {
		return msgs
	}
	return append([]conversation.Message{conversation.NewSystemMessage(l.loopCfg.SystemPrompt)}, msgs...)
}

// normalizeToolCallIDs replaces empty ids, and ids already used in the
// history or earlier in calls, with fresh ones.
func normalizeToolCallIDs(history []conversation.Message, calls []conversation.ToolCallRequest) []conversation.ToolCallRequest {
	used := map[string]bool{}
	for _, m := range history {
		for _, c := range m.ToolCalls {
			used[c.ID] = true
		}
	}
	out := make([]conversation.ToolCallRequest, len(calls))
	for i, c := range calls {
		c = c.Clone()
		if c.ID == "" || used[c.ID] {
			newID := "call_" + uuid.NewString()
			log.Debug().Str("tool", c.Name).Str("id", c.ID).Str("new_id", newID).Msg("toolloop: rewriting tool call id")
			c.ID = newID
		}
		used[c.ID] = true
		out[i] = c
	}
	return out
}

// pendingToolCalls returns the calls of the trailing assistant message that
// have no tool message yet.
func pendingToolCalls(msgs []conversation.Message) []conversation.ToolCallRequest {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == conversation.RoleTool {
			continue
		}
		if !m.HasToolCalls() {
			return nil
		}
		answered := len(msgs) - 1 - i
		if answered >= len(m.ToolCalls) {
			return nil
		}
		return m.ToolCalls[answered:]
	}
	return nil
}
