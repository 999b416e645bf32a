package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/gaia/pkg/conversation"
	"github.com/go-go-golems/gaia/pkg/events"
)

// Invoker executes tool calls against a Registry. Failures are returned as
// data inside ToolResult, never as Go errors.
type Invoker struct {
	registry *Registry
	config   ToolConfig

	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

func NewInvoker(registry *Registry, cfg ToolConfig) *Invoker {
	return &Invoker{
		registry: registry,
		config:   cfg,
		schemas:  make(map[string]*gojsonschema.Schema),
	}
}

type outcome struct {
	output string
	err    error
	panic  any
	stack  []byte
}

// Invoke executes a single call.
func (inv *Invoker) Invoke(ctx context.Context, call conversation.ToolCallRequest) ToolResult {
	start := time.Now()
	res := inv.invoke(ctx, call)
	res.Duration = time.Since(start)

	ev := log.Debug().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Dur("duration", res.Duration)
	if res.Failure != nil {
		ev = ev.Str("failure_kind", string(res.Failure.Kind)).Str("failure", res.Failure.Message)
	}
	ev.Msg("tool invocation finished")

	failureKind := ""
	if res.Failure != nil {
		failureKind = string(res.Failure.Kind)
	}
	events.PublishEventToContext(ctx, events.NewToolCallExecutionResultEvent(
		events.MetadataFromContext(ctx),
		events.ToolResult{
			ID:          call.ID,
			Name:        call.Name,
			Result:      res.Text(),
			FailureKind: failureKind,
			DurationMs:  res.Duration.Milliseconds(),
		},
	))
	return res
}

func (inv *Invoker) invoke(ctx context.Context, call conversation.ToolCallRequest) ToolResult {
	spec, tool, err := inv.registry.Resolve(call.Name)
	if err != nil {
		return failed(call, FailureUnknownTool, err.Error())
	}

	args := Arguments(call.Arguments)
	if args == nil {
		args = Arguments{}
	}
	if err := inv.validate(spec, args); err != nil {
		return failed(call, FailureSchemaValidation, err.Error())
	}

	if err := ctx.Err(); err != nil {
		return CancelledResult(call)
	}

	events.PublishEventToContext(ctx, events.NewToolCallExecuteEvent(
		events.MetadataFromContext(ctx),
		events.ToolCall{ID: call.ID, Name: call.Name, Input: compactArguments(args)},
	))

	callCtx := WithCurrentToolCall(ctx, call)
	cancel := func() {}
	if inv.config.ExecutionTimeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, inv.config.ExecutionTimeout)
	}
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{panic: r, stack: debug.Stack()}
			}
		}()
		out, err := tool.Execute(callCtx, args)
		ch <- outcome{output: out, err: err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-callCtx.Done():
		o = outcome{err: callCtx.Err()}
	}

	if o.panic != nil {
		log.Error().Str("tool", call.Name).Interface("panic", o.panic).Bytes("stack", o.stack).Msg("tool panicked")
		return failed(call, FailureInternal, fmt.Sprintf("tool %s failed unexpectedly: %v", call.Name, o.panic))
	}
	if o.err != nil {
		return failed(call, classify(ctx, o.err), o.err.Error())
	}

	return ToolResult{CallID: call.ID, ToolName: call.Name, Output: o.output}
}

func classify(parent context.Context, err error) FailureKind {
	var transcript *TranscriptUnavailableError
	var schema *SchemaValidationError
	switch {
	case errors.As(err, &transcript):
		return FailureTranscriptUnavailable
	case errors.As(err, &schema):
		return FailureSchemaValidation
	case parent.Err() != nil:
		return FailureCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	}
	return FailureProvider
}

// InvokeAll executes calls concurrently, bounded by MaxParallelTools, and
// returns one result per call in request order.
func (inv *Invoker) InvokeAll(ctx context.Context, calls []conversation.ToolCallRequest) []ToolResult {
	results := make([]ToolResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(inv.config.maxParallel())
	for i, c := range calls {
		i, c := i, c
		g.Go(func() error {
			results[i] = inv.Invoke(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (inv *Invoker) validate(spec ToolSpec, args Arguments) error {
	schema, err := inv.compiledSchema(spec)
	if err != nil {
		return errors.Wrapf(err, "could not compile schema of %s", spec.Name)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return errors.Wrap(err, "could not validate arguments")
	}
	if res.Valid() {
		return nil
	}
	violations := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		violations = append(violations, e.String())
	}
	return &SchemaValidationError{Tool: spec.Name, Violations: violations}
}

func (inv *Invoker) compiledSchema(spec ToolSpec) (*gojsonschema.Schema, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if s, ok := inv.schemas[spec.Name]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Schema()))
	if err != nil {
		return nil, err
	}
	inv.schemas[spec.Name] = s
	return s, nil
}

func compactArguments(args Arguments) string {
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(args))
	}
	return string(b)
}
