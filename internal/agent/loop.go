package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/xonecas/heddle/internal/provider"
	"github.com/xonecas/heddle/internal/tools"
	"github.com/xonecas/heddle/internal/wire"
)

// Options configures one Run (§4.4).
type Options struct {
	MaxIterations     int
	DoomLoopThreshold int
	RequestOverrides  map[string]any
	Stream            bool // false uses Send (non-streaming); true uses Stream
}

// DefaultOptions returns the spec's defaults: maxIterations=20, doomLoopThreshold=3.
func DefaultOptions() Options {
	return Options{MaxIterations: 20, DoomLoopThreshold: 3}
}

// Runner drives the agent loop over one conversation. The Events channel is
// the lazy finite sequence of *AgentEvent* from §4.4; Wait returns the
// terminal provider I/O error, if the loop ended by an unrecovered exception
// rather than a normal/loop_detected/max-iterations conclusion (§4.4's "the
// loop itself does not produce an error event for provider I/O failures;
// those propagate as thrown exceptions").
type Runner struct {
	Events <-chan Event
	wait   func() error
}

// Wait blocks until the loop goroutine has finished and returns its terminal
// error, mirroring provider.Stream.Wait's generator-with-a-fatal-error shape.
func (r *Runner) Wait() error {
	return r.wait()
}

// Run starts the agent loop in a goroutine and returns immediately. conv is
// mutated in place as the spec requires ("the conversation is appended to in
// place") — callers must not read *conv concurrently with consuming Events;
// the loop mutates it synchronously with each event emission, so a consumer
// that inspects it upon receiving an event sees a consistent prefix.
func Run(ctx context.Context, p provider.Provider, registry *tools.Registry, conv *[]wire.Message, opts Options) *Runner {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.DoomLoopThreshold <= 0 {
		opts.DoomLoopThreshold = 3
	}

	events := make(chan Event)
	resultErr := make(chan error, 1)

	go func() {
		defer close(events)
		resultErr <- run(ctx, p, registry, conv, opts, events)
	}()

	return &Runner{Events: events, wait: func() error {
		return <-resultErr
	}}
}

func run(ctx context.Context, p provider.Provider, registry *tools.Registry, conv *[]wire.Message, opts Options, events chan<- Event) error {
	window := newRecentHashWindow(opts.DoomLoopThreshold)
	toolDefs := registry.Definitions()

	for iter := 0; iter < opts.MaxIterations; iter++ {
		assembled, usage, err := callProvider(ctx, p, opts, *conv, toolDefs, events)
		if err != nil {
			return err
		}
		if assembled == nil {
			// No choice in response (§4.4 step 1).
			if !sendEvent(ctx, events, Event{Type: EventError, ErrorMessage: "No choice in response"}) {
				return ctx.Err()
			}
			return nil
		}

		if usage != nil {
			if !sendEvent(ctx, events, Event{Type: EventUsage, Usage: usage}) {
				return ctx.Err()
			}
		}

		if !sendEvent(ctx, events, Event{Type: EventAssistantMessage, Message: *assembled}) {
			return ctx.Err()
		}
		*conv = append(*conv, *assembled)

		if len(assembled.ToolCalls) == 0 {
			return nil
		}

		for _, call := range assembled.ToolCalls {
			if !sendEvent(ctx, events, Event{Type: EventToolStart, ToolName: call.Name, ToolCallID: call.ID, ToolCall: call}) {
				return ctx.Err()
			}
			result, err := registry.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				// UnknownTool: hard failure, propagates out of the loop (§4.3/§7).
				return err
			}
			if !sendEvent(ctx, events, Event{Type: EventToolEnd, ToolName: call.Name, ToolCallID: call.ID, ToolResult: result, ToolCall: call}) {
				return ctx.Err()
			}
			*conv = append(*conv, wire.NewToolResultMessage(call.ID, result))
		}

		window.push(fingerprint(assembled.ToolCalls))
		if window.allEqual() {
			if !sendEvent(ctx, events, Event{Type: EventLoopDetected, LoopCount: opts.DoomLoopThreshold}) {
				return ctx.Err()
			}
			return nil
		}
	}

	if !sendEvent(ctx, events, Event{Type: EventError, ErrorMessage: fmt.Sprintf("Max iterations (%d) reached — possible infinite loop", opts.MaxIterations)}) {
		return ctx.Err()
	}
	return nil
}

// callProvider makes one provider call (streaming or not) and returns the
// assembled assistant message, or nil if the response had no choice.
func callProvider(ctx context.Context, p provider.Provider, opts Options, conv []wire.Message, toolDefs []wire.ToolDefinition, events chan<- Event) (*wire.Message, *wire.Usage, error) {
	if !opts.Stream {
		resp, err := p.Send(ctx, conv, toolDefs, opts.RequestOverrides)
		if err != nil {
			return nil, nil, err
		}
		if !resp.HasChoice {
			return nil, nil, nil
		}
		return &resp.Message, resp.Usage, nil
	}

	stream, err := p.Stream(ctx, conv, toolDefs, opts.RequestOverrides)
	if err != nil {
		return nil, nil, err
	}

	asm := newAssembler()
	for chunk := range stream.Chunks {
		if chunk.ContentDelta != "" {
			asm.addContent(chunk.ContentDelta)
			if !sendEvent(ctx, events, Event{Type: EventContentDelta, Delta: chunk.ContentDelta}) {
				return nil, nil, ctx.Err()
			}
		}
		for _, d := range chunk.ToolCallDeltas {
			asm.addToolCallDelta(d)
		}
		if chunk.Usage != nil {
			asm.usage = chunk.Usage
		}
	}
	if err := stream.Wait(); err != nil {
		return nil, nil, err
	}

	msg := asm.finalize()
	return &msg, asm.usage, nil
}

// assembler implements the chunk-assembly state of §4.2.
type assembler struct {
	content string
	order   []int
	byIndex map[int]*wire.ToolCall
	usage   *wire.Usage
}

func newAssembler() *assembler {
	return &assembler{byIndex: make(map[int]*wire.ToolCall)}
}

func (a *assembler) addContent(delta string) {
	a.content += delta
}

func (a *assembler) addToolCallDelta(d wire.ToolCallDelta) {
	tc, ok := a.byIndex[d.Index]
	if !ok {
		tc = &wire.ToolCall{Kind: "function"}
		a.byIndex[d.Index] = tc
		a.order = append(a.order, d.Index)
	}
	if d.ID != "" {
		tc.ID = d.ID
	}
	tc.Name += d.Name
	tc.Arguments += d.Arguments
}

func (a *assembler) finalize() wire.Message {
	sort.Ints(a.order)
	calls := make([]wire.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		calls = append(calls, *a.byIndex[idx])
	}
	return wire.NewAssistantMessage(a.content, calls)
}

// sendEvent delivers ev on events, honoring ctx cancellation. Returns false
// if the context was cancelled before the send completed.
func sendEvent(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
