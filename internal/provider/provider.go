// Package provider implements the streaming chat-completion client: request
// construction, SSE parsing, retry with Retry-After honoring, and per-call
// override validation (spec.md §4.1).
package provider

import (
	"context"

	"github.com/xonecas/heddle/internal/wire"
)

// Provider is a value constructed with credentials/model/base URL that can
// issue chat completions, either in one shot or as a stream, and that can be
// cloned with sticky per-call overrides via With.
type Provider interface {
	// Name returns the vendor identifier used in error reporting and logging.
	Name() string

	// Send issues one non-streaming completion.
	Send(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*wire.Response, error)

	// Stream issues one streaming completion. The returned Stream is
	// single-consumer and not restartable; call Stream again for a new call.
	Stream(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*Stream, error)

	// With returns a new Provider whose request params are the receiver's
	// merged with overrides (overrides win). The receiver is unchanged.
	With(overrides map[string]any) Provider

	// Close releases idle connections and other resources.
	Close() error
}

// Stream is a lazy finite sequence of wire.Chunk. Chunks is closed when the
// stream ends, normally or on error. Provider I/O failures that occur after
// at least one chunk may have been delivered are not sent on the channel as
// data — they are surfaced once Chunks closes, via Wait, mirroring
// exec.Cmd.Wait/errgroup.Group.Wait so Go's lack of generator-level
// exceptions still lets a terminal fatal error propagate out of the
// sequence (spec.md §4.4's "propagate as thrown exceptions").
type Stream struct {
	Chunks <-chan wire.Chunk
	wait   func() error
}

// Wait blocks until the stream's producer goroutine has finished and returns
// its terminal error, or nil on a clean end-of-stream. Wait may be called
// before or after Chunks is drained.
func (s *Stream) Wait() error {
	return s.wait()
}

// NewStream builds a Stream from a chunk channel and its terminal-error
// getter. Exported for fake Provider implementations in other packages'
// tests, mirroring how the real clients construct one.
func NewStream(chunks <-chan wire.Chunk, wait func() error) *Stream {
	return &Stream{Chunks: chunks, wait: wait}
}
