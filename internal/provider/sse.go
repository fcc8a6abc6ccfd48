package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/xonecas/heddle/internal/wire"
)

// chatCompletionStreamResponse is one SSE `data: ` payload from the
// OpenAI-compatible chat-completions streaming endpoint.
type chatCompletionStreamResponse struct {
	Choices []chatCompletionStreamChoice `json:"choices"`
	Usage   *chatCompletionUsage         `json:"usage,omitempty"`
}

type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionStreamChoice struct {
	Delta        chatCompletionStreamDelta `json:"delta"`
	FinishReason *string                   `json:"finish_reason"`
}

type chatCompletionStreamDelta struct {
	Role      string                   `json:"role,omitempty"`
	Content   string                   `json:"content,omitempty"`
	ToolCalls []chatCompletionToolCall `json:"tool_calls,omitempty"`
}

type chatCompletionToolCall struct {
	Index    int                    `json:"index"`
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Function chatCompletionFunction `json:"function"`
}

type chatCompletionFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chatCompletionResponse is the non-streaming response shape.
type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
	Usage   *chatCompletionUsage   `json:"usage,omitempty"`
}

type chatCompletionChoice struct {
	Message chatCompletionMessage `json:"message"`
}

type chatCompletionMessage struct {
	Role      string                   `json:"role"`
	Content   *string                  `json:"content"`
	ToolCalls []chatCompletionToolCall `json:"tool_calls,omitempty"`
}

// parseSSEStream reads `data: ` framed SSE lines from r, emitting one
// wire.Chunk per parsed payload, terminating cleanly on the literal
// "[DONE]" sentinel (spec.md §4.1). Lines not beginning with "data: " are
// ignored (comments/keepalives). Parser errors on a chunk are fatal and are
// returned so the caller can surface them via Stream.Wait.
func parseSSEStream(ctx context.Context, r io.Reader, ch chan<- wire.Chunk) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var raw chatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return err
		}

		chunk := wire.Chunk{}
		if raw.Usage != nil {
			chunk.Usage = &wire.Usage{
				PromptTokens:     raw.Usage.PromptTokens,
				CompletionTokens: raw.Usage.CompletionTokens,
				TotalTokens:      raw.Usage.TotalTokens,
			}
		}
		if len(raw.Choices) > 0 {
			choice := raw.Choices[0]
			chunk.ContentDelta = choice.Delta.Content
			if choice.FinishReason != nil {
				chunk.FinishReason = *choice.FinishReason
			}
			for _, tc := range choice.Delta.ToolCalls {
				chunk.ToolCallDeltas = append(chunk.ToolCallDeltas, wire.ToolCallDelta{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
		}
		if !trySendChunk(ctx, ch, chunk) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}

// trySendChunk sends a chunk on ch, aborting if ctx is cancelled. Returns
// false if the send was abandoned due to cancellation.
func trySendChunk(ctx context.Context, ch chan<- wire.Chunk, c wire.Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
