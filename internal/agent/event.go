// Package agent implements the agent loop (§4.4): the state machine that
// drives repeated provider calls and tool executions for one conversation
// turn, emitting a lazy finite sequence of typed events. Grounded on
// internal/llm/loop.go's ProcessTurn/streamAndCollect/toolCallAccumulator
// shape, generalized to the spec's provider/registry contracts.
package agent

import "github.com/xonecas/heddle/internal/wire"

// EventType discriminates Event.
type EventType string

const (
	EventAssistantMessage EventType = "assistant_message"
	EventContentDelta     EventType = "content_delta"
	EventToolStart        EventType = "tool_start"
	EventToolEnd          EventType = "tool_end"
	EventUsage            EventType = "usage"
	EventLoopDetected     EventType = "loop_detected"
	EventError            EventType = "error"
)

// Event is one entry in the loop's output sequence (§4.4). Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType

	// EventAssistantMessage
	Message wire.Message

	// EventContentDelta
	Delta string

	// EventToolStart / EventToolEnd
	ToolName   string
	ToolCallID string
	ToolResult string
	ToolCall   wire.ToolCall

	// EventUsage
	Usage *wire.Usage

	// EventLoopDetected
	LoopCount int

	// EventError
	ErrorMessage string
}
