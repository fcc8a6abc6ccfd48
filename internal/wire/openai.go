package wire

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// ToOpenAIMessages converts a Conversation to the OpenAI SDK's message shape,
// used to marshal the `messages` field of the request body (§4.1). Kept as a
// distinct conversion step (rather than marshaling Message directly) so the
// wire-visible field names stay pinned to the OpenAI chat-completions schema
// even if Message grows local-only bookkeeping fields.
func ToOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.ContentOrEmpty(),
			ToolCallID: m.ToolCallID,
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				msg.ToolCalls[j] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		out[i] = msg
	}
	return out
}

// ToOpenAITools converts tool definitions to the OpenAI SDK's tool shape for
// the request body's `tools` field.
func ToOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	emptyParams := json.RawMessage(`{"type":"object","properties":{}}`)
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = emptyParams
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

// FromOpenAIToolCalls converts the SDK's non-streaming tool-call shape back
// into wire.ToolCall. The provider client does not call it: its
// non-streaming path decodes tool calls with its own chatCompletionToolCall
// type.
func FromOpenAIToolCalls(tcs []openai.ToolCall) []ToolCall {
	if len(tcs) == 0 {
		return nil
	}
	out := make([]ToolCall, len(tcs))
	for i, tc := range tcs {
		out[i] = ToolCall{
			ID:        tc.ID,
			Kind:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return out
}
