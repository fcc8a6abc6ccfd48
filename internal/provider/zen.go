package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	zen "github.com/sacenox/go-opencode-ai-zen-sdk"
	"github.com/xonecas/heddle/internal/wire"
)

// ZenConfig constructs a ZenProvider.
type ZenConfig struct {
	Name          string
	APIKey        string
	BaseURL       string
	Model         string
	RequestParams map[string]any
}

// ZenProvider is an alternate Provider backed by opencode.ai Zen's
// multi-format relay SDK (Anthropic/Gemini/OpenAI-Responses/Chat-Completions
// dispatch by ev.Endpoint). It backs any configured provider whose
// `providers.<name>.kind` is "zen" — for example the session's optional
// "weak" provider (spec.md §6.4) — trimmed down to just what the Provider
// interface needs.
type ZenProvider struct {
	name          string
	client        *zen.Client
	model         string
	requestParams map[string]any
}

// NewZen constructs a ZenProvider.
func NewZen(cfg ZenConfig) (*ZenProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://opencode.ai/zen/v1"
	}
	client, err := zen.NewClient(zen.Config{APIKey: cfg.APIKey, BaseURL: strings.TrimRight(baseURL, "/")})
	if err != nil {
		return nil, err
	}
	params := cfg.RequestParams
	if params == nil {
		params = map[string]any{}
	}
	return &ZenProvider{name: cfg.Name, client: client, model: cfg.Model, requestParams: params}, nil
}

func (p *ZenProvider) Name() string { return p.name }

func (p *ZenProvider) Close() error { return nil }

func (p *ZenProvider) With(overrides map[string]any) Provider {
	cp := *p
	cp.requestParams = wire.MergeShallow(p.requestParams, overrides)
	return &cp
}

func (p *ZenProvider) buildRequest(conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any, stream bool) zen.NormalizedRequest {
	system, rest := splitSystem(conversation)
	merged := wire.MergeShallow(p.requestParams, wire.ValidateOverrides(overrides))

	req := zen.NormalizedRequest{
		Model:    p.model,
		System:   system,
		Messages: toZenMessages(rest),
		Tools:    toZenTools(tools),
		Stream:   stream,
	}
	if t, ok := merged["temperature"].(float64); ok {
		req.Temperature = &t
	}
	maxTokens := 16000
	if mt, ok := merged["max_tokens"].(int); ok && mt > 0 {
		maxTokens = mt
	}
	req.MaxTokens = &maxTokens
	return req
}

// Stream implements Provider.
func (p *ZenProvider) Stream(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*Stream, error) {
	req := p.buildRequest(conversation, tools, overrides, true)

	events, errs, err := p.client.UnifiedStreamNormalized(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan wire.Chunk)
	resultErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		resultErr <- p.pump(ctx, events, errs, chunks)
	}()

	return &Stream{Chunks: chunks, wait: func() error { return <-resultErr }}, nil
}

// Send implements Provider by assembling one streamed call, since the zen
// SDK only exposes a streaming transport.
func (p *ZenProvider) Send(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*wire.Response, error) {
	stream, err := p.Stream(ctx, conversation, tools, overrides)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	byIndex := map[int]*wire.ToolCall{}
	var order []int
	var usage *wire.Usage

	for c := range stream.Chunks {
		content.WriteString(c.ContentDelta)
		for _, d := range c.ToolCallDeltas {
			tc, ok := byIndex[d.Index]
			if !ok {
				tc = &wire.ToolCall{Kind: "function"}
				byIndex[d.Index] = tc
				order = append(order, d.Index)
			}
			if d.ID != "" {
				tc.ID = d.ID
			}
			tc.Name += d.Name
			tc.Arguments += d.Arguments
		}
		if c.Usage != nil {
			usage = c.Usage
		}
	}
	if err := stream.Wait(); err != nil {
		return nil, err
	}

	resp := &wire.Response{HasChoice: true, Usage: usage}
	var toolCalls []wire.ToolCall
	for _, idx := range order {
		toolCalls = append(toolCalls, *byIndex[idx])
	}
	resp.Message = wire.NewAssistantMessage(content.String(), toolCalls)
	return resp, nil
}

func (p *ZenProvider) pump(ctx context.Context, events <-chan zen.UnifiedEvent, errs <-chan error, ch chan<- wire.Chunk) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			stop, err := p.emitEvent(ctx, ch, ev)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		case err, ok := <-errs:
			if ok && err != nil {
				var apiErr *zen.APIError
				if errors.As(err, &apiErr) {
					log.Error().Int("status", apiErr.StatusCode).Str("body", string(apiErr.Body)).Msg("zen: stream API error")
				}
				return err
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// emitEvent dispatches one zen.UnifiedEvent by its wire format. Returns
// (stop, err): stop=true on a clean end-of-stream marker.
func (p *ZenProvider) emitEvent(ctx context.Context, ch chan<- wire.Chunk, ev zen.UnifiedEvent) (bool, error) {
	data := ev.Data
	if len(data) == 0 || string(data) == "[DONE]" {
		return true, nil
	}

	switch ev.Endpoint {
	case zen.EndpointMessages:
		return false, p.emitAnthropicEvent(ctx, ch, ev.Event, data)
	case zen.EndpointResponses:
		return false, p.emitResponsesEvent(ctx, ch, ev.Event, data)
	default:
		return false, p.emitChatCompletionsEvent(ctx, ch, data)
	}
}

func (p *ZenProvider) emitChatCompletionsEvent(ctx context.Context, ch chan<- wire.Chunk, data json.RawMessage) error {
	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil
	}
	out := wire.Chunk{}
	if usage, ok := chunk["usage"].(map[string]any); ok {
		out.Usage = &wire.Usage{
			PromptTokens:     getIntOrZero(usage, "prompt_tokens"),
			CompletionTokens: getIntOrZero(usage, "completion_tokens"),
			TotalTokens:      getIntOrZero(usage, "total_tokens"),
		}
	}
	choices, _ := chunk["choices"].([]any)
	var delta map[string]any
	if len(choices) > 0 {
		choice, _ := choices[0].(map[string]any)
		delta, _ = choice["delta"].(map[string]any)
	}
	if delta != nil {
		applyDeltaToChunk(&out, delta)
	}
	trySendChunk(ctx, ch, out)
	return nil
}

func (p *ZenProvider) emitAnthropicEvent(ctx context.Context, ch chan<- wire.Chunk, event string, data json.RawMessage) error {
	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil
	}
	out := wire.Chunk{}
	switch event {
	case "content_block_start":
		cb, _ := chunk["content_block"].(map[string]any)
		if getStringOrEmpty(cb, "type") == "tool_use" {
			out.ToolCallDeltas = append(out.ToolCallDeltas, wire.ToolCallDelta{
				Index: getIntOrZero(chunk, "index"),
				ID:    getStringOrEmpty(cb, "id"),
				Name:  getStringOrEmpty(cb, "name"),
			})
		}
	case "content_block_delta":
		idx := getIntOrZero(chunk, "index")
		delta, _ := chunk["delta"].(map[string]any)
		switch getStringOrEmpty(delta, "type") {
		case "text_delta":
			out.ContentDelta = getStringOrEmpty(delta, "text")
		case "input_json_delta":
			if args := getStringOrEmpty(delta, "partial_json"); args != "" {
				out.ToolCallDeltas = append(out.ToolCallDeltas, wire.ToolCallDelta{Index: idx, Arguments: args})
			}
		}
	case "message_delta":
		if usage, ok := chunk["usage"].(map[string]any); ok {
			out.Usage = &wire.Usage{
				PromptTokens:     getIntOrZero(usage, "input_tokens"),
				CompletionTokens: getIntOrZero(usage, "output_tokens"),
			}
		}
	}
	trySendChunk(ctx, ch, out)
	return nil
}

func (p *ZenProvider) emitResponsesEvent(ctx context.Context, ch chan<- wire.Chunk, event string, data json.RawMessage) error {
	var chunk map[string]any
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil
	}
	out := wire.Chunk{}
	switch event {
	case "response.output_text.delta":
		out.ContentDelta = getStringOrEmpty(chunk, "delta")
	case "response.output_item.added":
		item, _ := chunk["item"].(map[string]any)
		if getStringOrEmpty(item, "type") == "function_call" {
			out.ToolCallDeltas = append(out.ToolCallDeltas, wire.ToolCallDelta{
				Index: getIntOrZero(chunk, "output_index"),
				ID:    getStringOrEmpty(item, "call_id"),
				Name:  getStringOrEmpty(item, "name"),
			})
		}
	case "response.function_call_arguments.delta":
		if delta := getStringOrEmpty(chunk, "delta"); delta != "" {
			out.ToolCallDeltas = append(out.ToolCallDeltas, wire.ToolCallDelta{
				Index: getIntOrZero(chunk, "output_index"), Arguments: delta,
			})
		}
	case "response.completed":
		resp, _ := chunk["response"].(map[string]any)
		if usage, ok := resp["usage"].(map[string]any); ok {
			out.Usage = &wire.Usage{
				PromptTokens:     getIntOrZero(usage, "input_tokens"),
				CompletionTokens: getIntOrZero(usage, "output_tokens"),
			}
		}
	}
	trySendChunk(ctx, ch, out)
	return nil
}

func applyDeltaToChunk(out *wire.Chunk, delta map[string]any) {
	out.ContentDelta = getStringOrEmpty(delta, "content")
	toolCalls, _ := delta["tool_calls"].([]any)
	for _, tc := range toolCalls {
		toolCall, _ := tc.(map[string]any)
		fn, _ := toolCall["function"].(map[string]any)
		out.ToolCallDeltas = append(out.ToolCallDeltas, wire.ToolCallDelta{
			Index:     getIntOrZero(toolCall, "index"),
			ID:        getStringOrEmpty(toolCall, "id"),
			Name:      getStringOrEmpty(fn, "name"),
			Arguments: getStringOrEmpty(fn, "arguments"),
		})
	}
}

func splitSystem(messages []wire.Message) (system string, rest []wire.Message) {
	var parts []string
	for _, m := range messages {
		if strings.EqualFold(m.Role, wire.RoleSystem) {
			if s := strings.TrimSpace(m.ContentOrEmpty()); s != "" {
				parts = append(parts, s)
			}
		} else {
			rest = append(rest, m)
		}
	}
	return strings.Join(parts, "\n\n"), rest
}

func toZenMessages(messages []wire.Message) []zen.NormalizedMessage {
	out := make([]zen.NormalizedMessage, len(messages))
	for i, m := range messages {
		nm := zen.NormalizedMessage{Role: m.Role, Content: m.ContentOrEmpty(), ToolCallID: m.ToolCallID}
		if len(m.ToolCalls) > 0 {
			nm.ToolCalls = make([]zen.NormalizedToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				nm.ToolCalls[j] = zen.NormalizedToolCall{ID: tc.ID, Name: tc.Name, Arguments: json.RawMessage(tc.Arguments)}
			}
		}
		out[i] = nm
	}
	return out
}

func toZenTools(tools []wire.ToolDefinition) []zen.NormalizedTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]zen.NormalizedTool, len(tools))
	for i, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out[i] = zen.NormalizedTool{Name: t.Name, Description: t.Description, Parameters: params}
	}
	return out
}

func getStringOrEmpty(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getIntOrZero(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return 0
}
