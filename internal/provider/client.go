package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xonecas/heddle/internal/wire"
)

// RetryConfig controls 429 retry behavior (spec.md §4.1).
type RetryConfig struct {
	Enabled     bool
	MaxRetries  int
	BaseDelayMs int
}

// DefaultRetryConfig is 3 retries with a 1000ms base delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Enabled: true, MaxRetries: 3, BaseDelayMs: 1000}
}

// ClientConfig constructs a Client.
type ClientConfig struct {
	APIKey        string
	Model         string
	BaseURL       string // e.g. "https://openrouter.ai/api/v1"
	RequestParams map[string]any
	Retry         *RetryConfig
	HTTPClient    *http.Client
}

// Client is the OpenAI-compatible chat-completions Provider (spec.md §4.1).
type Client struct {
	apiKey        string
	model         string
	baseURL       string
	vendor        string
	requestParams map[string]any
	retry         RetryConfig
	http          *http.Client
}

// NewClient constructs a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	params := cfg.RequestParams
	if params == nil {
		params = map[string]any{}
	}
	return &Client{
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		vendor:        vendorFromURL(cfg.BaseURL),
		requestParams: params,
		retry:         retry,
		http:          httpClient,
	}
}

// Name implements Provider.
func (c *Client) Name() string { return c.vendor }

// Close implements Provider.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// With implements Provider: returns a new Client whose requestParams are the
// receiver's merged with overrides (overrides win). The receiver is
// untouched — only a shallow copy of configuration plus a merged map.
func (c *Client) With(overrides map[string]any) Provider {
	cp := *c
	cp.requestParams = wire.MergeShallow(c.requestParams, overrides)
	return &cp
}

func (c *Client) buildBody(conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any, stream bool) ([]byte, error) {
	validated := wire.ValidateOverrides(overrides)

	body := map[string]any{
		"model":    c.model,
		"messages": wire.ToOpenAIMessages(conversation),
		"stream":   stream,
	}
	body = wire.MergeShallow(body, c.requestParams)
	body = wire.MergeShallow(body, validated)

	if len(tools) > 0 {
		body["tools"] = wire.ToOpenAITools(tools)
	}
	if m, ok := validated["model"].(string); ok && m != "" {
		body["model"] = m
	}

	return json.Marshal(body)
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
}

// Send implements Provider.
func (c *Client) Send(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*wire.Response, error) {
	body, err := c.buildBody(conversation, tools, overrides, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HttpError{Provider: c.vendor, Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse chat completion response: %w", err)
	}

	out := &wire.Response{}
	if len(parsed.Choices) == 0 {
		return out, nil
	}
	out.HasChoice = true
	msg := parsed.Choices[0].Message
	out.Message = wire.Message{
		Role:      wire.RoleAssistant,
		Content:   msg.Content,
		ToolCalls: fromStreamToolCalls(msg.ToolCalls),
	}
	if parsed.Usage != nil {
		out.Usage = &wire.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

func fromStreamToolCalls(tcs []chatCompletionToolCall) []wire.ToolCall {
	if len(tcs) == 0 {
		return nil
	}
	out := make([]wire.ToolCall, len(tcs))
	for i, tc := range tcs {
		out[i] = wire.ToolCall{ID: tc.ID, Kind: "function", Name: tc.Function.Name, Arguments: tc.Function.Arguments}
	}
	return out
}

// Stream implements Provider.
func (c *Client) Stream(ctx context.Context, conversation []wire.Message, tools []wire.ToolDefinition, overrides map[string]any) (*Stream, error) {
	body, err := c.buildBody(conversation, tools, overrides, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HttpError{Provider: c.vendor, Status: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	chunks := make(chan wire.Chunk)
	resultErr := make(chan error, 1)
	go func() {
		defer resp.Body.Close()
		defer close(chunks)
		resultErr <- parseSSEStream(ctx, resp.Body, chunks)
	}()

	return &Stream{
		Chunks: chunks,
		wait:   func() error { return <-resultErr },
	}, nil
}

// doWithRetry issues the HTTP request, retrying on 429 per spec.md §4.1:
// sleep for Retry-After if it parses (seconds or HTTP-date), otherwise
// baseDelayMs*2^attempt. After the final attempt the 429 response is
// returned unchanged to the caller.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	attempt := 0
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for k, v := range c.headers() {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || !c.retry.Enabled || attempt >= c.retry.MaxRetries {
			return resp, nil
		}

		delay := retryDelay(resp.Header.Get("Retry-After"), attempt, c.retry.BaseDelayMs)
		resp.Body.Close()
		log.Warn().Str("provider", c.vendor).Int("attempt", attempt+1).Dur("delay", delay).Msg("provider: retrying after 429")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		attempt++
	}
}

// retryDelay resolves the wait before the next attempt: Retry-After (seconds
// or HTTP-date) if it parses, else exponential backoff from baseDelayMs.
func retryDelay(retryAfter string, attempt, baseDelayMs int) time.Duration {
	if d, ok := parseRetryAfter(retryAfter, time.Now()); ok {
		return d
	}
	return time.Duration(baseDelayMs) * time.Duration(1<<attempt) * time.Millisecond
}

func parseRetryAfter(header string, now time.Time) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(header); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
