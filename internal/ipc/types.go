// Package ipc defines the headless IPC wire types (§6.1): line-delimited
// JSON requests/responses, discriminated by a "type" field, and the
// protocol-version compatibility check (§6.3). Grounded on
// internal/mcp/types.go's Request/Response/discriminated-union shape,
// translated from JSON-RPC envelopes to this spec's flatter snake_case
// fields.
package ipc

// InitConfig is the `config` object of an `init` request.
type InitConfig struct {
	Model         string   `json:"model"`
	SystemPrompt  string   `json:"system_prompt"`
	Tools         []string `json:"tools"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

// Request is one decoded line from stdin. Fields irrelevant to Type are zero.
type Request struct {
	Type            string     `json:"type"`
	ID              string     `json:"id"`
	ProtocolVersion string     `json:"protocol_version,omitempty"`
	Config          InitConfig `json:"config,omitempty"`
	Message         string     `json:"message,omitempty"`
	TargetID        string     `json:"target_id,omitempty"`
}

// Request type discriminators.
const (
	RequestInit     = "init"
	RequestSend     = "send"
	RequestStatus   = "status"
	RequestShutdown = "shutdown"
	RequestCancel   = "cancel"
)

// ToolCallMade is one entry of a terminal result's tool_calls_made list.
type ToolCallMade struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ResultUsage mirrors wire.Usage with the wire protocol's field names.
type ResultUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// InitOk is the `init_ok` response.
type InitOk struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	SessionID       string `json:"session_id"`
	ProtocolVersion string `json:"protocol_version"`
	Error           string `json:"error,omitempty"`
}

// WorkerEvent wraps one internal agent event for transmission (§4.7.1).
type WorkerEvent struct {
	Event         string `json:"event"`
	Text          string `json:"text,omitempty"`
	Name          string `json:"name,omitempty"`
	Args          string `json:"args,omitempty"`
	ResultPreview string `json:"result_preview,omitempty"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// EventMessage is the `event` response envelope.
type EventMessage struct {
	Type  string      `json:"type"`
	Event WorkerEvent `json:"event"`
}

// Result is the terminal `result` response for a `send`.
type Result struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Response      string         `json:"response,omitempty"`
	ToolCallsMade []ToolCallMade `json:"tool_calls_made"`
	Usage         *ResultUsage   `json:"usage,omitempty"`
	Iterations    int            `json:"iterations"`
	Error         string         `json:"error,omitempty"`
}

// StatusOk is the `status_ok` response.
type StatusOk struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	Model         string `json:"model"`
	MessagesCount int    `json:"messages_count"`
	SessionID     string `json:"session_id"`
	Active        bool   `json:"active"`
}

// ShutdownOk is the `shutdown_ok` response.
type ShutdownOk struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
