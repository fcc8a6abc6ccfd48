package headless

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xonecas/heddle/internal/agent"
	"github.com/xonecas/heddle/internal/ipc"
	"github.com/xonecas/heddle/internal/wire"
)

// handleSend implements the `send` request handler (§4.7) and its event
// pump (§4.7.1).
func (w *Worker) handleSend(ctx context.Context, req ipc.Request) (int, bool) {
	if w.session == nil {
		w.writeValue(ipc.Result{
			Type: "result", ID: req.ID, Status: "error",
			Error: "Not initialized. Send 'init' first.", ToolCallsMade: []ipc.ToolCallMade{},
		})
		return 0, false
	}
	if w.activeID != "" {
		w.writeValue(ipc.Result{
			Type: "result", ID: req.ID, Status: "error",
			Error: "A send is already in progress.", ToolCallsMade: []ipc.ToolCallMade{},
		})
		return 0, false
	}

	w.activeID = req.ID
	w.cancelTargetID = ""

	userMsg := wire.NewTextMessage(wire.RoleUser, req.Message)
	w.session.Conversation = append(w.session.Conversation, userMsg)
	if err := w.session.Journal.AppendMessage(userMsg); err != nil {
		w.debug.Debugf("journal", "failed to append user message: %v", err)
	}
	journaledUpTo := len(w.session.Conversation)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := agent.Run(ctx, w.session.Provider, w.session.ToolRegistry, &w.session.Conversation, w.agentOptions())

	p := &pumpState{toolCallsMade: []ipc.ToolCallMade{}}

	for ev := range runner.Events {
		if w.checkCancel() {
			cancel()
			w.drainJournal(&journaledUpTo)
			w.writeValue(ipc.Result{
				Type: "result", ID: w.activeID, Status: "error", Error: "cancelled",
				ToolCallsMade: p.toolCallsMade, Iterations: p.iterations,
			})
			w.activeID = ""
			return 0, false
		}
		p.apply(ev, w)
	}

	err := runner.Wait()
	w.drainJournal(&journaledUpTo)

	if err != nil {
		norm := normalizeError(err)
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{
			Event: "error", Error: norm.Error, Code: norm.Code, Provider: norm.Provider, Details: norm.Details,
		}})
		w.writeValue(ipc.Result{
			Type: "result", ID: w.activeID, Status: "error", Error: norm.Error,
			ToolCallsMade: p.toolCallsMade, Iterations: p.iterations,
		})
		w.activeID = ""
		return 0, false
	}

	result := ipc.Result{
		Type: "result", ID: w.activeID, ToolCallsMade: p.toolCallsMade, Iterations: p.iterations,
	}
	if p.lastUsage != nil {
		result.Usage = &ipc.ResultUsage{
			PromptTokens:     p.lastUsage.PromptTokens,
			CompletionTokens: p.lastUsage.CompletionTokens,
			TotalTokens:      p.lastUsage.TotalTokens,
		}
	}
	if p.pendingError != "" {
		result.Status = "error"
		result.Error = p.pendingError
	} else {
		result.Status = "ok"
		result.Response = p.response()
	}
	w.writeValue(result)
	w.activeID = ""
	return 0, false
}

// drainJournal appends conversation[*from:] to the session journal and
// advances *from, satisfying invariant 4/9: every message appended during a
// send is journaled before activeID is cleared.
func (w *Worker) drainJournal(from *int) {
	for i := *from; i < len(w.session.Conversation); i++ {
		if err := w.session.Journal.AppendMessage(w.session.Conversation[i]); err != nil {
			w.debug.Debugf("journal", "failed to append message: %v", err)
		}
	}
	*from = len(w.session.Conversation)
}

// pumpState accumulates the per-send bookkeeping the event pump needs to
// build the terminal result (§4.7.1/§6.1).
type pumpState struct {
	iterations            int
	toolCallsMade         []ipc.ToolCallMade
	contentDeltaSeen      bool
	responseCandidate     string
	lastAssistantContent  string
	lastUsage             *wire.Usage
	pendingError          string
}

func (p *pumpState) response() string {
	if p.contentDeltaSeen {
		return p.lastAssistantContent
	}
	return p.responseCandidate
}

// apply maps one agent.Event to a WorkerEvent (emitting it when non-null)
// and updates pump bookkeeping, per §4.7.1.
func (p *pumpState) apply(ev agent.Event, w *Worker) {
	switch ev.Type {
	case agent.EventContentDelta:
		p.contentDeltaSeen = true
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{Event: "content_delta", Text: ev.Delta}})

	case agent.EventToolStart:
		p.toolCallsMade = append(p.toolCallsMade, ipc.ToolCallMade{Name: ev.ToolName, Args: parseArgs(ev.ToolCall.Arguments)})
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{Event: "tool_start", Name: ev.ToolName, Args: ev.ToolCall.Arguments}})

	case agent.EventToolEnd:
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{Event: "tool_end", Name: ev.ToolName, ResultPreview: preview(ev.ToolResult, 500)}})

	case agent.EventUsage:
		p.lastUsage = ev.Usage
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{
			Event: "usage", PromptTokens: ev.Usage.PromptTokens, CompletionTokens: ev.Usage.CompletionTokens, TotalTokens: ev.Usage.TotalTokens,
		}})

	case agent.EventLoopDetected:
		p.pendingError = fmt.Sprintf("Doom loop detected: %d iterations", ev.LoopCount)
		w.writeValue(ipc.EventMessage{Type: "event", Event: ipc.WorkerEvent{Event: "error", Error: p.pendingError, Code: "loop_detected"}})

	case agent.EventAssistantMessage:
		p.iterations++
		content := ev.Message.ContentOrEmpty()
		p.lastAssistantContent = content
		if !p.contentDeltaSeen && ev.Message.Content != nil {
			p.responseCandidate = content
		}

	case agent.EventError:
		p.pendingError = ev.ErrorMessage
	}
}

func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func parseArgs(argsJSON string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &out); err != nil {
		return map[string]any{}
	}
	return out
}
