package headless

import (
	"github.com/xonecas/heddle/internal/ipc"
	"github.com/xonecas/heddle/internal/setup"
)

// handleInit implements the `init` request handler (§4.7).
func (w *Worker) handleInit(req ipc.Request) (int, bool) {
	if req.ProtocolVersion != "" {
		compat, err := ipc.CompareVersions(w.ownProtocolVersion, req.ProtocolVersion)
		if err != nil {
			w.writeValue(ipc.Result{
				Type:          "result",
				ID:            req.ID,
				Status:        "error",
				Error:         err.Error(),
				ToolCallsMade: []ipc.ToolCallMade{},
			})
			return 1, true
		}
		switch compat {
		case ipc.VersionIncompatible:
			w.writeValue(ipc.Result{
				Type:          "result",
				ID:            req.ID,
				Status:        "error",
				Error:         "protocol_version_mismatch",
				ToolCallsMade: []ipc.ToolCallMade{},
				Iterations:    0,
			})
			return 1, true
		case ipc.VersionCompatibleWarning:
			w.debug.Debugf("ipc", "protocol version minor mismatch: own=%s requested=%s", w.ownProtocolVersion, req.ProtocolVersion)
		}
	}

	session, err := w.createSession(setup.Options{
		Model:        req.Config.Model,
		SystemPrompt: req.Config.SystemPrompt,
		Tools:        req.Config.Tools,
	})
	if err != nil {
		w.writeValue(ipc.Result{
			Type:          "result",
			ID:            req.ID,
			Status:        "error",
			Error:         err.Error(),
			ToolCallsMade: []ipc.ToolCallMade{},
		})
		return 0, false
	}

	w.session = session
	if req.Config.MaxIterations > 0 {
		w.maxIterations = req.Config.MaxIterations
	}

	w.writeValue(ipc.InitOk{
		Type:            "init_ok",
		ID:              req.ID,
		SessionID:       session.ID,
		ProtocolVersion: w.ownProtocolVersion,
	})
	return 0, false
}

// handleStatus implements the `status` request handler.
func (w *Worker) handleStatus(req ipc.Request) (int, bool) {
	if w.session == nil {
		w.writeValue(ipc.Result{
			Type:          "result",
			ID:            req.ID,
			Status:        "error",
			Error:         "Not initialized. Send 'init' first.",
			ToolCallsMade: []ipc.ToolCallMade{},
		})
		return 0, false
	}
	w.writeValue(ipc.StatusOk{
		Type:          "status_ok",
		ID:            req.ID,
		Model:         w.session.Model,
		MessagesCount: len(w.session.Conversation),
		SessionID:     w.session.ID,
		Active:        w.activeID != "",
	})
	return 0, false
}

// handleCancel implements the `cancel` request handler: sets cancelTargetID
// if this cancel's target is the currently-active send. If it is not
// currently active, this is a no-op here — a cancel queued for a send that
// is still running is instead observed and dequeued by the event pump
// (§4.7.1 step 1(b)); one that never becomes active is simply dropped.
func (w *Worker) handleCancel(req ipc.Request) {
	if req.TargetID != "" && req.TargetID == w.activeID {
		w.cancelTargetID = w.activeID
	}
}

// checkCancel implements §4.7.1 step 1: true if the active send has been
// cancelled, either because cancelTargetID already matches, or because a
// queued cancel for it is found (and consumed) now.
func (w *Worker) checkCancel() bool {
	if w.cancelTargetID != "" && w.cancelTargetID == w.activeID {
		return true
	}
	return w.dequeueCancelFor(w.activeID)
}
