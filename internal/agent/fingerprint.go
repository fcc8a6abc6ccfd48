package agent

import (
	"encoding/json"
	"strings"

	"github.com/xonecas/heddle/internal/wire"
)

// fingerprint computes the doom-loop fingerprint for one iteration's tool
// calls (§4.5): "<name>:<normalizedArgs>" per call, joined with "|" in call
// order. normalizedArgs re-serializes parseable JSON arguments (so whitespace
// differences don't defeat detection) and falls back to the raw string
// otherwise.
func fingerprint(calls []wire.ToolCall) string {
	parts := make([]string, len(calls))
	for i, c := range calls {
		parts[i] = c.Name + ":" + normalizeArgs(c.Arguments)
	}
	return strings.Join(parts, "|")
}

func normalizeArgs(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return string(out)
}

// recentHashWindow tracks the last N iteration fingerprints, evicting the
// oldest once full.
type recentHashWindow struct {
	threshold int
	entries   []string
}

func newRecentHashWindow(threshold int) *recentHashWindow {
	return &recentHashWindow{threshold: threshold}
}

// push appends fp, evicting the oldest entry if the window is at capacity.
func (w *recentHashWindow) push(fp string) {
	w.entries = append(w.entries, fp)
	if len(w.entries) > w.threshold {
		w.entries = w.entries[len(w.entries)-w.threshold:]
	}
}

// allEqual reports whether the window is full and every entry is byte-equal.
func (w *recentHashWindow) allEqual() bool {
	if len(w.entries) < w.threshold {
		return false
	}
	first := w.entries[0]
	for _, e := range w.entries[1:] {
		if e != first {
			return false
		}
	}
	return true
}
