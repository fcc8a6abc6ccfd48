package agent

import (
	"testing"

	"github.com/xonecas/heddle/internal/wire"
)

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	a := []wire.ToolCall{{Name: "read", Arguments: `{"path":  "a.go"}`}}
	b := []wire.ToolCall{{Name: "read", Arguments: `{"path":"a.go"}`}}
	if fingerprint(a) != fingerprint(b) {
		t.Fatalf("fingerprint(a)=%q fingerprint(b)=%q, want equal after JSON normalization", fingerprint(a), fingerprint(b))
	}
}

func TestFingerprintFallsBackOnUnparsableArgs(t *testing.T) {
	a := []wire.ToolCall{{Name: "bash", Arguments: `not json`}}
	if got := fingerprint(a); got != "bash:not json" {
		t.Fatalf("fingerprint = %q, want raw fallback", got)
	}
}

func TestRecentHashWindowNotFullUntilThreshold(t *testing.T) {
	w := newRecentHashWindow(3)
	w.push("a")
	w.push("a")
	if w.allEqual() {
		t.Fatalf("allEqual() = true with only 2 of 3 entries pushed")
	}
	w.push("a")
	if !w.allEqual() {
		t.Fatalf("allEqual() = false, want true once window is full of identical entries")
	}
}

func TestRecentHashWindowEvictsOldest(t *testing.T) {
	w := newRecentHashWindow(2)
	w.push("a")
	w.push("a")
	w.push("b")
	if w.allEqual() {
		t.Fatalf("allEqual() = true, want false after a distinct entry evicted one of the matching pair")
	}
}
