package headless

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xonecas/heddle/internal/journal"
	"github.com/xonecas/heddle/internal/provider"
	"github.com/xonecas/heddle/internal/setup"
	"github.com/xonecas/heddle/internal/tools"
	"github.com/xonecas/heddle/internal/wire"
)

// stubProvider returns one fixed assistant reply per Send or Stream call,
// repeating the last reply once exhausted.
type stubProvider struct {
	replies []string
	n       int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Send(ctx context.Context, conv []wire.Message, defs []wire.ToolDefinition, overrides map[string]any) (*wire.Response, error) {
	i := s.n
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.n++
	return &wire.Response{HasChoice: true, Message: wire.NewAssistantMessage(s.replies[i], nil)}, nil
}

func (s *stubProvider) Stream(ctx context.Context, conv []wire.Message, defs []wire.ToolDefinition, overrides map[string]any) (*provider.Stream, error) {
	i := s.n
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.n++
	chunks := make(chan wire.Chunk, 1)
	chunks <- wire.Chunk{ContentDelta: s.replies[i]}
	close(chunks)
	return provider.NewStream(chunks, func() error { return nil }), nil
}

func (s *stubProvider) With(overrides map[string]any) provider.Provider { return s }

func (s *stubProvider) Close() error { return nil }

func testSessionFactory(t *testing.T, prov provider.Provider) SessionFactory {
	t.Helper()
	dir := t.TempDir()
	return func(opts setup.Options) (*setup.Session, error) {
		jr, err := journal.Open(filepath.Join(dir, "session.jsonl"))
		if err != nil {
			return nil, err
		}
		sys := wire.NewTextMessage(wire.RoleSystem, "you are heddle")
		if err := jr.AppendMessage(sys); err != nil {
			return nil, err
		}
		return &setup.Session{
			ID:           "test-session",
			SessionFile:  jr.Path(),
			CreatedAt:    time.Now(),
			Model:        "test-model",
			Conversation: []wire.Message{sys},
			Provider:     prov,
			ToolRegistry: tools.NewRegistry(),
			Journal:      jr,
		}, nil
	}
}

func newTestWorker(t *testing.T, prov provider.Provider, input string) (*Worker, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	w := NewWorker(Config{
		Stdin:              strings.NewReader(input),
		Stdout:             &out,
		OwnProtocolVersion: "1.0.0",
		CreateSession:      testSessionFactory(t, prov),
	})
	return w, &out
}

func decodeLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var results []map[string]any
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var v map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
			t.Fatalf("decode response line %q: %v", scanner.Text(), err)
		}
		results = append(results, v)
	}
	return results
}

func TestWorkerInitSendShutdown(t *testing.T) {
	prov := &stubProvider{replies: []string{"hello there"}}
	input := strings.Join([]string{
		`{"type":"init","id":"i1","protocol_version":"1.0.0"}`,
		`{"type":"send","id":"s1","message":"hi"}`,
		`{"type":"shutdown","id":"q1"}`,
	}, "\n") + "\n"

	w, out := newTestWorker(t, prov, input)
	code := w.Run()
	if code != 0 {
		t.Fatalf("Run() exit code = %d, want 0", code)
	}

	lines := decodeLines(t, out)
	if len(lines) != 4 {
		t.Fatalf("got %d response lines, want 4: %+v", len(lines), lines)
	}
	if lines[0]["type"] != "init_ok" {
		t.Fatalf("lines[0] = %+v, want init_ok", lines[0])
	}
	if lines[1]["type"] != "event" {
		t.Fatalf("lines[1] = %+v, want the streamed content_delta event", lines[1])
	}
	if lines[2]["type"] != "result" || lines[2]["status"] != "ok" {
		t.Fatalf("lines[2] = %+v, want result/ok", lines[2])
	}
	if lines[2]["response"] != "hello there" {
		t.Fatalf("response = %v, want %q", lines[2]["response"], "hello there")
	}
	if lines[3]["type"] != "shutdown_ok" {
		t.Fatalf("lines[3] = %+v, want shutdown_ok", lines[3])
	}
}

func TestWorkerSendBeforeInitErrors(t *testing.T) {
	prov := &stubProvider{replies: []string{"unused"}}
	input := `{"type":"send","id":"s1","message":"hi"}` + "\n"

	w, out := newTestWorker(t, prov, input)
	w.Run()

	lines := decodeLines(t, out)
	if len(lines) != 1 || lines[0]["status"] != "error" {
		t.Fatalf("lines = %+v, want single error result", lines)
	}
}

func TestWorkerProtocolVersionMismatchMajorExits1(t *testing.T) {
	prov := &stubProvider{replies: []string{"unused"}}
	input := `{"type":"init","id":"i1","protocol_version":"2.0.0"}` + "\n"

	w, out := newTestWorker(t, prov, input)
	code := w.Run()
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 on major version mismatch", code)
	}
	lines := decodeLines(t, out)
	if len(lines) != 1 || lines[0]["error"] != "protocol_version_mismatch" {
		t.Fatalf("lines = %+v, want a single protocol_version_mismatch error", lines)
	}
}

// multiChunkProvider streams several content deltas per call, giving the
// event pump more than one event boundary to observe a queued cancel at.
type multiChunkProvider struct {
	deltas []string
}

func (m *multiChunkProvider) Name() string { return "multi" }

func (m *multiChunkProvider) Send(ctx context.Context, conv []wire.Message, defs []wire.ToolDefinition, overrides map[string]any) (*wire.Response, error) {
	return &wire.Response{HasChoice: true, Message: wire.NewAssistantMessage(strings.Join(m.deltas, ""), nil)}, nil
}

func (m *multiChunkProvider) Stream(ctx context.Context, conv []wire.Message, defs []wire.ToolDefinition, overrides map[string]any) (*provider.Stream, error) {
	chunks := make(chan wire.Chunk, len(m.deltas))
	for _, d := range m.deltas {
		chunks <- wire.Chunk{ContentDelta: d}
	}
	close(chunks)
	return provider.NewStream(chunks, func() error { return nil }), nil
}

func (m *multiChunkProvider) With(overrides map[string]any) provider.Provider { return m }

func (m *multiChunkProvider) Close() error { return nil }

func TestWorkerCancelQueuedForActiveSendStopsIt(t *testing.T) {
	prov := &multiChunkProvider{deltas: []string{"partial one ", "partial two ", "partial three"}}
	input := strings.Join([]string{
		`{"type":"init","id":"i1"}`,
		`{"type":"send","id":"s1","message":"go slow"}`,
		`{"type":"cancel","id":"c1","target_id":"s1"}`,
	}, "\n") + "\n"

	w, out := newTestWorker(t, prov, input)
	w.Run()

	lines := decodeLines(t, out)
	var result map[string]any
	for _, l := range lines {
		if l["type"] == "result" {
			result = l
		}
	}
	if result == nil {
		t.Fatalf("no result line among %+v", lines)
	}
	if result["status"] != "error" || result["error"] != "cancelled" {
		t.Fatalf("result = %+v, want status=error error=cancelled", result)
	}
}

func TestCancelBeforeActive(t *testing.T) {
	prov := &stubProvider{replies: []string{"fine"}}
	input := strings.Join([]string{
		`{"type":"init","id":"i1"}`,
		`{"type":"cancel","id":"c1","target_id":"never-sent"}`,
		`{"type":"send","id":"s1","message":"hi"}`,
	}, "\n") + "\n"

	w, out := newTestWorker(t, prov, input)
	w.Run()

	lines := decodeLines(t, out)
	var result map[string]any
	for _, l := range lines {
		if l["type"] == "result" {
			result = l
		}
	}
	if result == nil {
		t.Fatalf("no result line among %+v", lines)
	}
	if result["status"] != "ok" {
		t.Fatalf("result = %+v, want status=ok — a cancel for a send_id that never becomes active must be a no-op", result)
	}
}

func TestWorkerStatusReflectsSession(t *testing.T) {
	prov := &stubProvider{replies: []string{"hi"}}
	input := strings.Join([]string{
		`{"type":"init","id":"i1"}`,
		`{"type":"status","id":"st1"}`,
	}, "\n") + "\n"

	w, out := newTestWorker(t, prov, input)
	w.Run()
	lines := decodeLines(t, out)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[1]["type"] != "status_ok" || lines[1]["active"] != false {
		t.Fatalf("status = %+v, want status_ok active=false", lines[1])
	}
}
