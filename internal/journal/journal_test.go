package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xonecas/heddle/internal/wire"
)

func TestWriteAndLoadSessionRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects", "proj", "sessions", "s1.jsonl")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	meta := Meta{ID: "s1", Cwd: "/tmp/proj", Model: "gpt-5", Created: time.Now(), HeddleVersion: "0.1.0"}
	if err := j.WriteSessionMeta(meta); err != nil {
		t.Fatalf("WriteSessionMeta: %v", err)
	}

	sys := wire.NewTextMessage(wire.RoleSystem, "you are heddle")
	user := wire.NewTextMessage(wire.RoleUser, "hello")
	asst := wire.NewAssistantMessage("hi there", nil)

	for _, m := range []wire.Message{sys, user, asst} {
		if err := j.AppendMessage(m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	loaded, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d messages, want 3", len(loaded))
	}
	if loaded[0].Role != wire.RoleSystem || loaded[1].Role != wire.RoleUser || loaded[2].Role != wire.RoleAssistant {
		t.Fatalf("roles = %q, %q, %q, want system/user/assistant", loaded[0].Role, loaded[1].Role, loaded[2].Role)
	}
	if loaded[2].ContentOrEmpty() != "hi there" {
		t.Fatalf("assistant content = %q, want %q", loaded[2].ContentOrEmpty(), "hi there")
	}

	loadedMeta, err := LoadSessionMeta(path)
	if err != nil {
		t.Fatalf("LoadSessionMeta: %v", err)
	}
	if loadedMeta == nil || loadedMeta.ID != "s1" || loadedMeta.Model != "gpt-5" {
		t.Fatalf("loaded meta = %+v, want id=s1 model=gpt-5", loadedMeta)
	}
}

func TestLoadSessionMissingFileReturnsEmpty(t *testing.T) {
	messages, err := LoadSession(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("LoadSession on missing file = %v, want nil error", err)
	}
	if messages != nil {
		t.Fatalf("messages = %v, want nil", messages)
	}
}

func TestLoadSessionSkipsHeaderLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s2.jsonl")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := j.WriteSessionMeta(Meta{ID: "s2"}); err != nil {
		t.Fatalf("WriteSessionMeta: %v", err)
	}
	if err := j.AppendMessage(wire.NewTextMessage(wire.RoleUser, "only message")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	loaded, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d messages, want 1 (header line must be skipped)", len(loaded))
	}
}
