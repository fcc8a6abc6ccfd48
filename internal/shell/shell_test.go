package shell

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecStreamCapturesStdout(t *testing.T) {
	sh := New(t.TempDir(), nil)
	var stdout, stderr bytes.Buffer
	err := sh.ExecStream(context.Background(), "echo hi", &stdout, &stderr)
	if err != nil {
		t.Fatalf("ExecStream: %v", err)
	}
	if stdout.String() != "hi\n" {
		t.Fatalf("stdout = %q, want %q", stdout.String(), "hi\n")
	}
}

func TestExecStreamPersistsCwdAcrossCalls(t *testing.T) {
	root := t.TempDir()
	sh := New(root, nil)
	var out, errBuf bytes.Buffer
	if err := sh.ExecStream(context.Background(), "mkdir sub && cd sub", &out, &errBuf); err != nil {
		t.Fatalf("ExecStream(mkdir+cd): %v", err)
	}
	out.Reset()
	if err := sh.ExecStream(context.Background(), "pwd", &out, &errBuf); err != nil {
		t.Fatalf("ExecStream(pwd): %v", err)
	}
	if got := strings.TrimSpace(out.String()); filepath.Base(got) != "sub" {
		t.Fatalf("pwd = %q, want the sub directory entered by the previous call", got)
	}
}

func TestExecStreamClampsCdOutsideRoot(t *testing.T) {
	root := t.TempDir()
	sh := New(root, nil)
	var out, errBuf bytes.Buffer
	if err := sh.ExecStream(context.Background(), "cd /", &out, &errBuf); err != nil {
		t.Fatalf("ExecStream(cd /): %v", err)
	}
	if errBuf.String() == "" {
		t.Fatalf("expected a clamp warning on stderr when cd escapes the session root")
	}
}

func TestExecStreamBlocksBannedCommand(t *testing.T) {
	sh := New(t.TempDir(), DefaultBlockFuncs())
	var out, errBuf bytes.Buffer
	err := sh.ExecStream(context.Background(), "curl http://example.com", &out, &errBuf)
	if err == nil {
		t.Fatalf("ExecStream(curl): want an error, got nil")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("ExitCode(nil) != 0")
	}
	sh := New(t.TempDir(), nil)
	var out, errBuf bytes.Buffer
	err := sh.ExecStream(context.Background(), "exit 7", &out, &errBuf)
	if ExitCode(err) != 7 {
		t.Fatalf("ExitCode(%v) = %d, want 7", err, ExitCode(err))
	}
}
