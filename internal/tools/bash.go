package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xonecas/heddle/internal/shell"
	"github.com/xonecas/heddle/internal/wire"
)

type bashArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"` // seconds, default defaultTimeoutSec
}

const (
	maxOutputChars    = 30000
	maxTimeoutSec     = 600
	defaultTimeoutSec = 60
)

// NewBashTool builds the default `bash` tool: an in-process POSIX shell with
// persistent cwd/env across calls, grounded on internal/shell/shell.go and
// internal/mcptools/shell.go's timeout-capping and output-truncation. Dropped
// from the teacher: cwd snapshot/delta tracking for undo (internal/delta is
// out of scope — no undo surface in this spec).
func NewBashTool(root string) Tool {
	sh := shell.New(root, shell.DefaultBlockFuncs())
	return Tool{
		Definition: wire.ToolDefinition{
			Name: "bash",
			Description: `Executes a shell command in an in-process POSIX interpreter.
Commands run inside the session's working directory. Shell state (cwd, env vars) persists across calls.
Dangerous commands (network, sudo, package managers, system modification) are blocked.`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "description": "The shell command to execute"},
					"timeout": {"type": "integer", "description": "Timeout in seconds (default 60, max 600)"}
				},
				"required": ["command"]
			}`),
		},
		Handle: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args bashArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if args.Command == "" {
				return "", fmt.Errorf("command is required")
			}

			timeout := defaultTimeoutSec
			if args.Timeout > 0 {
				timeout = args.Timeout
			}
			if timeout > maxTimeoutSec {
				timeout = maxTimeoutSec
			}

			execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()

			var stdout, stderr bytes.Buffer
			execErr := sh.ExecStream(execCtx, args.Command, &stdout, &stderr)
			exitCode := shell.ExitCode(execErr)

			output := formatOutput(stdout.String(), stderr.String(), exitCode, execCtx.Err())
			if output == "" {
				output = "(no output)\n"
			}
			if len([]rune(output)) > maxOutputChars {
				output = truncateMiddle(output, maxOutputChars)
			}
			return output, nil
		},
	}
}

func formatOutput(stdout, stderr string, exitCode int, ctxErr error) string {
	var b strings.Builder
	if stdout != "" {
		b.WriteString(stdout)
		if !strings.HasSuffix(stdout, "\n") {
			b.WriteByte('\n')
		}
	}
	if stderr != "" {
		b.WriteString(stderr)
		if !strings.HasSuffix(stderr, "\n") {
			b.WriteByte('\n')
		}
	}
	if ctxErr != nil {
		b.WriteString("[timed out]\n")
	}
	if exitCode != 0 {
		fmt.Fprintf(&b, "[exit code: %d]\n", exitCode)
	}
	return b.String()
}

func truncateMiddle(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	half := maxChars / 2
	return string(runes[:half]) + "\n\n... [truncated] ...\n\n" + string(runes[len(runes)-half:])
}
