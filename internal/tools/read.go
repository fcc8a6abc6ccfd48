package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xonecas/heddle/internal/wire"
)

type readArgs struct {
	File  string `json:"file"`
	Start int    `json:"start,omitempty"`
	End   int    `json:"end,omitempty"`
}

// NewReadTool builds the default `read` tool, grounded on
// internal/mcptools/open.go's ReadHandler minus hashline tagging and
// LSP/tree-sitter hooks (out of scope) — keeping path validation and
// optional line-range selection.
func NewReadTool(root string, tracker *FileReadTracker) Tool {
	return Tool{
		Definition: wire.ToolDefinition{
			Name:        "read",
			Description: "Reads a file and returns its content. Use start/end for a 1-indexed inclusive line range.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file":  {"type": "string", "description": "Path to the file to read"},
					"start": {"type": "integer", "description": "Optional starting line number (1-indexed, inclusive)"},
					"end":   {"type": "integer", "description": "Optional ending line number (1-indexed, inclusive)"}
				},
				"required": ["file"]
			}`),
		},
		Handle: func(_ context.Context, arguments json.RawMessage) (string, error) {
			var args readArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if args.File == "" {
				return "", fmt.Errorf("file path cannot be empty")
			}
			absPath, err := validatePath(root, args.File)
			if err != nil {
				return "", err
			}
			content, err := os.ReadFile(absPath)
			if err != nil {
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			tracker.MarkRead(absPath)

			selected, startLine, err := extractRange(string(content), args.Start, args.End)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Read %s (from line %d):\n\n%s", args.File, startLine, selected), nil
		},
	}
}

// extractRange returns the selected content and the 1-indexed start line.
func extractRange(full string, start, end int) (string, int, error) {
	if start <= 0 && end <= 0 {
		return full, 1, nil
	}
	lines := strings.Split(full, "\n")
	if start <= 0 {
		start = 1
	}
	if start < 1 || start > len(lines) {
		return "", 0, fmt.Errorf("start line %d out of range (file has %d lines)", start, len(lines))
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", 0, fmt.Errorf("invalid range: start (%d) > end (%d)", start, end)
	}
	return strings.Join(lines[start-1:end], "\n"), start, nil
}
