package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xonecas/heddle/internal/wire"
)

type writeArgs struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// NewWriteTool builds the default `write` tool, in the same idiom as read
// and edit: validates the path, creates parent directories, writes the file.
func NewWriteTool(root string) Tool {
	return Tool{
		Definition: wire.ToolDefinition{
			Name:        "write",
			Description: "Writes content to a file, creating it (and parent directories) if needed, overwriting if it exists.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file":    {"type": "string", "description": "Path to the file to write"},
					"content": {"type": "string", "description": "Full file content"}
				},
				"required": ["file", "content"]
			}`),
		},
		Handle: func(_ context.Context, arguments json.RawMessage) (string, error) {
			var args writeArgs
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
			if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
				return "", fmt.Errorf("failed to create directories: %w", err)
			}
			if err := os.WriteFile(absPath, []byte(args.Content), 0600); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return fmt.Sprintf("Wrote %s (%d bytes)", args.File, len(args.Content)), nil
		},
	}
}
