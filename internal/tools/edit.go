package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xonecas/heddle/internal/wire"
)

type editArgs struct {
	File       string `json:"file"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// NewEditTool builds the default `edit` tool, grounded on
// internal/mcptools/edit.go's exact-match discipline: you must Read a file
// before editing it, and old_string must match uniquely unless replace_all
// is set. Dropped from the teacher: hashline anchors, fuzzy matching
// (explicit Non-goal, spec.md §1), and LSP/tree-sitter hooks.
func NewEditTool(root string, tracker *FileReadTracker) Tool {
	return Tool{
		Definition: wire.ToolDefinition{
			Name: "edit",
			Description: `Replaces old_string with new_string in a file. You MUST Read the file first.
old_string must match exactly once unless replace_all is set, in which case every occurrence is replaced.
If old_string is empty, new_string is written to a newly created file (fails if the file already exists).`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file":        {"type": "string", "description": "Path to the file to edit"},
					"old_string":  {"type": "string", "description": "Exact text to replace; empty to create a new file"},
					"new_string":  {"type": "string", "description": "Replacement text"},
					"replace_all": {"type": "boolean", "description": "Replace every occurrence instead of requiring exactly one"}
				},
				"required": ["file", "old_string", "new_string"]
			}`),
		},
		Handle: func(_ context.Context, arguments json.RawMessage) (string, error) {
			var args editArgs
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

			if args.OldString == "" {
				return handleCreate(absPath, args.File, args.NewString)
			}

			if !tracker.WasRead(absPath) {
				return "", fmt.Errorf("you must Read %s before editing it", args.File)
			}
			return applyEdit(absPath, args)
		},
	}
}

func handleCreate(absPath, displayPath, content string) (string, error) {
	if _, err := os.Stat(absPath); err == nil {
		return "", fmt.Errorf("file already exists: %s (use old_string to modify it)", displayPath)
	}
	if err := os.WriteFile(absPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	return fmt.Sprintf("Created %s (%d bytes)", displayPath, len(content)), nil
}

func applyEdit(absPath string, args editArgs) (string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	original := string(content)

	count := strings.Count(original, args.OldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in %s", args.File)
	}
	if count > 1 && !args.ReplaceAll {
		return "", fmt.Errorf("old_string matches %d times in %s; set replace_all or give a more specific match", count, args.File)
	}

	var updated string
	if args.ReplaceAll {
		updated = strings.ReplaceAll(original, args.OldString, args.NewString)
	} else {
		updated = strings.Replace(original, args.OldString, args.NewString, 1)
	}

	if err := os.WriteFile(absPath, []byte(updated), 0600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Edited %s (%d replacement(s))", args.File, count), nil
}
