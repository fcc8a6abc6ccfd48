package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xonecas/heddle/internal/filesearch"
	"github.com/xonecas/heddle/internal/wire"
)

type searchArgs struct {
	Pattern    string `json:"pattern"`
	MaxResults int    `json:"max_results,omitempty"`
}

const maxSearchResultsDefault = 200

// NewGlobTool builds the default `glob` tool: filename search, grounded on
// internal/filesearch/filesearch.go's filename-matching mode.
func NewGlobTool(root string) Tool {
	searcher, _ := filesearch.NewSearcher(root)
	return Tool{
		Definition: wire.ToolDefinition{
			Name:        "glob",
			Description: "Finds files whose path matches a regular expression pattern, respecting .gitignore.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern":     {"type": "string", "description": "Regular expression to match against file paths"},
					"max_results": {"type": "integer", "description": "Maximum number of results (default 200)"}
				},
				"required": ["pattern"]
			}`),
		},
		Handle: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args searchArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			results, err := searcher.Search(ctx, filesearch.Options{
				Pattern:    args.Pattern,
				RootDir:    root,
				MaxResults: maxResultsOrDefault(args.MaxResults),
			})
			if err != nil {
				return "", err
			}
			return formatFileResults(results), nil
		},
	}
}

// NewGrepTool builds the default `grep` tool: content search, grounded on
// internal/filesearch/filesearch.go's content-matching mode.
func NewGrepTool(root string) Tool {
	searcher, _ := filesearch.NewSearcher(root)
	return Tool{
		Definition: wire.ToolDefinition{
			Name:        "grep",
			Description: "Searches file contents for lines matching a regular expression pattern, respecting .gitignore.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern":     {"type": "string", "description": "Regular expression to match against line content"},
					"max_results": {"type": "integer", "description": "Maximum number of results (default 200)"}
				},
				"required": ["pattern"]
			}`),
		},
		Handle: func(ctx context.Context, arguments json.RawMessage) (string, error) {
			var args searchArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			results, err := searcher.Search(ctx, filesearch.Options{
				Pattern:       args.Pattern,
				ContentSearch: true,
				RootDir:       root,
				MaxResults:    maxResultsOrDefault(args.MaxResults),
			})
			if err != nil {
				return "", err
			}
			return formatContentResults(results), nil
		},
	}
}

func maxResultsOrDefault(n int) int {
	if n <= 0 {
		return maxSearchResultsDefault
	}
	return n
}

func formatFileResults(results []filesearch.Result) string {
	if len(results) == 0 {
		return "(no matches)"
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Path)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatContentResults(results []filesearch.Result) string {
	if len(results) == 0 {
		return "(no matches)"
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s:%d: %s\n", r.Path, r.Line, r.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
