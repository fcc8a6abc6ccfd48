package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validatePath resolves file relative to root and ensures the result stays
// within root, rejecting path traversal. Grounded on the teacher's
// internal/mcptools/open.go and internal/mcptools/helpers.go validatePath.
func validatePath(root, file string) (string, error) {
	absPath := file
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(root, file)
	}
	absPath = filepath.Clean(absPath)

	relPath, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("access denied: path outside working directory")
	}
	return absPath, nil
}

func toolError(format string, args ...any) string {
	return "Error: " + fmt.Sprintf(format, args...)
}
