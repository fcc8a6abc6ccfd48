package headless

import (
	"fmt"
	"os"
	"strings"
)

// OwnProtocolVersion reads the sibling PROTOCOL_VERSION file (spec.md §6.5),
// honoring the HEDDLE_PROTOCOL_VERSION environment override used by tests.
func OwnProtocolVersion(path string) (string, error) {
	if v := os.Getenv("HEDDLE_PROTOCOL_VERSION"); v != "" {
		return v, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read PROTOCOL_VERSION: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
