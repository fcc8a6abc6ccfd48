package headless

import (
	"encoding/json"
	"regexp"
	"strings"
)

// NormalizedError is the result of §4.7.2's error normalization: both an
// emitted worker event and the final result's error.
type NormalizedError struct {
	Error    string
	Code     string
	Provider string
	Details  map[string]any
}

var apiErrorPattern = regexp.MustCompile(`^(.+?)\s+API error\s+\((\d+)\):\s*([\s\S]*)$`)

var codeLabels = map[string]string{
	"provider_error": "Provider error",
	"tool_error":     "Tool error",
	"protocol_error": "Protocol error",
	"loop_detected":  "Doom loop detected",
	"timeout":        "Timeout",
}

// normalizeError implements §4.7.2 for an error surfacing out of the agent loop.
func normalizeError(err error) NormalizedError {
	if err == nil {
		return NormalizedError{Error: "unknown error"}
	}
	raw := err.Error()

	if m := apiErrorPattern.FindStringSubmatch(raw); m != nil {
		provider := strings.ToLower(m[1])
		rawDetails := m[3]

		var details map[string]any
		message := ""
		if err := json.Unmarshal([]byte(rawDetails), &details); err == nil {
			message = extractMessage(details)
		}
		if message == "" {
			trimmed := strings.TrimSpace(rawDetails)
			if trimmed != "" && details == nil {
				message = trimmed
			}
		}
		if message == "" {
			message = codeLabels["provider_error"]
		}
		if details == nil {
			details = map[string]any{"raw": rawDetails}
		}
		return NormalizedError{Error: message, Code: "provider_error", Provider: provider, Details: details}
	}

	if strings.Contains(raw, "API error") {
		return NormalizedError{Error: codeLabels["provider_error"], Code: "provider_error", Details: map[string]any{"raw": raw}}
	}

	return NormalizedError{Error: raw}
}

// extractMessage walks parsed details looking for .error.message, then
// .error (string), per §4.7.2's priority order.
func extractMessage(details map[string]any) string {
	errField, ok := details["error"]
	if !ok {
		return ""
	}
	switch v := errField.(type) {
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
	case string:
		return v
	}
	return ""
}
