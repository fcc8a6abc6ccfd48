package wire

import (
	"github.com/rs/zerolog/log"
)

// knownOverrideFields is the whitelist of per-call override fields the
// provider client accepts (§4.1). Anything else is dropped with a debug note.
var knownOverrideFields = map[string]bool{
	"model": true, "temperature": true, "max_tokens": true, "top_p": true,
	"seed": true, "frequency_penalty": true, "presence_penalty": true,
	"stop": true, "route": true, "models": true, "reasoning": true,
	"session_id": true, "response_format": true, "tool_choice": true,
	"plugins": true, "provider": true, "debug": true,
}

var reasoningEffortValues = map[string]bool{
	"xhigh": true, "high": true, "medium": true, "low": true, "minimal": true, "none": true,
}

var reasoningSummaryValues = map[string]bool{
	"auto": true, "concise": true, "detailed": true,
}

var routeValues = map[string]bool{"fallback": true, "sort": true}

// ValidateOverrides filters a raw per-call overrides object down to the
// known, well-typed fields the provider client honors. Known fields are
// filtered, never coerced: a field of the wrong shape is dropped, not
// converted. Unknown top-level fields are dropped with a debug log line.
func ValidateOverrides(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if !knownOverrideFields[k] {
			log.Debug().Str("field", k).Msg("provider: dropping unknown override field")
			continue
		}
		if ok, value := validateOverrideField(k, v); ok {
			out[k] = value
		} else {
			log.Debug().Str("field", k).Msg("provider: dropping malformed override field")
		}
	}
	return out
}

func validateOverrideField(name string, v any) (bool, any) {
	switch name {
	case "model", "session_id":
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		if name == "session_id" && len(s) > 128 {
			return false, nil
		}
		return true, s
	case "temperature":
		f, ok := asNumber(v)
		if !ok || f < 0 || f > 2 {
			return false, nil
		}
		return true, f
	case "max_tokens":
		return validatePositiveInt(v)
	case "top_p", "seed", "frequency_penalty", "presence_penalty":
		f, ok := asNumber(v)
		if !ok {
			return false, nil
		}
		return true, f
	case "stop":
		return validateStop(v)
	case "route":
		s, ok := v.(string)
		if !ok || !routeValues[s] {
			return false, nil
		}
		return true, s
	case "models":
		return validateStringList(v)
	case "reasoning":
		return validateReasoning(v)
	case "response_format", "tool_choice", "plugins", "provider", "debug":
		switch v.(type) {
		case map[string]any, []any:
			return true, v
		default:
			return false, nil
		}
	}
	return false, nil
}

func validatePositiveInt(v any) (bool, any) {
	f, ok := asNumber(v)
	if !ok || f != float64(int64(f)) || f <= 0 {
		return false, nil
	}
	return true, int(f)
}

func validateStop(v any) (bool, any) {
	switch val := v.(type) {
	case string:
		return true, val
	case []any:
		strs := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return false, nil
			}
			strs = append(strs, s)
		}
		return true, strs
	}
	return false, nil
}

func validateStringList(v any) (bool, any) {
	list, ok := v.([]any)
	if !ok {
		return false, nil
	}
	strs := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return false, nil
		}
		strs = append(strs, s)
	}
	return true, strs
}

func validateReasoning(v any) (bool, any) {
	obj, ok := v.(map[string]any)
	if !ok {
		return false, nil
	}
	result := map[string]any{}
	if effort, ok := obj["effort"].(string); ok && reasoningEffortValues[effort] {
		result["effort"] = effort
	}
	if ok, mt := validatePositiveInt(obj["max_tokens"]); ok && obj["max_tokens"] != nil {
		result["max_tokens"] = mt
	}
	if excluded, ok := obj["excluded"].(bool); ok {
		result["excluded"] = excluded
	}
	if summary, ok := obj["summary"].(string); ok && reasoningSummaryValues[summary] {
		result["summary"] = summary
	}
	if len(result) == 0 {
		return false, nil
	}
	return true, result
}

func asNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// MergeShallow merges overlay into base (top-level keys only), overlay wins.
// Used for the request-body merge order of §4.1: base requestParams ← overrides.
func MergeShallow(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
