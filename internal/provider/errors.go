package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// HttpError is a non-2xx response from the remote chat-completions endpoint
// (spec.md §7, *ProviderHttpError*). Its Error() string is the raw form
// normalized by internal/headless's error normalizer: "<Provider> API error
// (<status>): <body>".
type HttpError struct {
	Provider string // vendor identifier, lowercase
	Status   int
	Body     string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", capitalize(e.Provider), e.Status, e.Body)
}

func capitalize(s string) string {
	if s == "" {
		return "Provider"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// vendorFromURL extracts a short vendor identifier from a base URL's host,
// e.g. "https://api.openrouter.ai/v1" -> "openrouter". Falls back to the
// bare host, or "provider" if the URL doesn't parse.
func vendorFromURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "provider"
	}
	host := u.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "api.")
	host = strings.TrimPrefix(host, "www.")
	parts := strings.Split(host, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "provider"
	}
	return strings.ToLower(parts[0])
}
