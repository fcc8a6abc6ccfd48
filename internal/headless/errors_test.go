package headless

import (
	"errors"
	"testing"
)

func TestNormalizeErrorExtractsProviderAndMessage(t *testing.T) {
	err := errors.New(`openrouter API error (500): {"error":{"message":"rate limited"}}`)
	got := normalizeError(err)
	if got.Code != "provider_error" {
		t.Fatalf("Code = %q, want provider_error", got.Code)
	}
	if got.Provider != "openrouter" {
		t.Fatalf("Provider = %q, want openrouter", got.Provider)
	}
	if got.Error != "rate limited" {
		t.Fatalf("Error = %q, want %q", got.Error, "rate limited")
	}
}

func TestNormalizeErrorStringErrorField(t *testing.T) {
	err := errors.New(`zen API error (400): {"error":"bad request"}`)
	got := normalizeError(err)
	if got.Error != "bad request" {
		t.Fatalf("Error = %q, want %q", got.Error, "bad request")
	}
}

func TestNormalizeErrorUnparsableDetailsFallsBackToRaw(t *testing.T) {
	err := errors.New(`openrouter API error (502): upstream is on fire`)
	got := normalizeError(err)
	if got.Error != "upstream is on fire" {
		t.Fatalf("Error = %q, want raw detail string", got.Error)
	}
}

func TestNormalizeErrorNonAPIErrorPassesThrough(t *testing.T) {
	err := errors.New("connection reset by peer")
	got := normalizeError(err)
	if got.Error != "connection reset by peer" {
		t.Fatalf("Error = %q, want original message unchanged", got.Error)
	}
	if got.Code != "" {
		t.Fatalf("Code = %q, want empty for a non-API error", got.Code)
	}
}
