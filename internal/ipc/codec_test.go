package ipc

import "testing"

func TestDecodeRequestErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"invalid json", `{not json`, "Invalid JSON"},
		{"not an object", `"just a string"`, "Expected JSON object"},
		{"missing type", `{"id":"1"}`, "Missing 'type' field"},
		{"missing id", `{"type":"send"}`, "Missing 'id' field"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DecodeRequest([]byte(c.line))
			if got.OK {
				t.Fatalf("DecodeRequest(%q).OK = true, want false", c.line)
			}
			if got.Error != c.want {
				t.Fatalf("DecodeRequest(%q).Error = %q, want %q", c.line, got.Error, c.want)
			}
		})
	}
}

func TestDecodeRequestOK(t *testing.T) {
	got := DecodeRequest([]byte(`{"type":"send","id":"abc","message":"hi"}`))
	if !got.OK {
		t.Fatalf("DecodeRequest = %+v, want OK", got)
	}
	if got.Request.Type != RequestSend || got.Request.ID != "abc" || got.Request.Message != "hi" {
		t.Fatalf("Request = %+v, want type=send id=abc message=hi", got.Request)
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		own, requested string
		want           VersionCompat
	}{
		{"1.2.3", "1.2.3", VersionExact},
		{"1.2.3", "1.2.4", VersionCompatiblePatch},
		{"1.2.3", "1.3.3", VersionCompatibleWarning},
		{"1.2.3", "2.2.3", VersionIncompatible},
	}
	for _, c := range cases {
		got, err := CompareVersions(c.own, c.requested)
		if err != nil {
			t.Fatalf("CompareVersions(%q, %q) error: %v", c.own, c.requested, err)
		}
		if got != c.want {
			t.Fatalf("CompareVersions(%q, %q) = %v, want %v", c.own, c.requested, got, c.want)
		}
	}
}

func TestCompareVersionsMalformed(t *testing.T) {
	if _, err := CompareVersions("1.2.3", "not-a-version"); err == nil {
		t.Fatalf("CompareVersions with malformed requested version: want error, got nil")
	}
}
