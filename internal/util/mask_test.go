package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/router-for-me/gitpress/internal/config"
)

func TestHideAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"gho_1234567890abcdef", "gho_...cdef"},
		{"abcdefg", "ab...fg"},
		{"abc", "a...c"},
		{"ab", "ab"},
	}
	for _, tt := range tests {
		if got := HideAPIKey(tt.in); got != tt.want {
			t.Errorf("HideAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskAuthorizationHeader(t *testing.T) {
	t.Parallel()

	if got := MaskAuthorizationHeader("Bearer gho_1234567890abcdef"); got != "Bearer gho_...cdef" {
		t.Fatalf("MaskAuthorizationHeader() = %q", got)
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	t.Parallel()

	raw := "code=abcdef123456&state=0123456789abcdef&page=2"
	got := MaskSensitiveQuery(raw)
	if strings.Contains(got, "abcdef123456") || strings.Contains(got, "0123456789abcdef") {
		t.Fatalf("sensitive values leaked: %q", got)
	}
	if !strings.Contains(got, "page=2") {
		t.Fatalf("non-sensitive parameter altered: %q", got)
	}
	if MaskSensitiveQuery("page=1&per_page=30") != "page=1&per_page=30" {
		t.Fatal("query without secrets should be returned unchanged")
	}
}

func TestNewHTTPClient_AppliesTimeoutAndProxy(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(&config.SDKConfig{ProxyURL: "http://127.0.0.1:3128", RequestTimeoutSeconds: 7})
	if client.Timeout.Seconds() != 7 {
		t.Fatalf("timeout = %v, want 7s", client.Timeout)
	}
	if client.Transport == nil {
		t.Fatal("expected proxy transport to be installed")
	}

	plain := NewHTTPClient(&config.SDKConfig{})
	if plain.Transport != nil {
		t.Fatal("expected default transport without proxy")
	}
}

func TestPrintSSHTunnelInstructions(t *testing.T) {
	var buf bytes.Buffer
	PrintSSHTunnelInstructions(&buf, 8765)
	if !strings.Contains(buf.String(), "-L 8765:127.0.0.1:8765") {
		t.Fatalf("missing port forward in output: %q", buf.String())
	}
}
