package credential

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCredentialStringMasksToken(t *testing.T) {
	c := &Credential{AccessToken: "gho_abcdefghijklmnop", TokenType: "bearer", Scope: []string{"repo"}}
	s := c.String()
	if strings.Contains(s, "abcdefghijkl") {
		t.Fatalf("token leaked: %s", s)
	}
	if !strings.Contains(s, "scope=repo") {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestUnmarshalRejectsCorruptBlobs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "{{{"},
		{"missing token", `{"token_type":"bearer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.blob))
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestMarshalRoundTripKeepsExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &Credential{AccessToken: "abc", TokenType: "bearer", Scope: []string{"repo", "read:user"}, ExpiresAt: &exp}
	data, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.ExpiresAt == nil || !out.ExpiresAt.Equal(exp) {
		t.Fatalf("expiry lost: %v", out.ExpiresAt)
	}
	if !out.HasScope("read:user") || out.Expired(exp.Add(-time.Second)) || !out.Expired(exp) {
		t.Fatalf("unexpected scope/expiry behaviour: %+v", out)
	}
}

func TestStoreErrorUnwraps(t *testing.T) {
	err := Wrap("retrieve", "file", ErrNotFound)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound through StoreError, got %v", err)
	}
	if got := err.Error(); got != "retrieve credential (file): credential not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if Wrap("save", "file", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}
