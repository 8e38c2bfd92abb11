package github

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

var base64URLPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestGeneratePKCECodes_Shape(t *testing.T) {
	t.Parallel()

	codes, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes: %v", err)
	}
	if len(codes.CodeVerifier) < 43 || len(codes.CodeVerifier) > 128 {
		t.Fatalf("verifier length %d outside RFC 7636 bounds", len(codes.CodeVerifier))
	}
	if len(codes.CodeVerifier) != 128 {
		t.Fatalf("expected 128 char verifier, got %d", len(codes.CodeVerifier))
	}
	if len(codes.State) != 43 {
		t.Fatalf("expected 43 char state, got %d", len(codes.State))
	}
	for name, v := range map[string]string{"verifier": codes.CodeVerifier, "challenge": codes.CodeChallenge, "state": codes.State} {
		if !base64URLPattern.MatchString(v) {
			t.Fatalf("%s %q is not unpadded base64url", name, v)
		}
	}
}

func TestGeneratePKCECodes_ChallengeIsS256OfVerifier(t *testing.T) {
	t.Parallel()

	codes, err := GeneratePKCECodes()
	if err != nil {
		t.Fatalf("GeneratePKCECodes: %v", err)
	}
	sum := sha256.Sum256([]byte(codes.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if codes.CodeChallenge != want {
		t.Fatalf("challenge = %q, want %q", codes.CodeChallenge, want)
	}
	if !VerifyChallenge(codes.CodeVerifier, codes.CodeChallenge) {
		t.Fatal("VerifyChallenge rejected a matching pair")
	}
	if VerifyChallenge(codes.CodeVerifier+"x", codes.CodeChallenge) {
		t.Fatal("VerifyChallenge accepted a different verifier")
	}
}

func TestGenerateCodeChallenge_RFC7636Vector(t *testing.T) {
	t.Parallel()

	// Appendix B of RFC 7636.
	got := GenerateCodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
	if got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM" {
		t.Fatalf("unexpected challenge %q", got)
	}
}

func TestGeneratePKCECodes_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 200)
	for i := 0; i < 100; i++ {
		codes, err := GeneratePKCECodes()
		if err != nil {
			t.Fatalf("GeneratePKCECodes: %v", err)
		}
		if codes.State == codes.CodeVerifier || codes.State == codes.CodeChallenge {
			t.Fatal("state must be drawn independently of the verifier")
		}
		for _, v := range []string{codes.CodeVerifier, codes.State} {
			if _, dup := seen[v]; dup {
				t.Fatalf("duplicate value %q after %d rounds", v, i)
			}
			seen[v] = struct{}{}
		}
	}
}

func TestStatesEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "abcd", false},
		{"", "", true},
		{"abc", "ABC", false},
	}
	for _, tt := range tests {
		if got := StatesEqual(tt.a, tt.b); got != tt.want {
			t.Errorf("StatesEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPKCECodesStringHidesVerifier(t *testing.T) {
	codes := &PKCECodes{CodeVerifier: "secret-verifier", CodeChallenge: "chal", State: "secret-state"}
	s := codes.String()
	if regexp.MustCompile(`secret`).MatchString(s) {
		t.Fatalf("String leaked secrets: %s", s)
	}
}
