package misc

import "testing"

func TestParseOAuthCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    *OAuthCallback
		wantErr bool
	}{
		{"empty", "   ", nil, false},
		{"full url", "http://localhost:8765/oauth/callback?code=abc&state=xyz", &OAuthCallback{Code: "abc", State: "xyz"}, false},
		{"host relative", "localhost:8765/oauth/callback?code=abc&state=xyz", &OAuthCallback{Code: "abc", State: "xyz"}, false},
		{"bare query", "?code=abc&state=xyz", &OAuthCallback{Code: "abc", State: "xyz"}, false},
		{"bare pairs", "code=abc&state=xyz", &OAuthCallback{Code: "abc", State: "xyz"}, false},
		{"fragment", "http://localhost/oauth/callback#code=abc&state=xyz", &OAuthCallback{Code: "abc", State: "xyz"}, false},
		{"provider error", "http://localhost/oauth/callback?error=access_denied&error_description=denied&state=s", &OAuthCallback{State: "s", Error: "access_denied", ErrorDescription: "denied"}, false},
		{"description only", "?error_description=nope", &OAuthCallback{Error: "nope"}, false},
		{"encoded whitespace kept", "?code=abc&state=%20xyz%09", &OAuthCallback{Code: "abc", State: " xyz\t"}, false},
		{"no code", "http://localhost/oauth/callback?state=xyz", nil, true},
		{"garbage", "not a url", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOAuthCallback(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
