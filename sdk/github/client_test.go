package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/router-for-me/gitpress/sdk/credential"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("tok-123", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())), srv
}

func TestClient_SendsStandardHeaders(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		want := map[string]string{
			"Authorization":        "Bearer tok-123",
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
			"User-Agent":           "gitpress-test",
		}
		for k, v := range want {
			if got := r.Header.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if r.URL.Path != "/user" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Used", "1")
		w.Header().Set("X-RateLimit-Reset", "1900000000")
		w.Header().Set("X-RateLimit-Resource", "core")
		_, _ = w.Write([]byte(`{"id":1,"login":"octocat","name":"The Octocat"}`))
	})
	WithUserAgent("gitpress-test")(c)

	if c.RateLimit() != nil {
		t.Fatal("no rate limit snapshot expected before the first call")
	}
	u, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.Login != "octocat" || u.ID != 1 {
		t.Fatalf("unexpected user %+v", u)
	}

	rl := c.RateLimit()
	if rl == nil || rl.Limit != 5000 || rl.Remaining != 4999 || rl.Used != 1 || rl.Resource != "core" {
		t.Fatalf("unexpected rate limit %+v", rl)
	}
	if !rl.ResetAt.Equal(time.Unix(1900000000, 0)) {
		t.Fatalf("ResetAt = %v", rl.ResetAt)
	}
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
		kind   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Bad credentials"}`, ErrUnauthenticated, KindUnauthenticated},
		{"forbidden", http.StatusForbidden, `{"message":"Resource not accessible by integration"}`, ErrForbidden, KindForbidden},
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, ErrNotFound, KindNotFound},
		{"conflict", http.StatusConflict, `{"message":"is at abc but expected def"}`, ErrConflict, KindConflict},
		{"validation naming sha", http.StatusUnprocessableEntity, `{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`, ErrConflict, KindConflict},
		{"validation other", http.StatusUnprocessableEntity, `{"message":"Validation Failed","errors":[{"field":"name","code":"custom"}]}`, ErrRequestFailed, KindRequestFailed},
		{"server error", http.StatusBadGateway, `oops`, ErrRequestFailed, KindRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CurrentUser(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Kind != tt.kind || apiErr.StatusCode != tt.status || string(apiErr.Body) != tt.body {
				t.Fatalf("unexpected error %+v", apiErr)
			}
		})
	}
}

func TestClient_RateLimitedCarriesResetAndDoesNotRetry(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(10 * time.Minute).Unix()
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("a rate-limited 403 must not be reported as forbidden")
	}
	apiErr, _ := AsAPIError(err)
	if !apiErr.ResetAt.Equal(time.Unix(reset, 0)) {
		t.Fatalf("ResetAt = %v, want %v", apiErr.ResetAt, time.Unix(reset, 0))
	}
	if d := apiErr.RetryAfter(time.Now()); d <= 0 || d > 10*time.Minute {
		t.Fatalf("RetryAfter = %v", d)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server saw %d calls, want exactly 1", got)
	}
	if rl := c.RateLimit(); rl == nil || rl.Remaining != 0 {
		t.Fatalf("snapshot not updated: %+v", rl)
	}
}

func TestClient_RateLimitFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		min     time.Duration
		max     time.Duration
	}{
		{"429 with retry-after", http.StatusTooManyRequests, map[string]string{"Retry-After": "30"}, 29 * time.Second, 31 * time.Second},
		{"secondary limit 403", http.StatusForbidden, map[string]string{"Retry-After": "5"}, 4 * time.Second, 6 * time.Second},
		{"429 without hints", http.StatusTooManyRequests, nil, 59 * time.Second, 61 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			})
			c.now = func() time.Time { return now }

			_, err := c.CurrentUser(context.Background())
			apiErr, ok := AsAPIError(err)
			if !ok || apiErr.Kind != KindRateLimited {
				t.Fatalf("expected rate limited error, got %v", err)
			}
			if d := apiErr.ResetAt.Sub(now); d < tt.min || d > tt.max {
				t.Fatalf("reset in %v, want between %v and %v", d, tt.min, tt.max)
			}
		})
	}
}

type staticStore struct {
	cred *credential.Credential
	err  error
}

func (s staticStore) Save(context.Context, *credential.Credential) error { return nil }
func (s staticStore) Retrieve(context.Context) (*credential.Credential, error) {
	return s.cred, s.err
}
func (s staticStore) Delete(context.Context) error { return nil }
func (s staticStore) Backend() string              { return "static" }

func TestFromStore(t *testing.T) {
	t.Parallel()

	_, err := FromStore(context.Background(), staticStore{err: credential.Wrap("retrieve", "static", credential.ErrNotFound)})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without a credential, got %v", err)
	}

	past := time.Now().Add(-time.Hour)
	_, err = FromStore(context.Background(), staticStore{cred: &credential.Credential{AccessToken: "x", ExpiresAt: &past}})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for an expired credential, got %v", err)
	}

	denied := credential.Wrap("retrieve", "static", credential.ErrAccessDenied)
	if _, err = FromStore(context.Background(), staticStore{err: denied}); !errors.Is(err, credential.ErrAccessDenied) {
		t.Fatalf("expected vault error to pass through, got %v", err)
	}

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"login":"me"}`))
	}))
	defer srv.Close()
	c, err := FromStore(context.Background(), staticStore{cred: &credential.Credential{AccessToken: "abc", TokenType: "bearer"}}, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if _, err = c.CurrentUser(context.Background()); err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if auth != "Bearer abc" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestParseLinkPages(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Link", `<https://api.github.com/user/repos?page=3&per_page=10>; rel="next", <https://api.github.com/user/repos?page=7&per_page=10>; rel="last"`)
	next, last := parseLinkPages(h)
	if next != 3 || last != 7 {
		t.Fatalf("next=%d last=%d", next, last)
	}
	if n, l := parseLinkPages(http.Header{}); n != 0 || l != 0 {
		t.Fatalf("empty header gave next=%d last=%d", n, l)
	}
}
