package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/sdk/credential"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// pendingAttempt polls until the controller has an attempt awaiting its callback.
func pendingAttempt(t *testing.T, c *Controller) (redirectURI, state string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		a := c.current
		c.mu.Unlock()
		if a != nil {
			return a.redirectURI, a.pkce.State
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no pending attempt")
	return "", ""
}

func TestLogin_CompletesThroughListener(t *testing.T) {
	ex := &stubExchanger{cred: &credential.Credential{AccessToken: "abc", TokenType: "bearer", Scope: []string{"repo"}}}
	store := &memoryStore{}
	ctrl := newTestController(t, ex, store)
	out := &lockedBuffer{}

	go func() {
		redirectURI, state := pendingAttempt(t, ctrl)
		hitCallback(t, redirectURI, url.Values{"code": {"c"}, "state": {state}})
	}()

	res, err := ctrl.Login(context.Background(), &LoginOptions{NoBrowser: true, Out: out})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Credential.AccessToken != "abc" || store.stored() == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.Contains([]byte(out.String()), []byte("code_challenge=")) {
		t.Fatalf("authorization URL not printed:\n%s", out.String())
	}
}

func TestLogin_ManualPaste(t *testing.T) {
	ex := &stubExchanger{cred: &credential.Credential{AccessToken: "pasted", TokenType: "bearer"}}
	store := &memoryStore{}
	ctrl := newTestController(t, ex, store)

	prompt := func(string) (string, error) {
		redirectURI, state := pendingAttempt(t, ctrl)
		return fmt.Sprintf("%s?code=xyz&state=%s", redirectURI, url.QueryEscape(state)), nil
	}
	res, err := ctrl.Login(context.Background(), &LoginOptions{
		NoBrowser:   true,
		Out:         &lockedBuffer{},
		Prompt:      prompt,
		PromptDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Credential.AccessToken != "pasted" {
		t.Fatalf("unexpected result %+v", res)
	}
	if n := ex.calls.Load(); n != 1 {
		t.Fatalf("exchanger called %d times, want 1", n)
	}
}

func TestLogin_EmptyPasteKeepsWaiting(t *testing.T) {
	ex := &stubExchanger{cred: &credential.Credential{AccessToken: "abc", TokenType: "bearer"}}
	ctrl := newTestController(t, ex, &memoryStore{})

	prompted := make(chan struct{})
	prompt := func(string) (string, error) {
		close(prompted)
		return "", nil
	}
	go func() {
		<-prompted
		redirectURI, state := pendingAttempt(t, ctrl)
		hitCallback(t, redirectURI, url.Values{"code": {"c"}, "state": {state}})
	}()

	if _, err := ctrl.Login(context.Background(), &LoginOptions{
		NoBrowser:   true,
		Out:         &lockedBuffer{},
		Prompt:      prompt,
		PromptDelay: 10 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLogin_PastedMismatchFails(t *testing.T) {
	ex := &stubExchanger{}
	ctrl := newTestController(t, ex, &memoryStore{})

	prompt := func(string) (string, error) {
		redirectURI, _ := pendingAttempt(t, ctrl)
		return redirectURI + "?code=xyz&state=forged", nil
	}
	_, err := ctrl.Login(context.Background(), &LoginOptions{
		NoBrowser:   true,
		Out:         &lockedBuffer{},
		Prompt:      prompt,
		PromptDelay: 10 * time.Millisecond,
	})
	if !errors.Is(err, ghauth.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
	if ex.calls.Load() != 0 {
		t.Fatal("forged state must not reach the token endpoint")
	}
	if ExitCode(err) != 1 {
		t.Fatalf("exit code = %d", ExitCode(err))
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.current != nil {
		t.Fatal("failed login left a pending attempt")
	}
}

func TestExitCode_PortExhaustion(t *testing.T) {
	err := ghauth.NewAuthenticationError(ghauth.ErrNoPortAvailable, errors.New("ports 8765-8774"))
	if got := ExitCode(err); got != 13 {
		t.Fatalf("exit code = %d, want 13", got)
	}
	if !IsPortExhausted(fmt.Errorf("login: %w", err)) {
		t.Fatal("wrapped port exhaustion not recognised")
	}
}
