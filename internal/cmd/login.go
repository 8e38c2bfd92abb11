package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	sdkAuth "github.com/router-for-me/gitpress/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser prints the authorization URL instead of opening a browser.
	NoBrowser bool

	// CallbackPort overrides the preferred loopback callback port when set (>0).
	CallbackPort int

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)

	// Spinner shows progress while waiting for GitHub. Disabled for non-terminals.
	Spinner bool
}

// DefaultPrompt reads one line from stdin.
func DefaultPrompt() func(prompt string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) (string, error) {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

// DoLogin runs the interactive GitHub authorization and stores the credential.
// Port exhaustion is reported as an ExitError with code 13.
func DoLogin(ctx context.Context, s *Session, options *LoginOptions) error {
	if options == nil {
		options = &LoginOptions{}
	}

	var spin *progress
	var waiting func()
	if options.Spinner {
		spin = newProgress(s.Out)
		cancel := s.Controller.Subscribe(spin.observe)
		defer cancel()
		defer spin.stop()
		waiting = spin.waiting
	}

	prompt := options.Prompt
	if prompt != nil && spin != nil {
		inner := prompt
		prompt = func(p string) (string, error) {
			spin.stop()
			return inner(p)
		}
	}

	result, err := s.Controller.Login(ctx, &sdkAuth.LoginOptions{
		NoBrowser:    options.NoBrowser,
		CallbackPort: options.CallbackPort,
		Prompt:       prompt,
		Out:          s.Out,
		Waiting:      waiting,
	})
	if spin != nil {
		spin.stop()
	}
	if err != nil {
		log.Error(ghauth.GetUserFriendlyMessage(err))
		return &ExitError{Code: sdkAuth.ExitCode(err), Err: fmt.Errorf("GitHub authorization failed: %w", err)}
	}

	_, _ = fmt.Fprintf(s.Out, "%s Signed in to GitHub (scopes: %s). Credential stored in %s.\n",
		text.FgGreen.Sprint("✓"), strings.Join(result.Credential.Scope, ", "), s.Store.Backend())
	return nil
}

// progress drives a spinner from controller state changes.
type progress struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
	stopped bool
}

func newProgress(w io.Writer) *progress {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &progress{spinner: sp}
}

func (p *progress) observe(snap sdkAuth.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	switch snap.State {
	case sdkAuth.StateExchanging:
		p.spinner.Suffix = " Completing sign-in..."
		p.spinner.Start()
	case sdkAuth.StateAuthorized, sdkAuth.StateFailed, sdkAuth.StateIdle:
		p.spinner.Stop()
	}
}

func (p *progress) waiting() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.spinner.Suffix = " Waiting for GitHub in your browser..."
	p.spinner.Start()
}

func (p *progress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.spinner.Stop()
}

// DoLogout removes the stored credential.
func DoLogout(ctx context.Context, s *Session) error {
	if err := s.Controller.SignOut(ctx); err != nil {
		return fmt.Errorf("%s: %w", apiErrorMessage(err), err)
	}
	_, _ = fmt.Fprintln(s.Out, "Signed out of GitHub.")
	return nil
}
