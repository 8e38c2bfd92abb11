package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/internal/browser"
	"github.com/router-for-me/gitpress/internal/util"
	log "github.com/sirupsen/logrus"
)

const defaultPromptDelay = 15 * time.Second

type waitOutcome struct {
	result *AuthResult
	err    error
}

// Login runs one interactive authorization: it begins an attempt, sends the user to
// GitHub, then waits for either the loopback redirect or a pasted callback URL.
// Any error leaves the controller without a pending attempt.
func (c *Controller) Login(ctx context.Context, opts *LoginOptions) (result *AuthResult, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &LoginOptions{}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.CallbackPort > 0 {
		c.mu.Lock()
		c.callbackPort = opts.CallbackPort
		c.mu.Unlock()
	}

	authURL, err := c.BeginAuthorization(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			c.Abandon()
		}
	}()

	port := c.Snapshot().Port
	presentAuthURL(out, authURL, port, opts.NoBrowser)
	_, _ = fmt.Fprintln(out, "Waiting for GitHub authorization callback...")
	if opts.Waiting != nil {
		opts.Waiting()
	}

	waitCh := make(chan waitOutcome, 1)
	go func() {
		res, errWait := c.Wait(ctx, c.timeout)
		waitCh <- waitOutcome{res, errWait}
	}()

	var promptC <-chan time.Time
	if opts.Prompt != nil {
		delay := opts.PromptDelay
		if delay <= 0 {
			delay = defaultPromptDelay
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		promptC = timer.C
	}

	// The prompt reads stdin on its own goroutine so a browser redirect that arrives
	// while the user is typing still completes the login.
	var inputCh chan string
	var promptErrCh chan error

	for {
		select {
		case o := <-waitCh:
			return o.result, o.err
		case <-promptC:
			promptC = nil
			inputCh = make(chan string, 1)
			promptErrCh = make(chan error, 1)
			go func() {
				input, errPrompt := opts.Prompt("Paste the GitHub callback URL (or press Enter to keep waiting): ")
				if errPrompt != nil {
					promptErrCh <- errPrompt
					return
				}
				inputCh <- input
			}()
		case errPrompt := <-promptErrCh:
			promptErrCh = nil
			inputCh = nil
			log.Debugf("callback prompt closed: %v", errPrompt)
		case input := <-inputCh:
			inputCh = nil
			promptErrCh = nil
			if strings.TrimSpace(input) == "" {
				continue
			}
			res, errSubmit := c.SubmitCallbackURL(ctx, input)
			if errSubmit != nil {
				return nil, errSubmit
			}
			return res, nil
		}
	}
}

// presentAuthURL opens the browser or, when that is not possible, prints the URL,
// copies it to the clipboard and explains how to tunnel the callback port.
func presentAuthURL(out io.Writer, authURL string, port int, noBrowser bool) {
	if !noBrowser {
		if browser.IsAvailable() {
			_, _ = fmt.Fprintln(out, "Opening browser for GitHub authorization")
			err := browser.OpenURL(authURL)
			if err == nil {
				return
			}
			log.Warnf("Failed to open browser automatically: %v", err)
		} else {
			log.Warn("No browser available; please open the URL manually")
		}
	}

	util.PrintSSHTunnelInstructions(out, port)
	_, _ = fmt.Fprintf(out, "Visit the following URL to continue authorization:\n%s\n", authURL)
	if err := browser.CopyToClipboard(authURL); err == nil {
		_, _ = fmt.Fprintln(out, "(The URL has been copied to your clipboard.)")
	} else {
		log.Debugf("clipboard unavailable: %v", err)
	}
}

// IsPortExhausted reports whether err means no callback port could be bound.
func IsPortExhausted(err error) bool {
	return ReasonFor(err) == ReasonNoPortAvailable
}

// ExitCode is the process exit status the CLI uses for a failed login.
func ExitCode(err error) int {
	if IsPortExhausted(err) {
		return ghauth.ErrNoPortAvailable.Code
	}
	return 1
}
