package auth

import (
	"context"
	"io"
	"time"

	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/sdk/credential"
)

// Exchanger talks to the provider's OAuth endpoints. *ghauth.GitHubAuth is the
// production implementation; tests substitute counting stubs.
type Exchanger interface {
	GenerateAuthURL(redirectURI string, pkceCodes *ghauth.PKCECodes) (string, error)
	ExchangeCodeForTokens(ctx context.Context, code, redirectURI string, pkceCodes *ghauth.PKCECodes) (*credential.Credential, error)
}

// LoginOptions captures the knobs the interactive login shell passes through.
type LoginOptions struct {
	NoBrowser    bool
	CallbackPort int
	// Prompt reads a line from the user. When set, the login offers a manual
	// callback URL paste if the browser does not reach the listener in time.
	Prompt func(prompt string) (string, error)
	// PromptDelay is how long Login waits for the browser before offering the paste.
	// Zero means 15 seconds.
	PromptDelay time.Duration
	// Out receives the human-readable instructions. Nil means os.Stdout.
	Out io.Writer
	// Waiting, when set, is called once the instructions have been written.
	Waiting func()
}

// AuthResult is what a successful authorization attempt produces.
type AuthResult struct {
	AttemptID  string
	Credential *credential.Credential
}
