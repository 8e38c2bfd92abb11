package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/misc"
	"github.com/router-for-me/gitpress/internal/util"
	"github.com/router-for-me/gitpress/sdk/credential"
	"github.com/router-for-me/gitpress/sdk/github"
	log "github.com/sirupsen/logrus"
)

const stopTimeout = 5 * time.Second

// Controller drives the authorization code flow: it owns at most one attempt at a
// time, validates the callback, redeems the code and persists the credential.
// All methods are safe for concurrent use.
type Controller struct {
	exchanger    Exchanger
	store        credential.Store
	callbackPort int
	portRange    int
	timeout      time.Duration

	mu      sync.Mutex
	current *attempt
	state   *stateHolder
}

// attempt is the single in-flight authorization. Everything secret lives here and
// is dropped with it.
type attempt struct {
	id          string
	pkce        *ghauth.PKCECodes
	server      *ghauth.OAuthServer
	port        int
	redirectURI string

	exchanging bool
	cancel     context.CancelFunc
	// resume is the state restored when the attempt is abandoned.
	resume State

	done   chan struct{}
	result *AuthResult
	err    error
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithExchanger replaces the token endpoint client.
func WithExchanger(e Exchanger) ControllerOption {
	return func(c *Controller) {
		if e != nil {
			c.exchanger = e
		}
	}
}

// WithCallbackPort sets the preferred listener port and how many ports to try.
// Port 0 lets the OS choose.
func WithCallbackPort(port, portRange int) ControllerOption {
	return func(c *Controller) {
		c.callbackPort = port
		if portRange > 0 {
			c.portRange = portRange
		}
	}
}

// WithCallbackTimeout bounds how long Wait blocks for the browser.
func WithCallbackTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewController builds a controller persisting into store.
func NewController(cfg *config.Config, store credential.Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:        store,
		callbackPort: config.DefaultCallbackPort,
		portRange:    config.DefaultCallbackPortRange,
		timeout:      config.DefaultCallbackTimeout,
		state:        newStateHolder(),
	}
	if cfg != nil {
		c.exchanger = ghauth.NewGitHubAuth(cfg)
		if cfg.OAuth.CallbackPort > 0 {
			c.callbackPort = cfg.OAuth.CallbackPort
		}
		if cfg.OAuth.CallbackPortRange > 0 {
			c.portRange = cfg.OAuth.CallbackPortRange
		}
		c.timeout = cfg.OAuth.CallbackTimeout()
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exchanger == nil {
		c.exchanger = ghauth.NewGitHubAuth(nil)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	return c.state.snapshot()
}

// Subscribe registers an observer for state changes and returns its cancel func.
func (c *Controller) Subscribe(o Observer) (cancel func()) {
	return c.state.subscribe(o)
}

// Timeout returns the default callback wait.
func (c *Controller) Timeout() time.Duration { return c.timeout }

// BeginAuthorization tears down any pending attempt, generates fresh PKCE material,
// starts the callback listener and returns the authorization URL to open.
func (c *Controller) BeginAuthorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resume := StateIdle
	if prev := c.current; prev != nil {
		resume = prev.resume
		log.WithField("attempt", prev.id).Debug("superseding pending authorization attempt")
		c.discardLocked(ctx, prev, ghauth.NewAuthenticationError(ghauth.ErrAttemptAbandoned, fmt.Errorf("superseded by a new attempt")))
	} else if c.state.snapshot().State == StateAuthorized {
		resume = StateAuthorized
	}

	id := uuid.NewString()
	entry := log.WithField("attempt", id)
	c.state.publish(Snapshot{State: StateStarting, AttemptID: id})

	pkceCodes, err := ghauth.GeneratePKCECodes()
	if err != nil {
		return "", c.failStartLocked(id, err)
	}

	server := ghauth.NewOAuthServer(c.callbackPort, c.portRange)
	port, err := server.Start()
	if err != nil {
		return "", c.failStartLocked(id, err)
	}
	redirectURI := ghauth.RedirectURI(port)

	authURL, err := c.exchanger.GenerateAuthURL(redirectURI, pkceCodes)
	if err != nil {
		c.stopServer(ctx, server)
		return "", c.failStartLocked(id, err)
	}

	c.current = &attempt{
		id:          id,
		pkce:        pkceCodes,
		server:      server,
		port:        port,
		redirectURI: redirectURI,
		resume:      resume,
		done:        make(chan struct{}),
	}
	entry.WithField("port", port).Info("awaiting OAuth callback")
	c.state.publish(Snapshot{State: StateAwaitingCallback, AttemptID: id, Port: port, RedirectURI: redirectURI})
	return authURL, nil
}

func (c *Controller) failStartLocked(id string, err error) error {
	reason := ReasonFor(err)
	log.WithFields(log.Fields{"attempt": id, "reason": reason}).Warnf("authorization could not start: %v", err)
	c.state.publish(Snapshot{State: StateFailed, Reason: reason, Err: err, AttemptID: id})
	return err
}

// OnCallback validates state against the pending attempt in constant time and, on a
// match, redeems the code and stores the credential. A mismatch fails the attempt
// without contacting the token endpoint.
func (c *Controller) OnCallback(ctx context.Context, code, state string) (*AuthResult, error) {
	c.mu.Lock()
	a := c.current
	c.mu.Unlock()
	if a == nil {
		return nil, ghauth.NewAuthenticationError(ghauth.ErrNoPendingAttempt, nil)
	}
	return c.onCallback(ctx, a, code, state)
}

func (c *Controller) onCallback(ctx context.Context, a *attempt, code, state string) (*AuthResult, error) {
	c.mu.Lock()
	if c.current != a {
		c.mu.Unlock()
		return a.outcome(ghauth.NewAuthenticationError(ghauth.ErrAttemptAbandoned, nil))
	}
	if a.exchanging {
		// A second delivery for the same attempt shares the first one's outcome.
		c.mu.Unlock()
		return a.wait(ctx)
	}
	if !ghauth.StatesEqual(a.pkce.State, state) {
		err := ghauth.NewAuthenticationError(ghauth.ErrStateMismatch, nil)
		c.finishLocked(ctx, a, nil, err)
		c.mu.Unlock()
		return nil, err
	}

	exchangeCtx, cancel := context.WithCancel(ctx)
	a.exchanging = true
	a.cancel = cancel
	c.state.publish(Snapshot{State: StateExchanging, AttemptID: a.id, Port: a.port, RedirectURI: a.redirectURI})
	c.mu.Unlock()

	// The listener has served its purpose; a manual paste may have bypassed it.
	c.stopServer(ctx, a.server)

	cred, errExchange := c.exchanger.ExchangeCodeForTokens(exchangeCtx, code, a.redirectURI, a.pkce)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != a {
		log.WithField("attempt", a.id).Debug("discarding exchange result of abandoned attempt")
		return a.outcome(ghauth.NewAuthenticationError(ghauth.ErrAttemptAbandoned, nil))
	}
	if errExchange != nil {
		if !errors.Is(errExchange, ghauth.ErrExchangeRejected) {
			errExchange = ghauth.NewAuthenticationError(ghauth.ErrExchangeRejected, errExchange)
		}
		c.finishLocked(ctx, a, nil, errExchange)
		return nil, errExchange
	}
	if errSave := c.store.Save(ctx, cred); errSave != nil {
		c.finishLocked(ctx, a, nil, errSave)
		return nil, errSave
	}

	result := &AuthResult{AttemptID: a.id, Credential: cred}
	c.finishLocked(ctx, a, result, nil)
	return result, nil
}

// Wait blocks until the listener delivers the redirect, then routes it. On timeout
// the listener is stopped and the attempt fails with CallbackTimeout. A timeout of
// zero uses the configured default.
func (c *Controller) Wait(ctx context.Context, timeout time.Duration) (*AuthResult, error) {
	c.mu.Lock()
	a := c.current
	c.mu.Unlock()
	if a == nil {
		return nil, ghauth.NewAuthenticationError(ghauth.ErrNoPendingAttempt, nil)
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	cb, err := a.server.WaitForCallback(ctx, timeout)
	switch {
	case err == nil:
	case errors.Is(err, ghauth.ErrAttemptAbandoned):
		// Stopped by a manual paste, Abandon or a superseding attempt.
		return a.wait(ctx)
	case errors.Is(err, ghauth.ErrCallbackTimeout):
		c.fail(ctx, a, err)
		return a.wait(ctx)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.fail(ctx, a, ghauth.NewAuthenticationError(ghauth.ErrCallbackTimeout, err))
		return a.wait(context.WithoutCancel(ctx))
	default:
		c.fail(ctx, a, ghauth.NewAuthenticationError(ghauth.ErrServerStartFailed, err))
		return a.wait(ctx)
	}

	if errCallback := cb.Err(); errCallback != nil {
		c.fail(ctx, a, errCallback)
		return a.wait(ctx)
	}
	return c.onCallback(ctx, a, cb.Code, cb.State)
}

// SubmitCallbackURL accepts a pasted redirect URL (or its query string) for the
// pending attempt, for browsers that cannot reach the loopback listener.
func (c *Controller) SubmitCallbackURL(ctx context.Context, raw string) (*AuthResult, error) {
	c.mu.Lock()
	a := c.current
	c.mu.Unlock()
	if a == nil {
		return nil, ghauth.NewAuthenticationError(ghauth.ErrNoPendingAttempt, nil)
	}

	parsed, err := misc.ParseOAuthCallback(raw)
	if err != nil || parsed == nil {
		if err == nil {
			err = fmt.Errorf("callback URL is empty")
		}
		return nil, ghauth.NewAuthenticationError(ghauth.ErrCallbackMalformed, err)
	}
	if parsed.Error != "" {
		errRejected := ghauth.NewAuthenticationError(ghauth.ErrCallbackRejected, ghauth.NewOAuthError(parsed.Error, parsed.ErrorDescription, 0))
		c.fail(ctx, a, errRejected)
		return nil, errRejected
	}
	if parsed.Code == "" || parsed.State == "" {
		errMalformed := ghauth.NewAuthenticationError(ghauth.ErrCallbackMalformed, nil)
		c.fail(ctx, a, errMalformed)
		return nil, errMalformed
	}
	return c.onCallback(ctx, a, parsed.Code, parsed.State)
}

// Abandon cancels the pending attempt: the listener is stopped and its port released
// before Abandon returns, an in-flight exchange is cancelled, and stored credentials
// are left untouched.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.current
	if a == nil {
		return
	}
	c.discardLocked(context.Background(), a, ghauth.NewAuthenticationError(ghauth.ErrAttemptAbandoned, nil))
	log.WithField("attempt", a.id).Info("authorization attempt abandoned")
	c.state.publish(Snapshot{State: a.resume})
}

// SignOut abandons any attempt and deletes the stored credential.
func (c *Controller) SignOut(ctx context.Context) error {
	c.Abandon()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Delete(ctx); err != nil {
		return err
	}
	log.WithField("backend", c.store.Backend()).Info("signed out")
	c.state.publish(Snapshot{State: StateIdle})
	return nil
}

// Restore reports Authorized when the store holds a credential and Idle otherwise.
// It returns the stored credential, if any.
func (c *Controller) Restore(ctx context.Context) (*credential.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.Retrieve(ctx)
	switch {
	case err == nil:
		if c.current == nil {
			c.state.publish(Snapshot{State: StateAuthorized})
		} else {
			c.current.resume = StateAuthorized
		}
		return cred, nil
	case errors.Is(err, credential.ErrNotFound):
		if c.current == nil {
			c.state.publish(Snapshot{State: StateIdle})
		}
		return nil, nil
	default:
		return nil, err
	}
}

// ReportAPIError lets API callers hand back failures. An Unauthenticated error means
// the token was revoked, so the credential is deleted and the controller drops to Idle.
// It reports whether the credential was cleared.
func (c *Controller) ReportAPIError(ctx context.Context, err error) (bool, error) {
	if !errors.Is(err, github.ErrUnauthenticated) {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if errDelete := c.store.Delete(ctx); errDelete != nil {
		return false, errDelete
	}
	log.Warn("stored credential rejected by GitHub, signed out")
	if c.current != nil {
		c.current.resume = StateIdle
	} else {
		c.state.publish(Snapshot{State: StateIdle})
	}
	return true, nil
}

// fail ends an attempt that still owns the slot and is not exchanging.
func (c *Controller) fail(ctx context.Context, a *attempt, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != a || a.exchanging {
		return
	}
	c.finishLocked(ctx, a, nil, err)
}

// discardLocked drops a without publishing a state; the caller publishes the next one.
func (c *Controller) discardLocked(ctx context.Context, a *attempt, err error) {
	if c.current == a {
		c.current = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	c.stopServer(ctx, a.server)
	a.finish(nil, err)
}

// finishLocked releases the slot and publishes the terminal state for a.
func (c *Controller) finishLocked(ctx context.Context, a *attempt, result *AuthResult, err error) {
	if c.current == a {
		c.current = nil
	}
	c.stopServer(ctx, a.server)
	a.finish(result, err)

	entry := log.WithField("attempt", a.id)
	if err != nil {
		reason := ReasonFor(err)
		entry.WithField("reason", reason).Warnf("authorization failed: %v", err)
		c.state.publish(Snapshot{State: StateFailed, Reason: reason, Err: err, AttemptID: a.id})
		return
	}
	token := ""
	if result != nil && result.Credential != nil {
		token = util.HideAPIKey(result.Credential.AccessToken)
	}
	entry.WithField("backend", c.store.Backend()).Infof("authorization complete, token %s", token)
	c.state.publish(Snapshot{State: StateAuthorized, AttemptID: a.id})
}

func (c *Controller) stopServer(ctx context.Context, server *ghauth.OAuthServer) {
	if server == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := server.Stop(stopCtx); err != nil {
		log.Debugf("stop callback server: %v", err)
	}
}

func (a *attempt) finish(result *AuthResult, err error) {
	select {
	case <-a.done:
		return
	default:
	}
	a.result = result
	a.err = err
	close(a.done)
}

// wait blocks until the attempt reached a terminal outcome.
func (a *attempt) wait(ctx context.Context) (*AuthResult, error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// outcome returns the attempt's terminal result if known, otherwise fallback.
func (a *attempt) outcome(fallback error) (*AuthResult, error) {
	select {
	case <-a.done:
		return a.result, a.err
	default:
		return nil, fallback
	}
}
