package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/gitpress/internal/logging"
	log "github.com/sirupsen/logrus"
)

const (
	// CallbackPath is the only path the listener serves.
	CallbackPath = "/oauth/callback"
	// DefaultPortRange is how many consecutive ports Start tries.
	DefaultPortRange = 10
	loopbackHost     = "127.0.0.1"
)

// CallbackOutcome classifies what the browser redirect carried.
type CallbackOutcome int

const (
	// OutcomeCode means both code and state were present.
	OutcomeCode CallbackOutcome = iota
	// OutcomeRejected means the provider redirected with an error parameter.
	OutcomeRejected
	// OutcomeMalformed means code or state was missing and no error was reported.
	OutcomeMalformed
)

// String returns the log name of the outcome.
func (o CallbackOutcome) String() string {
	switch o {
	case OutcomeCode:
		return "code"
	case OutcomeRejected:
		return "rejected"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// OAuthResult contains the result of the OAuth callback.
// Code and State are raw values; the listener never validates state.
type OAuthResult struct {
	Outcome CallbackOutcome
	// Code is the authorization code received from the OAuth provider
	Code string
	// State is the state parameter used to prevent CSRF attacks
	State string
	// Error and ErrorDescription are set for OutcomeRejected
	Error            string
	ErrorDescription string
}

// Err converts a non-code outcome to the matching authentication error.
func (r *OAuthResult) Err() error {
	if r == nil {
		return NewAuthenticationError(ErrCallbackMalformed, nil)
	}
	switch r.Outcome {
	case OutcomeCode:
		return nil
	case OutcomeRejected:
		return NewAuthenticationError(ErrCallbackRejected, NewOAuthError(r.Error, r.ErrorDescription, http.StatusOK))
	default:
		return NewAuthenticationError(ErrCallbackMalformed, nil)
	}
}

// OAuthServer is a single-use loopback listener for the authorization redirect.
// It accepts exactly one GET on CallbackPath, answers it with a static page and
// shuts itself down.
type OAuthServer struct {
	preferredPort int
	portRange     int

	server   *http.Server
	listener net.Listener
	port     int

	resultChan chan *OAuthResult
	errorChan  chan error
	stopped    chan struct{}

	deliver  sync.Once
	stopOnce sync.Once
	// stopMu serializes Stop so every caller returns after the port is released.
	stopMu sync.Mutex

	mu      sync.Mutex
	running bool
	started bool
	result  *OAuthResult
}

// NewOAuthServer creates a listener that will try preferredPort first and then the
// following ports, portRange ports in total. A preferredPort of 0 asks the OS for
// an ephemeral port and disables fallback.
func NewOAuthServer(preferredPort, portRange int) *OAuthServer {
	if portRange <= 0 {
		portRange = DefaultPortRange
	}
	return &OAuthServer{
		preferredPort: preferredPort,
		portRange:     portRange,
		resultChan:    make(chan *OAuthResult, 1),
		errorChan:     make(chan error, 1),
		stopped:       make(chan struct{}),
	}
}

// Start binds the loopback interface and begins serving. It returns the bound port.
// When every candidate port is taken the error matches ErrNoPortAvailable.
func (s *OAuthServer) Start() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return 0, fmt.Errorf("server is already running")
	}
	if s.started {
		return 0, fmt.Errorf("callback server cannot be restarted")
	}

	listener, err := s.bind()
	if err != nil {
		return 0, err
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	s.running = true
	s.started = true

	go func(srv *http.Server, ln net.Listener) {
		if errServe := srv.Serve(ln); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) && !errors.Is(errServe, net.ErrClosed) {
			select {
			case s.errorChan <- fmt.Errorf("callback server failed: %w", errServe):
			default:
			}
		}
	}(s.server, listener)

	log.WithField("port", s.port).Debug("OAuth callback server listening")
	return s.port, nil
}

func (s *OAuthServer) bind() (net.Listener, error) {
	if s.preferredPort == 0 {
		ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, "0"))
		if err != nil {
			return nil, NewAuthenticationError(ErrServerStartFailed, err)
		}
		return ln, nil
	}

	var lastErr error
	for offset := 0; offset < s.portRange; offset++ {
		port := s.preferredPort + offset
		if port > 65535 {
			break
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, fmt.Sprintf("%d", port)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
		log.WithField("port", port).Debugf("callback port unavailable: %v", err)
	}
	return nil, NewAuthenticationError(ErrNoPortAvailable, fmt.Errorf("ports %d-%d: %w", s.preferredPort, s.preferredPort+s.portRange-1, lastErr))
}

func (s *OAuthServer) routes() http.Handler {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(logging.GinLogrusLogger(), logging.GinLogrusRecovery())
	engine.GET(CallbackPath, s.handleCallback)
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})
	return engine
}

func (s *OAuthServer) handleCallback(c *gin.Context) {
	result := classifyCallback(c)

	delivered := false
	s.deliver.Do(func() {
		delivered = true
		s.mu.Lock()
		s.result = result
		s.mu.Unlock()
		s.sendResult(result)
	})

	page := LoginSuccessHtml
	if !delivered || result.Outcome != OutcomeCode {
		page = LoginFailureHtml
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))

	if delivered {
		log.WithFields(log.Fields{
			"request_id": logging.GetRequestID(c.Request.Context()),
			"reason":     result.Outcome.String(),
		}).Debug("OAuth callback received")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Stop(ctx); err != nil {
				log.Debugf("callback server shutdown: %v", err)
			}
		}()
	}
}

func classifyCallback(c *gin.Context) *OAuthResult {
	// code and state are passed on untouched; state must match byte for byte.
	code := c.Query("code")
	state := c.Query("state")
	errCode := strings.TrimSpace(c.Query("error"))

	switch {
	case errCode != "":
		return &OAuthResult{
			Outcome:          OutcomeRejected,
			Error:            errCode,
			ErrorDescription: strings.TrimSpace(c.Query("error_description")),
		}
	case code == "" || state == "":
		return &OAuthResult{Outcome: OutcomeMalformed}
	default:
		return &OAuthResult{Outcome: OutcomeCode, Code: code, State: state}
	}
}

// sendResult sends the OAuth result to the waiting channel without blocking.
func (s *OAuthServer) sendResult(result *OAuthResult) {
	select {
	case s.resultChan <- result:
	default:
		log.Debug("OAuth result channel is full, result dropped")
	}
}

// Stop shuts the listener down and releases the port. It is safe to call more than once.
func (s *OAuthServer) Stop(ctx context.Context) error {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	s.mu.Lock()
	srv := s.server
	ln := s.listener
	port := s.port
	wasRunning := s.running
	s.mu.Unlock()

	var err error
	if wasRunning && srv != nil {
		log.WithField("port", port).Debug("Stopping OAuth callback server")
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err = srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	}
	// Shutdown only closes listeners Serve has already tracked; the Serve goroutine
	// may not have run yet.
	if ln != nil {
		if errClose := ln.Close(); errClose != nil && !errors.Is(errClose, net.ErrClosed) && err == nil {
			err = errClose
		}
	}

	s.mu.Lock()
	s.running = false
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopped) })
	return err
}

// WaitForCallback blocks until the redirect arrives, the listener is stopped, ctx is
// done, or timeout elapses. A result that arrived before the stop is still returned.
func (s *OAuthServer) WaitForCallback(ctx context.Context, timeout time.Duration) (*OAuthResult, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errorChan:
		return nil, err
	case <-s.stopped:
		select {
		case result := <-s.resultChan:
			return result, nil
		default:
		}
		return nil, NewAuthenticationError(ErrAttemptAbandoned, nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return nil, NewAuthenticationError(ErrCallbackTimeout, fmt.Errorf("no callback after %s", timeout))
	}
}

// Result exposes the single-event channel the redirect is delivered on.
func (s *OAuthServer) Result() <-chan *OAuthResult {
	return s.resultChan
}

// Received returns the delivered callback, or nil if none arrived yet.
func (s *OAuthServer) Received() *OAuthResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Port returns the bound port, or 0 before Start.
func (s *OAuthServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// IsRunning reports whether the listener is currently accepting connections.
func (s *OAuthServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RedirectURI builds the redirect_uri registered for the given port.
func RedirectURI(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
}
