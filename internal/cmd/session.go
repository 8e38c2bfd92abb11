// Package cmd implements the gitpress commands on top of the authorization controller
// and the GitHub client. Each Do* function is one command; cmd/gitpress wires them to cobra.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/util"
	sdkAuth "github.com/router-for-me/gitpress/sdk/auth"
	"github.com/router-for-me/gitpress/sdk/credential"
	"github.com/router-for-me/gitpress/sdk/github"
	log "github.com/sirupsen/logrus"
)

// Session bundles what every command needs: the store, the controller that owns it
// and where output goes.
type Session struct {
	Config     *config.Config
	Store      credential.Store
	Controller *sdkAuth.Controller
	Out        io.Writer
}

// NewSession opens the configured credential store and builds a controller over it.
// The store is registered as the process default.
func NewSession(cfg *config.Config, out io.Writer) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gitpress: configuration is required")
	}
	store, err := sdkAuth.NewPlatformStore(cfg)
	if err != nil {
		return nil, err
	}
	sdkAuth.RegisterTokenStore(store)
	return newSessionWithStore(cfg, nil, out), nil
}

// newSessionWithStore builds a session over store, or over the registered default when store is nil.
func newSessionWithStore(cfg *config.Config, store credential.Store, out io.Writer, opts ...sdkAuth.ControllerOption) *Session {
	if out == nil {
		out = os.Stdout
	}
	if store == nil {
		store = sdkAuth.GetTokenStore()
	}
	log.WithField("backend", store.Backend()).Debug("credential store ready")
	return &Session{
		Config:     cfg,
		Store:      store,
		Controller: sdkAuth.NewController(cfg, store, opts...),
		Out:        out,
	}
}

// Client builds an API client from the stored credential.
func (s *Session) Client(ctx context.Context) (*github.Client, error) {
	opts := []github.Option{
		github.WithHTTPClient(util.NewHTTPClient(&s.Config.SDKConfig)),
	}
	if s.Config.API.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(s.Config.API.BaseURL))
	}
	if s.Config.API.UserAgent != "" {
		opts = append(opts, github.WithUserAgent(s.Config.API.UserAgent))
	}
	return github.FromStore(ctx, s.Store, opts...)
}

// handleAPIError hands err to the controller so a revoked token is cleared, then
// returns it decorated for the terminal.
func (s *Session) handleAPIError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	cleared, errReport := s.Controller.ReportAPIError(ctx, err)
	if errReport != nil {
		log.Warnf("failed to clear revoked credential: %v", errReport)
	}
	if cleared {
		return fmt.Errorf("%s Run `gitpress login` to sign in again: %w", apiErrorMessage(err), err)
	}
	return fmt.Errorf("%s: %w", apiErrorMessage(err), err)
}
