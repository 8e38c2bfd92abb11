package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/util"
	"github.com/router-for-me/gitpress/sdk/credential"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// GitHubAuth builds authorization URLs and redeems authorization codes against
// GitHub's OAuth endpoints.
type GitHubAuth struct {
	clientID     string
	clientSecret string
	authorizeURL string
	tokenURL     string
	scopes       []string
	httpClient   *http.Client
}

// NewGitHubAuth creates a GitHub OAuth client from the application configuration.
// The HTTP client honours the configured proxy and request timeout.
func NewGitHubAuth(cfg *config.Config) *GitHubAuth {
	if cfg == nil {
		cfg = &config.Config{}
	}
	oauthCfg := cfg.OAuth
	authorizeURL := strings.TrimSpace(oauthCfg.AuthorizeURL)
	if authorizeURL == "" {
		authorizeURL = config.DefaultAuthorizeURL
	}
	tokenURL := strings.TrimSpace(oauthCfg.TokenURL)
	if tokenURL == "" {
		tokenURL = config.DefaultTokenURL
	}
	scopes := oauthCfg.Scopes
	if len(scopes) == 0 {
		scopes = config.DefaultScopes
	}
	return &GitHubAuth{
		clientID:     oauthCfg.ClientID,
		clientSecret: oauthCfg.ClientSecret,
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		scopes:       append([]string(nil), scopes...),
		httpClient:   util.NewHTTPClient(&cfg.SDKConfig),
	}
}

// WithHTTPClient replaces the client used for the token exchange.
func (o *GitHubAuth) WithHTTPClient(c *http.Client) *GitHubAuth {
	if c != nil {
		o.httpClient = c
	}
	return o
}

// Scopes returns the scopes requested on the authorization URL.
func (o *GitHubAuth) Scopes() []string {
	return append([]string(nil), o.scopes...)
}

func (o *GitHubAuth) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.clientID,
		ClientSecret: o.clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.authorizeURL,
			TokenURL:  o.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      o.scopes,
	}
}

// GenerateAuthURL builds the authorization URL carrying client_id, redirect_uri,
// response_type=code, scope, state and the S256 code challenge. The verifier itself
// is not part of the URL.
func (o *GitHubAuth) GenerateAuthURL(redirectURI string, pkceCodes *PKCECodes) (string, error) {
	if pkceCodes == nil {
		return "", fmt.Errorf("PKCE codes are required")
	}
	if o.clientID == "" {
		return "", fmt.Errorf("oauth client id is not configured")
	}
	authURL := o.oauthConfig(redirectURI).AuthCodeURL(
		pkceCodes.State,
		oauth2.SetAuthURLParam("code_challenge", pkceCodes.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return authURL, nil
}

// ExchangeCodeForTokens redeems the authorization code at the token endpoint,
// sending code_verifier and the same redirect_uri used for the authorization URL.
// Any refusal by the endpoint is reported as ErrExchangeRejected; when the endpoint
// returned an OAuth error body it is available through errors.As as *OAuthError.
func (o *GitHubAuth) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string, pkceCodes *PKCECodes) (*credential.Credential, error) {
	if pkceCodes == nil {
		return nil, fmt.Errorf("PKCE codes are required for token exchange")
	}
	if strings.TrimSpace(code) == "" {
		return nil, NewAuthenticationError(ErrExchangeRejected, fmt.Errorf("authorization code is empty"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	tok, err := o.oauthConfig(redirectURI).Exchange(ctx, code, oauth2.VerifierOption(pkceCodes.CodeVerifier))
	if err != nil {
		return nil, NewAuthenticationError(ErrExchangeRejected, classifyExchangeError(err))
	}
	if tok.AccessToken == "" {
		return nil, NewAuthenticationError(ErrExchangeRejected, fmt.Errorf("token response missing access_token"))
	}

	cred := &credential.Credential{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       grantedScopes(tok, o.scopes),
	}
	if cred.TokenType == "" {
		cred.TokenType = "bearer"
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC().Truncate(time.Second)
		cred.ExpiresAt = &expiry
	}

	log.WithField("scope", strings.Join(cred.Scope, ",")).Debug("authorization code exchanged")
	return cred, nil
}

// classifyExchangeError extracts the OAuth error body from a token endpoint response.
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return err
	}
	status := 0
	if retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}
	if retrieveErr.ErrorCode != "" {
		return NewOAuthError(retrieveErr.ErrorCode, retrieveErr.ErrorDescription, status)
	}
	return fmt.Errorf("token endpoint returned status %d: %w", status, err)
}

// grantedScopes reads the scope the token endpoint reported. GitHub separates scopes
// with commas, RFC 6749 with spaces; both are accepted. Only a response without a scope
// member means the requested scopes were granted; an empty scope grants nothing.
// Form-encoded responses cannot tell the two apart and GitHub always sends the field,
// so there an empty value counts as an empty grant.
func grantedScopes(tok *oauth2.Token, requested []string) []string {
	var raw string
	switch v := tok.Extra("scope").(type) {
	case nil:
		return append([]string(nil), requested...)
	case string:
		raw = v
	case []string:
		raw = strings.Join(v, " ")
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok {
				raw += " " + str
			}
		}
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if fields == nil {
		fields = []string{}
	}
	return fields
}
