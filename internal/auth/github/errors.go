package github

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuthError is an error reported by GitHub, either as error/error_description on the
// redirect or in the body of a token endpoint response.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	// StatusCode is the HTTP status of the response that carried the error, 0 for redirects.
	StatusCode int `json:"-"`
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return "github oauth: " + e.Code
	}
	return fmt.Sprintf("github oauth: %s (%s)", e.Code, e.Description)
}

func NewOAuthError(code, description string, statusCode int) *OAuthError {
	return &OAuthError{Code: code, Description: description, StatusCode: statusCode}
}

// AuthenticationError is a failure of the authorization flow itself. The package level
// values are kinds: errors built from them with NewAuthenticationError match the kind
// under errors.Is and unwrap to their cause.
type AuthenticationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Code is an HTTP status, except for ErrNoPortAvailable which carries exit code 13.
	Code  int   `json:"code"`
	Cause error `json:"-"`
}

func (e *AuthenticationError) Error() string {
	if e.Cause == nil {
		return e.Type + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

func (e *AuthenticationError) Is(target error) bool {
	var other *AuthenticationError
	return errors.As(target, &other) && other.Type == e.Type
}

func kind(typ, message string, code int) *AuthenticationError {
	return &AuthenticationError{Type: typ, Message: message, Code: code}
}

var (
	// ErrPKCEGenerationFailed means the secure random source failed. Not recoverable.
	ErrPKCEGenerationFailed = kind("pkce_generation_failed", "cannot generate PKCE parameters", http.StatusInternalServerError)
	ErrNoPortAvailable      = kind("no_port_available", "every OAuth callback port is in use", 13)
	ErrServerStartFailed    = kind("server_start_failed", "cannot start the OAuth callback listener", http.StatusInternalServerError)
	// ErrStateMismatch means the callback state differs from the pending attempt's.
	ErrStateMismatch    = kind("state_mismatch", "callback state does not match the pending authorization", http.StatusBadRequest)
	ErrExchangeRejected = kind("exchange_rejected", "token endpoint rejected the authorization code", http.StatusBadRequest)
	// ErrCallbackRejected wraps an OAuthError from the redirect, e.g. access_denied.
	ErrCallbackRejected  = kind("callback_rejected", "authorization was rejected by GitHub", http.StatusForbidden)
	ErrCallbackMalformed = kind("callback_malformed", "callback carries neither code and state nor an error", http.StatusBadRequest)
	ErrCallbackTimeout   = kind("callback_timeout", "no OAuth callback before the deadline", http.StatusRequestTimeout)
	ErrNoPendingAttempt  = kind("no_pending_attempt", "no authorization attempt is awaiting a callback", http.StatusConflict)
	// ErrAttemptAbandoned covers both explicit cancellation and being superseded by a new attempt.
	ErrAttemptAbandoned = kind("attempt_abandoned", "authorization attempt was abandoned", http.StatusGone)
)

// NewAuthenticationError returns an error of base's kind wrapping cause.
func NewAuthenticationError(base *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{Type: base.Type, Message: base.Message, Code: base.Code, Cause: cause}
}

func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

func IsOAuthError(err error) bool {
	var target *OAuthError
	return errors.As(err, &target)
}

var friendlyByKind = map[string]string{
	ErrPKCEGenerationFailed.Type: "Secure random numbers are unavailable on this system; sign-in cannot continue.",
	ErrNoPortAvailable.Type:      "No local port is free for the sign-in callback. Close applications using the callback ports and try again.",
	ErrStateMismatch.Type:        "The sign-in response did not match this request and was ignored. Please try again.",
	ErrExchangeRejected.Type:     "GitHub rejected the authorization code. Please sign in again.",
	ErrCallbackTimeout.Type:      "Sign-in timed out. Please try again.",
	ErrCallbackMalformed.Type:    "The sign-in response was incomplete. Please try again.",
	ErrAttemptAbandoned.Type:     "Sign-in was cancelled.",
}

// GetUserFriendlyMessage turns err into a sentence for the terminal. A provider
// OAuthError anywhere in the chain wins over the flow error wrapping it.
func GetUserFriendlyMessage(err error) string {
	var oauthErr *OAuthError
	if errors.As(err, &oauthErr) {
		switch oauthErr.Code {
		case "access_denied":
			return "Authorization was cancelled or denied in the browser."
		case "bad_verification_code", "incorrect_client_credentials", "redirect_uri_mismatch":
			return "GitHub rejected the sign-in. Please start again."
		}
		reason := oauthErr.Description
		if reason == "" {
			reason = oauthErr.Code
		}
		return "Authorization failed: " + reason
	}

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return "An unexpected error occurred. Please try again."
	}
	if msg, ok := friendlyByKind[authErr.Type]; ok {
		return msg
	}
	return "Authentication failed. Please try again."
}
