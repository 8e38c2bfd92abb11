package auth

import (
	"errors"

	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/sdk/credential"
)

// FailureReason names why an attempt ended in StateFailed.
type FailureReason string

const (
	ReasonNone                 FailureReason = ""
	ReasonPKCEGenerationFailed FailureReason = "pkce_generation_failed"
	ReasonNoPortAvailable      FailureReason = "no_port_available"
	ReasonStateMismatch        FailureReason = "state_mismatch"
	ReasonExchangeRejected     FailureReason = "exchange_rejected"
	ReasonCallbackRejected     FailureReason = "callback_rejected"
	ReasonCallbackMalformed    FailureReason = "callback_malformed"
	ReasonCallbackTimeout      FailureReason = "callback_timeout"
	ReasonVaultAccessDenied    FailureReason = "vault_access_denied"
	ReasonStoreFailed          FailureReason = "store_failed"
)

// ReasonFor maps an error produced during an attempt to its failure reason.
func ReasonFor(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ghauth.ErrPKCEGenerationFailed):
		return ReasonPKCEGenerationFailed
	case errors.Is(err, ghauth.ErrNoPortAvailable), errors.Is(err, ghauth.ErrServerStartFailed):
		return ReasonNoPortAvailable
	case errors.Is(err, ghauth.ErrStateMismatch):
		return ReasonStateMismatch
	case errors.Is(err, ghauth.ErrCallbackRejected):
		return ReasonCallbackRejected
	case errors.Is(err, ghauth.ErrCallbackMalformed):
		return ReasonCallbackMalformed
	case errors.Is(err, ghauth.ErrCallbackTimeout):
		return ReasonCallbackTimeout
	case errors.Is(err, credential.ErrAccessDenied):
		return ReasonVaultAccessDenied
	case isStoreError(err):
		return ReasonStoreFailed
	default:
		return ReasonExchangeRejected
	}
}

func isStoreError(err error) bool {
	var se *credential.StoreError
	return errors.As(err, &se)
}
