// Package credential defines the stored authorization record and the contract every
// credential backend implements.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// Service is the vault service name the record is saved under.
	Service = "gitpress"
	// Account is the vault account name the record is saved under.
	Account = "github"
)

// Credential is the durable authorization record. There is at most one per store.
type Credential struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	Scope       []string   `json:"scope"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// String masks the token so credentials can be logged by accident without leaking.
func (c *Credential) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Credential{type=%s scope=%s token=%s}", c.TokenType, strings.Join(c.Scope, ","), maskToken(c.AccessToken))
}

// HasScope reports whether the granted scopes include name.
func (c *Credential) HasScope(name string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scope {
		if s == name {
			return true
		}
	}
	return false
}

// Expired reports whether the credential has a known expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Marshal encodes the credential as the single blob stored in a backend.
func (c *Credential) Marshal() ([]byte, error) {
	if c == nil || c.AccessToken == "" {
		return nil, fmt.Errorf("credential: access token is empty")
	}
	return json.Marshal(c)
}

// Unmarshal decodes a stored blob. Undecodable or token-less blobs yield ErrCorrupt.
func Unmarshal(data []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if c.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrCorrupt)
	}
	return &c, nil
}

// Store persists the single credential record.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save upserts the record.
	Save(ctx context.Context, c *Credential) error
	// Retrieve returns the record; errors.Is(err, ErrNotFound) when none exists.
	Retrieve(ctx context.Context) (*Credential, error)
	// Delete removes the record. Deleting an absent record succeeds.
	Delete(ctx context.Context) error
	// Backend names the storage mechanism for diagnostics.
	Backend() string
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
