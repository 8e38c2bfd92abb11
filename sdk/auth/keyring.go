package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/router-for-me/gitpress/sdk/credential"
	log "github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

// KeyringTokenStore keeps the credential in the operating system's secret vault:
// Keychain on macOS, Credential Manager on Windows, Secret Service on Linux.
type KeyringTokenStore struct {
	mu      sync.Mutex
	service string
	account string
}

// NewKeyringTokenStore creates a vault store for the gitpress/github entry.
func NewKeyringTokenStore() *KeyringTokenStore {
	return &KeyringTokenStore{service: credential.Service, account: credential.Account}
}

// Backend implements credential.Store.
func (s *KeyringTokenStore) Backend() string { return keyringBackend }

// Save implements credential.Store.
func (s *KeyringTokenStore) Save(ctx context.Context, c *credential.Credential) error {
	if err := ctx.Err(); err != nil {
		return credential.Wrap("save", keyringBackend, err)
	}
	raw, err := c.Marshal()
	if err != nil {
		return credential.Wrap("save", keyringBackend, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = keyring.Set(s.service, s.account, string(raw)); err != nil {
		return credential.Wrap("save", keyringBackend, classifyKeyringError(err))
	}
	log.WithField("backend", keyringBackend).Debug("credential saved")
	return nil
}

// Retrieve implements credential.Store.
func (s *KeyringTokenStore) Retrieve(ctx context.Context) (*credential.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, credential.Wrap("retrieve", keyringBackend, err)
	}

	s.mu.Lock()
	secret, err := keyring.Get(s.service, s.account)
	s.mu.Unlock()
	if err != nil {
		return nil, credential.Wrap("retrieve", keyringBackend, classifyKeyringError(err))
	}
	c, err := credential.Unmarshal([]byte(secret))
	if err != nil {
		return nil, credential.Wrap("retrieve", keyringBackend, err)
	}
	return c, nil
}

// Delete implements credential.Store. A missing entry is not an error.
func (s *KeyringTokenStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return credential.Wrap("delete", keyringBackend, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := keyring.Delete(s.service, s.account)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return credential.Wrap("delete", keyringBackend, classifyKeyringError(err))
}

func classifyKeyringError(err error) error {
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return credential.ErrNotFound
	case isAccessDenied(err):
		return fmt.Errorf("%w: %v", credential.ErrAccessDenied, err)
	default:
		return err
	}
}

// KeyringAvailable reports whether this platform has a vault go-keyring can drive.
func KeyringAvailable() bool { return keyringSupported }
