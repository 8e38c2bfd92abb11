package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/util"
	"github.com/router-for-me/gitpress/sdk/credential"
	log "github.com/sirupsen/logrus"
)

var (
	storeMu         sync.RWMutex
	registeredStore credential.Store
)

// RegisterTokenStore sets the process-wide credential store.
func RegisterTokenStore(store credential.Store) {
	storeMu.Lock()
	registeredStore = store
	storeMu.Unlock()
}

// GetTokenStore returns the registered store, falling back to a file store under the
// default data directory.
func GetTokenStore() credential.Store {
	storeMu.RLock()
	s := registeredStore
	storeMu.RUnlock()
	if s != nil {
		return s
	}
	storeMu.Lock()
	defer storeMu.Unlock()
	if registeredStore == nil {
		dir, err := util.ResolveDataDir("")
		if err != nil {
			log.Warnf("resolve data dir: %v", err)
		}
		registeredStore = NewFileTokenStore(dir)
	}
	return registeredStore
}

// NewPlatformStore picks the credential backend from the platform and the configured
// credential-backend. auto uses the OS vault wherever go-keyring supports one and the
// file store elsewhere.
func NewPlatformStore(cfg *config.Config) (credential.Store, error) {
	backend := config.CredentialBackendAuto
	dataDir := ""
	if cfg != nil {
		if b := strings.ToLower(strings.TrimSpace(cfg.CredentialBackend)); b != "" {
			backend = b
		}
		dataDir = cfg.DataDir
	}

	switch backend {
	case config.CredentialBackendKeyring:
		if !keyringSupported {
			return nil, fmt.Errorf("credential backend keyring is not supported on this platform")
		}
		return NewKeyringTokenStore(), nil
	case config.CredentialBackendAuto:
		if keyringSupported {
			return NewKeyringTokenStore(), nil
		}
		fallthrough
	case config.CredentialBackendFile:
		dir, err := util.ResolveDataDir(dataDir)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		return NewFileTokenStore(dir), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}
