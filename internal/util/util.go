// Package util holds small helpers used across gitpress: log level selection, data
// directory resolution, the outbound HTTP client and secret masking.
package util

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/router-for-me/gitpress/internal/config"
	log "github.com/sirupsen/logrus"
)

// SetLogLevel selects debug or info level from cfg.Debug.
func SetLogLevel(cfg *config.Config) {
	want := log.InfoLevel
	if cfg != nil && cfg.Debug {
		want = log.DebugLevel
	}
	if prev := log.GetLevel(); prev != want {
		log.SetLevel(want)
		log.Debugf("log level changed from %s to %s", prev, want)
	}
}

// ResolveDataDir returns the directory gitpress keeps its credentials file and logs in.
// A leading ~ expands to the home directory. Empty input means WRITABLE_PATH if set,
// else <user config dir>/gitpress.
func ResolveDataDir(dataDir string) (string, error) {
	dataDir = strings.TrimSpace(dataDir)
	switch {
	case dataDir == "":
		if base := WritablePath(); base != "" {
			return base, nil
		}
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		return filepath.Join(configDir, "gitpress"), nil
	case strings.HasPrefix(dataDir, "~"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		rest := strings.ReplaceAll(strings.TrimLeft(dataDir[1:], "/\\"), "\\", "/")
		return filepath.Join(home, filepath.FromSlash(rest)), nil
	default:
		return filepath.Clean(dataDir), nil
	}
}

// WritablePath returns WRITABLE_PATH (or writable_path), cleaned, or "".
func WritablePath() string {
	for _, key := range []string{"WRITABLE_PATH", "writable_path"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return filepath.Clean(v)
		}
	}
	return ""
}

// NewHTTPClient builds the outbound client used for token exchange and API calls,
// honoring the configured proxy and request timeout.
func NewHTTPClient(cfg *config.SDKConfig) *http.Client {
	client := &http.Client{}
	if cfg == nil {
		return client
	}
	client.Timeout = cfg.RequestTimeout()
	if strings.TrimSpace(cfg.ProxyURL) != "" {
		client = SetProxy(cfg, client)
	}
	return client
}
