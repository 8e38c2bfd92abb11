package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GitHub endpoints used when the configuration does not override them.
const (
	DefaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	DefaultTokenURL     = "https://github.com/login/oauth/access_token"
	DefaultAPIBaseURL   = "https://api.github.com"

	DefaultCallbackPort      = 8765
	DefaultCallbackPortRange = 10
	DefaultCallbackTimeout   = 5 * time.Minute
)

// Credential backend selectors.
const (
	CredentialBackendAuto    = "auto"
	CredentialBackendKeyring = "keyring"
	CredentialBackendFile    = "file"
)

// DefaultScopes are requested when the configuration does not list any.
var DefaultScopes = []string{"repo", "read:user"}

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	SDKConfig `yaml:",inline"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to a rotating file under DataDir/logs instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB caps the total size of the logs directory. <= 0 disables the cleaner.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// DataDir holds the file credential backend and logs. Supports a leading "~".
	DataDir string `yaml:"data-dir" json:"data-dir"`

	// CredentialBackend selects where the access token lives: auto, keyring or file.
	CredentialBackend string `yaml:"credential-backend" json:"credential-backend"`

	// OAuth configures the authorization code flow.
	OAuth OAuthConfig `yaml:"oauth" json:"oauth"`

	// API configures the REST client.
	API APIConfig `yaml:"api" json:"api"`
}

// OAuthConfig holds the OAuth application registration and callback listener settings.
type OAuthConfig struct {
	ClientID     string   `yaml:"client-id" json:"client-id"`
	ClientSecret string   `yaml:"client-secret" json:"-"`
	AuthorizeURL string   `yaml:"authorize-url" json:"authorize-url"`
	TokenURL     string   `yaml:"token-url" json:"token-url"`
	Scopes       []string `yaml:"scopes" json:"scopes"`

	// CallbackPort is the preferred loopback port for the redirect listener.
	CallbackPort int `yaml:"callback-port" json:"callback-port"`
	// CallbackPortRange is the number of consecutive ports tried, starting at CallbackPort.
	CallbackPortRange int `yaml:"callback-port-range" json:"callback-port-range"`
	// CallbackTimeoutSeconds bounds how long a login waits for the browser to return.
	CallbackTimeoutSeconds int `yaml:"callback-timeout-seconds" json:"callback-timeout-seconds"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL   string `yaml:"base-url" json:"base-url"`
	UserAgent string `yaml:"user-agent" json:"user-agent"`
}

// CallbackTimeout returns the configured callback wait as a duration.
func (c OAuthConfig) CallbackTimeout() time.Duration {
	if c.CallbackTimeoutSeconds <= 0 {
		return DefaultCallbackTimeout
	}
	return time.Duration(c.CallbackTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout for outbound HTTP calls.
func (c SDKConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// LoadConfig reads the configuration file. A missing file is an error.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads the configuration file, falling back to defaults when the
// file does not exist and optional is true. Environment overrides are applied last.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(configFile) != "" {
		data, err := os.ReadFile(configFile)
		switch {
		case err == nil:
			if len(data) > 0 {
				if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
					return nil, fmt.Errorf("failed to parse config file: %w", errUnmarshal)
				}
			}
		case errors.Is(err, os.ErrNotExist) && optional:
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration.
// Both upper- and lowercase variants are accepted, matching the .env conventions.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := lookup(key); ok {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					return trimmed, true
				}
			}
		}
		return "", false
	}
	if v, ok := get("GITPRESS_CLIENT_ID", "gitpress_client_id"); ok {
		c.OAuth.ClientID = v
	}
	if v, ok := get("GITPRESS_CLIENT_SECRET", "gitpress_client_secret"); ok {
		c.OAuth.ClientSecret = v
	}
	if v, ok := get("GITPRESS_DATA_DIR", "gitpress_data_dir"); ok {
		c.DataDir = v
	}
	if v, ok := get("GITPRESS_PROXY_URL", "gitpress_proxy_url"); ok {
		c.ProxyURL = v
	}
	if v, ok := get("GITPRESS_CREDENTIAL_BACKEND", "gitpress_credential_backend"); ok {
		c.CredentialBackend = v
	}
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.OAuth.AuthorizeURL == "" {
		c.OAuth.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.OAuth.TokenURL == "" {
		c.OAuth.TokenURL = DefaultTokenURL
	}
	if len(c.OAuth.Scopes) == 0 {
		c.OAuth.Scopes = append([]string(nil), DefaultScopes...)
	}
	if c.OAuth.CallbackPort <= 0 {
		c.OAuth.CallbackPort = DefaultCallbackPort
	}
	if c.OAuth.CallbackPortRange <= 0 {
		c.OAuth.CallbackPortRange = DefaultCallbackPortRange
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	c.CredentialBackend = strings.ToLower(strings.TrimSpace(c.CredentialBackend))
	if c.CredentialBackend == "" {
		c.CredentialBackend = CredentialBackendAuto
	}
}

// Validate checks that the externally supplied OAuth client registration is present.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: configuration is required")
	}
	if strings.TrimSpace(c.OAuth.ClientID) == "" {
		return fmt.Errorf("config: oauth client-id is required (set GITPRESS_CLIENT_ID)")
	}
	switch c.CredentialBackend {
	case CredentialBackendAuto, CredentialBackendKeyring, CredentialBackendFile:
	default:
		return fmt.Errorf("config: unknown credential-backend %q", c.CredentialBackend)
	}
	return nil
}
