// Package config provides configuration management for gitpress.
// It handles loading and parsing YAML configuration files and environment overrides,
// and provides structured access to OAuth client settings, the credential backend,
// logging and outbound HTTP settings.
package config

// SDKConfig holds the settings shared by every outbound HTTP client the core builds.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supported schemes are socks5, http and https.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestTimeoutSeconds bounds a single outbound request. <= 0 uses the default of 30s.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds,omitempty" json:"request-timeout-seconds,omitempty"`
}
