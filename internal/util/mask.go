package util

import (
	"net/url"
	"strings"
)

// HideAPIKey keeps a few characters at each end of secret so log lines stay correlatable.
func HideAPIKey(secret string) string {
	var keep int
	switch n := len(secret); {
	case n > 8:
		keep = 4
	case n > 4:
		keep = 2
	case n > 2:
		keep = 1
	default:
		return secret
	}
	return secret[:keep] + "..." + secret[len(secret)-keep:]
}

// MaskAuthorizationHeader masks the credential of an Authorization header but keeps its
// scheme: "Bearer gho_abcdef123456" becomes "Bearer gho_...3456".
func MaskAuthorizationHeader(value string) string {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok {
		return HideAPIKey(value)
	}
	return scheme + " " + HideAPIKey(credential)
}

// MaskSensitiveQuery rewrites the values of code, state and credential-like parameters
// in a raw query. Parameter order and untouched pairs are preserved byte for byte.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	masked := false
	for i, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		if !isSensitiveParam(unescapeOr(key)) {
			continue
		}
		pairs[i] = key + "=" + url.QueryEscape(HideAPIKey(strings.TrimSpace(unescapeOr(value))))
		masked = true
	}
	if !masked {
		return raw
	}
	return strings.Join(pairs, "&")
}

func unescapeOr(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "":
		return false
	case "code", "state", "code_verifier", "client_secret":
		return true
	}
	return strings.Contains(key, "token") || strings.Contains(key, "secret")
}
