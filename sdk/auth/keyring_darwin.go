//go:build darwin

package auth

import "strings"

const (
	keyringBackend   = "macos-keychain"
	keyringSupported = true
)

// isAccessDenied recognises the security(1) failures for a locked keychain or a
// dismissed authorization prompt.
func isAccessDenied(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"user interaction is not allowed", "user canceled", "authorization/authentication failed", "exit status 36", "exit status 128"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
