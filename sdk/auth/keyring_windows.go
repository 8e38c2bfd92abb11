//go:build windows

package auth

import (
	"errors"
	"strings"
	"syscall"
)

const (
	keyringBackend   = "windows-credential-manager"
	keyringSupported = true
)

func isAccessDenied(err error) bool {
	if errors.Is(err, syscall.ERROR_ACCESS_DENIED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "access is denied")
}
