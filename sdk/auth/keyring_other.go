//go:build !darwin && !windows && !linux

package auth

const (
	keyringBackend   = "unsupported"
	keyringSupported = false
)

func isAccessDenied(error) bool { return false }
