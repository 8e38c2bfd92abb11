//go:build linux

package auth

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	keyringBackend   = "secret-service"
	keyringSupported = true
)

// Secret Service and D-Bus error names that mean the vault refused access.
var deniedErrorNames = map[string]bool{
	"org.freedesktop.Secret.Error.IsLocked":                       true,
	"org.freedesktop.DBus.Error.AccessDenied":                     true,
	"org.freedesktop.DBus.Error.AuthFailed":                       true,
	"org.freedesktop.DBus.Error.InteractiveAuthorizationRequired": true,
}

// go-keyring reports a dismissed unlock prompt with this message.
const dismissedUnlockPrefix = "failed to unlock correct collection"

// isAccessDenied matches a locked collection, a D-Bus permission error or a dismissed
// unlock prompt. A missing Secret Service daemon is reported as a plain error.
func isAccessDenied(err error) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return deniedErrorNames[dbusErr.Name]
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr != nil {
		return deniedErrorNames[dbusErrPtr.Name]
	}
	return strings.HasPrefix(err.Error(), dismissedUnlockPrefix)
}
