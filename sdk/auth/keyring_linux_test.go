//go:build linux

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/router-for-me/gitpress/sdk/credential"
	"github.com/zalando/go-keyring"
)

func TestIsAccessDeniedLinux(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"locked collection", dbus.Error{Name: "org.freedesktop.Secret.Error.IsLocked", Body: []any{"Cannot get secret of a locked object"}}, true},
		{"wrapped access denied", fmt.Errorf("get: %w", dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}), true},
		{"dismissed unlock prompt", errors.New("failed to unlock correct collection '/org/freedesktop/secrets/aliases/default'"), true},
		{"no daemon", dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown", Body: []any{"The name org.freedesktop.secrets was not provided by any .service files"}}, false},
		{"unrelated error mentioning a prompt", dbus.Error{Name: "org.freedesktop.DBus.Error.Failed", Body: []any{"prompt object not found"}}, false},
		{"plain prompt text", errors.New("prompt timed out"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAccessDenied(tt.err); got != tt.want {
				t.Fatalf("isAccessDenied(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKeyringTokenStore_LockedVaultIsAccessDenied(t *testing.T) {
	keyring.MockInitWithError(dbus.Error{Name: "org.freedesktop.Secret.Error.IsLocked", Body: []any{"collection is locked"}})
	t.Cleanup(keyring.MockInit)

	err := NewKeyringTokenStore().Save(context.Background(), sampleCredential())
	if !errors.Is(err, credential.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if ReasonFor(err) != ReasonVaultAccessDenied {
		t.Fatalf("ReasonFor = %q", ReasonFor(err))
	}
}
