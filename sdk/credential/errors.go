package credential

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no credential is stored.
	ErrNotFound = errors.New("credential not found")
	// ErrAccessDenied means the OS vault refused access (locked keychain, denied prompt).
	ErrAccessDenied = errors.New("credential vault access denied")
	// ErrCorrupt means a stored blob could not be decoded.
	ErrCorrupt = errors.New("stored credential is corrupt")
)

// StoreError records which operation on which backend failed.
type StoreError struct {
	Op      string // "save", "retrieve", "delete"
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	msg := e.Op + " credential"
	if e.Backend != "" {
		msg += " (" + e.Backend + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap builds a StoreError, returning nil for a nil err.
func Wrap(op, backend string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Backend: backend, Err: err}
}

// Errorf is a convenience for backends reporting a formatted cause.
func Errorf(op, backend, format string, args ...any) error {
	return &StoreError{Op: op, Backend: backend, Err: fmt.Errorf(format, args...)}
}
