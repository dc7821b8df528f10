package atspi

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/mj1618/a11y-tree/internal/model"
)

// ErrorKind classifies a failed remote call.
type ErrorKind string

const (
	// ErrNotImplemented means the remote application does not implement
	// the method. Permanent: retrying cannot succeed.
	ErrNotImplemented ErrorKind = "not-implemented"
	// ErrTransport covers bus-level failures: disconnects, malformed
	// replies, unknown destinations.
	ErrTransport ErrorKind = "transport"
	// ErrTimeout means the call did not complete within its deadline.
	ErrTimeout ErrorKind = "timeout"
)

// RemoteError is a failed call against one remote object.
type RemoteError struct {
	Handle model.Handle
	Op     string // "attributes" or "children"
	Kind   ErrorKind
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Handle, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Temporary reports whether the failure is transient and a single retry
// is worth attempting.
func (e *RemoteError) Temporary() bool { return e.Kind != ErrNotImplemented }

// remoteErr wraps a raw call failure into a classified RemoteError.
func remoteErr(h model.Handle, op string, err error) *RemoteError {
	return &RemoteError{Handle: h, Op: op, Kind: classify(err), Err: err}
}

// classify maps a raw D-Bus failure onto the error taxonomy.
func classify(err error) ErrorKind {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		switch dbusErr.Name {
		case "org.freedesktop.DBus.Error.UnknownMethod",
			"org.freedesktop.DBus.Error.UnknownInterface",
			"org.freedesktop.DBus.Error.UnknownObject",
			"org.freedesktop.DBus.Error.UnknownProperty",
			"org.freedesktop.DBus.Error.NotSupported":
			return ErrNotImplemented
		case "org.freedesktop.DBus.Error.NoReply",
			"org.freedesktop.DBus.Error.Timeout",
			"org.freedesktop.DBus.Error.TimedOut":
			return ErrTimeout
		}
		return ErrTransport
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrTransport
}
