package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when nothing listens on the daemon socket.
	ErrDaemonNotRunning = errors.New("rixcalc daemon not running")

	// ErrPermissionDenied is returned when the socket is not accessible to the current user.
	ErrPermissionDenied = errors.New("permission denied on daemon socket")

	// ErrNotFound is returned for unknown outputs or routes.
	ErrNotFound = errors.New("not found")
)
