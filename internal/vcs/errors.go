package vcs

import "errors"

// Common errors returned by Tool operations.
//
// Callers check them with errors.Is():
//
//	if errors.Is(err, vcs.ErrPushRejected) {
//	    // remote has commits we don't; surface as a job failure
//	}
var (
	// ErrNoUpstream is returned when the current branch has no upstream
	// tracking branch configured.
	ErrNoUpstream = errors.New("no upstream tracking branch")

	// ErrNoRemote is returned when an operation requires an origin
	// remote but none is configured.
	ErrNoRemote = errors.New("no origin remote configured")

	// ErrDetached is returned when an operation requires being on a
	// branch but HEAD is detached.
	ErrDetached = errors.New("not on a branch")

	// ErrPushRejected is returned when a push is rejected by the
	// remote, typically a non-fast-forward update.
	ErrPushRejected = errors.New("push rejected by remote")
)

// IsRetryable reports whether the error is likely to succeed on a later
// attempt without repository surgery. Push rejections clear up after
// the remote side is integrated; context timeouts are transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPushRejected)
}
