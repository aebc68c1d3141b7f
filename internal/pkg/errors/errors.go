package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
	ErrTooMany  = errors.New("too many requests")
	ErrInternal = errors.New("internal")
	// ErrBusy signals that a sync pass is already in flight; callers must not
	// queue behind it silently.
	ErrBusy = errors.New("sync already running")
	// ErrNoActiveSources aborts a run before any source is touched.
	ErrNoActiveSources = errors.New("no active sources configured")
	// ErrJobNotCancellable is returned when cancelling a job that already left
	// the pending state.
	ErrJobNotCancellable = errors.New("job is not pending")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
