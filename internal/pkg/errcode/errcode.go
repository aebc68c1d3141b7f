package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrSyncBusy
	ErrSourceUnreachable
	ErrScheduleInvalid
	ErrJobNotCancellable
)
