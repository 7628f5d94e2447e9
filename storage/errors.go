package storage

import "errors"

var (
	// ErrStoreLoad means the store exists but could not be read or parsed.
	// The session is not opened; nothing was written.
	ErrStoreLoad = errors.New("store load failed")

	// ErrPurgeRewrite means the purged store could not be written. The
	// previous store content is left in place.
	ErrPurgeRewrite = errors.New("purge rewrite failed")

	// ErrStoreLocked means another session holds the store.
	ErrStoreLocked = errors.New("store is locked by another session")

	// ErrSessionClosed is returned by Append after Close.
	ErrSessionClosed = errors.New("session closed")
)
