package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageCorrupt means persisted history exists but cannot be read.
	// The run must stop: continuing with an empty history would re-announce everything.
	ErrStorageCorrupt = errors.New("storage corrupt")

	// ErrStoragePersist means a durable write failed after novelty was computed.
	ErrStoragePersist = errors.New("storage persist failed")

	// ErrDuplicateIdentity is a programming error: Insert without a Contains check.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrNoDigestContent is returned by the digest selector when the window is empty.
	// Like io.EOF it is a signal, not a failure: callers skip sending.
	ErrNoDigestContent = errors.New("no digest content")
)

// FetchError is a per-source failure. The run records the source with no
// items and moves on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
