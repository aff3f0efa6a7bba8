package fts

import "errors"

var (
	// ErrClosed is returned for any operation on a [Stream] that was
	// already closed.
	ErrClosed = errors.New("stream is closed")

	// ErrStopped is returned for any operation on a [Stream] that hit an
	// unrecoverable internal error and can no longer advance.
	ErrStopped = errors.New("stream is stopped")

	// ErrInvalidOptions is returned by [Open] when unknown option bits are
	// set, or when not exactly one of [Logical] and [Physical] was chosen.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNoRoots is returned by [Open] when no root paths were given.
	ErrNoRoots = errors.New("no root paths given")

	// ErrEmptyRoot is returned by [Open] when a given root path is the
	// empty string.
	ErrEmptyRoot = errors.New("empty root path")

	// ErrBadInstruction is returned by [Stream.Set] for an instruction it
	// does not know.
	ErrBadInstruction = errors.New("unknown instruction")

	// ErrNilEntry is returned by [Stream.Set] when no entry was given.
	ErrNilEntry = errors.New("nil entry")
)
