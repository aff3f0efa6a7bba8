package main

import "errors"

var (
	// ErrNoRoots occurs when neither the arguments nor the profile provide
	// any root paths to operate on.
	ErrNoRoots = errors.New("no root paths given")

	// ErrNoManifest occurs when an operation needs a manifest database, but
	// no path for one was configured.
	ErrNoManifest = errors.New("no manifest database configured")

	// ErrScanFailures occurs when a scan finished, but some of its entries
	// could not be read or hashed.
	ErrScanFailures = errors.New("scan finished with failures")

	// ErrWalkFailures occurs when a listing finished, but some of its
	// entries could not be read.
	ErrWalkFailures = errors.New("walk finished with failures")

	// ErrBadTypeFilter occurs when an unknown entry kind was given as a
	// listing filter.
	ErrBadTypeFilter = errors.New("unknown type filter")
)
