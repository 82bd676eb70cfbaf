package store

import "errors"

var (
	// ErrConflict marks a uniqueness violation or a lost-update race on the
	// (venue, date, slot) assignment key. Callers re-fetch and retry.
	ErrConflict = errors.New("conflict")
	// ErrOverlap marks an availability write whose wall-clock range intersects
	// another slot of the same artist on the same date.
	ErrOverlap = errors.New("overlap")
	ErrNotFound = errors.New("not found")
)
