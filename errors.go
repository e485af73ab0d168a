package shl

import "errors"

var (
	// ErrInvalidRunState is returned by Run when the bridge is not in
	// the uninitialized state, for example when Run is already active.
	ErrInvalidRunState = errors.New("shl: bridge is not in a runnable state")

	// ErrNoObservedState is returned by room commands that need the
	// current mode or heater state before any room update has arrived.
	ErrNoObservedState = errors.New("shl: no room state observed yet")
)
