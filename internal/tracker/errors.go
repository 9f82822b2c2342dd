package tracker

import "errors"

var (
	// ErrConfiguration reports settings that cannot be installed.
	ErrConfiguration = errors.New("configuration error")
	// ErrUninitialized reports access to state that was never installed.
	ErrUninitialized = errors.New("tracker is not initialized")
)
