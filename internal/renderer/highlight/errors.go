package highlight

import "errors"

// Errors delivered to asynchronous completions.
var (
	// ErrCancelled is reported when a newer request superseded the pass or
	// Cancel was called.
	ErrCancelled = errors.New("highlight: cancelled")

	// ErrDeallocated is reported when the highlighter was closed, or its
	// scheduler or delivery context stopped, before the pass could finish.
	ErrDeallocated = errors.New("highlight: highlighter deallocated")

	// ErrFailed is reported when the capture source or the sink panicked
	// during the pass. The panic value is part of the message.
	ErrFailed = errors.New("highlight: pass failed")
)
