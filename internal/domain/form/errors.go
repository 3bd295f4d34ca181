package form

import "errors"

// Sentinel kinds for normalization errors.
var (
	// ErrNoContent signals that the raw definition carries no nested
	// survey/choices structure at all. This is the only hard failure mode
	// of normalization; malformed but well-typed input degrades instead.
	ErrNoContent = errors.New("form definition has no content")
)
