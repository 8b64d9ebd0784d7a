package notify

import "errors"

// Sentinel kinds for announcer errors.
var (
	ErrClosed = errors.New("announcer closed")
)
