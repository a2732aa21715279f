package relay

import "errors"

var (
	// ErrTransport wraps any failed Bot API call made while relaying.
	ErrTransport = errors.New("transport fault")
	// ErrStorage wraps correlation store failures.
	ErrStorage = errors.New("storage fault")
	// ErrCorrelationNotFound means the armed target has no stored link.
	ErrCorrelationNotFound = errors.New("correlation not found")
	// ErrUnrecognizedContent means the message matches no content kind.
	ErrUnrecognizedContent = errors.New("unrecognized content kind")
	ErrRateLimited         = errors.New("rate limited")
	ErrNoActiveTarget      = errors.New("no active reply target")
)
