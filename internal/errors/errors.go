package errors

import "errors"

// Authentication errors.
var (
	ErrNotConfigured   = errors.New("xero credentials not configured")
	ErrUnauthenticated = errors.New("not authenticated with xero")
	ErrNoTokens        = errors.New("no stored tokens")
)

// Client/transport errors.
var (
	ErrRateLimited = errors.New("xero rate limit exceeded")
	ErrNotFound    = errors.New("not found")
)
