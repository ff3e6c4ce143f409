package limitgate

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoDefaultTier is returned when the policy table has no entry for
	// the configured default tier. This is a startup fault, never seen at
	// request time.
	ErrNoDefaultTier = errors.New("policy table has no default tier entry")

	// ErrEmptyKey is returned when no rate-limit key can be derived from a
	// request (no principal, no credential, no origin address)
	ErrEmptyKey = errors.New("cannot derive rate limit key from request")
)
