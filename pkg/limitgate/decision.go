package limitgate

import "time"

// Decision is the outcome of one admission check. It is created fresh per
// request and consumed once by whatever renders it (HTTP headers, an RPC
// error, ...).
type Decision struct {
	// Allowed indicates whether the request should be admitted (true) or
	// rejected (false)
	Allowed bool

	// Limit is the maximum number of requests the caller's tier permits
	// per window
	Limit int64

	// Remaining is how many requests are left in the current window.
	// Never negative: once the window is exhausted it stays 0.
	Remaining int64

	// ResetAt is when the current window expires and counting restarts
	ResetAt time.Time

	// Key is the rate-limit key the check was charged against
	Key string

	// Tier is the quota class the policy was resolved from
	Tier string
}

// RetryAfter returns how long a rejected caller should wait before the
// window resets, rounded up to whole seconds. Zero for allowed decisions.
func (d *Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	// Round up so clients never retry inside the closed window.
	if whole := wait.Truncate(time.Second); whole == wait {
		return whole
	}
	return wait.Truncate(time.Second) + time.Second
}
