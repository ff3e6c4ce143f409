package limitgate

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Limiter.
type Option func(*Limiter) error

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(l *Limiter) error {
		if log == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
		}
		l.log = log
		return nil
	}
}

// WithMetrics attaches Prometheus instruments to the engine.
func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) error {
		if m == nil {
			return fmt.Errorf("%w: metrics cannot be nil", ErrInvalidConfig)
		}
		l.metrics = m
		return nil
	}
}

// WithKeyResolver replaces the default principal, credential, origin
// strategy chain.
func WithKeyResolver(kr *KeyResolver) Option {
	return func(l *Limiter) error {
		if kr == nil {
			return fmt.Errorf("%w: key resolver cannot be nil", ErrInvalidConfig)
		}
		l.keys = kr
		return nil
	}
}

// WithRequestExtractor replaces how CheckHTTP and the middleware build a
// Request from an HTTP request. Hosts with upstream authentication use this
// to supply principal ids and tier attributes.
func WithRequestExtractor(fn RequestExtractor) Option {
	return func(l *Limiter) error {
		if fn == nil {
			return fmt.Errorf("%w: request extractor cannot be nil", ErrInvalidConfig)
		}
		l.extractor = fn
		return nil
	}
}

// WithHealthMonitor substitutes a pre-built monitor, mainly for tests that
// need to drive the state machine directly.
func WithHealthMonitor(m *HealthMonitor) Option {
	return func(l *Limiter) error {
		if m == nil {
			return fmt.Errorf("%w: health monitor cannot be nil", ErrInvalidConfig)
		}
		l.health = m
		return nil
	}
}

// WithProbeInterval sets the cadence of the background store probe.
func WithProbeInterval(interval time.Duration) Option {
	return func(l *Limiter) error {
		if interval <= 0 {
			return fmt.Errorf("%w: probe interval must be positive", ErrInvalidConfig)
		}
		l.probeInterval = interval
		return nil
	}
}

// WithSweepInterval sets how often the local fallback store evicts expired
// windows.
func WithSweepInterval(interval time.Duration) Option {
	return func(l *Limiter) error {
		if interval <= 0 {
			return fmt.Errorf("%w: sweep interval must be positive", ErrInvalidConfig)
		}
		l.sweepInterval = interval
		return nil
	}
}
