package limitgate

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthState reports which counter store the engine is using.
type HealthState int32

const (
	// StateHealthy means the distributed store is reachable and active.
	StateHealthy HealthState = iota

	// StateDegraded means the engine has failed over to the local store.
	StateDegraded
)

func (s HealthState) String() string {
	if s == StateDegraded {
		return "degraded"
	}
	return "healthy"
}

// ProbeFunc checks whether the distributed store is reachable, typically a
// Redis PING.
type ProbeFunc func(ctx context.Context) error

// HealthMonitor owns the process-wide HEALTHY/DEGRADED switch. A background
// loop probes the distributed store on a fixed interval, independent of
// request traffic, so failover and failback do not depend on request volume.
// The limiter additionally reports live call failures inline, which flips
// the switch immediately instead of waiting for the next tick; that bounds
// the slow-timeout experience during an outage to roughly one request.
//
// The state is an atomic: request paths read it lock-free, and all writes
// go through the monitor.
type HealthMonitor struct {
	probe        ProbeFunc
	interval     time.Duration
	probeTimeout time.Duration
	state        atomic.Int32
	log          *zap.Logger
	metrics      *Metrics
}

// NewHealthMonitor creates a monitor in the healthy state. interval governs
// the background probe cadence; log may not be nil (use zap.NewNop()).
func NewHealthMonitor(probe ProbeFunc, interval time.Duration, log *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		probe:        probe,
		interval:     interval,
		probeTimeout: 2 * time.Second,
		log:          log,
	}
}

// State returns the current health state.
func (m *HealthMonitor) State() HealthState {
	return HealthState(m.state.Load())
}

// Healthy reports whether the distributed store is the active one.
func (m *HealthMonitor) Healthy() bool {
	return m.State() == StateHealthy
}

// ReportFailure is the inline signal from the request path: a live call to
// the distributed store just failed. Transitions to degraded immediately.
func (m *HealthMonitor) ReportFailure(err error) {
	if m.state.CompareAndSwap(int32(StateHealthy), int32(StateDegraded)) {
		m.log.Warn("distributed store unavailable, failing over to local store",
			zap.Error(err))
		if m.metrics != nil {
			m.metrics.failovers.Inc()
			m.metrics.degraded.Set(1)
		}
	}
}

// markHealthy transitions back after a successful probe.
func (m *HealthMonitor) markHealthy() {
	if m.state.CompareAndSwap(int32(StateDegraded), int32(StateHealthy)) {
		m.log.Info("distributed store reachable again, resuming distributed mode")
		if m.metrics != nil {
			m.metrics.degraded.Set(0)
		}
	}
}

// Start launches the probe loop. Call the returned function to stop it; the
// monitor otherwise runs for the lifetime of the process.
func (m *HealthMonitor) Start() func() {
	if m.probe == nil || m.interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(m.interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				m.runProbe()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

func (m *HealthMonitor) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()

	if err := m.probe(ctx); err != nil {
		m.ReportFailure(err)
		return
	}
	m.markHealthy()
}
