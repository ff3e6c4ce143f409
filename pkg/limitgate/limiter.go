package limitgate

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/limitgate/limitgate/pkg/limitgate/store"
)

// Limiter is the admission-control engine. It resolves a key and tier from
// each request, charges one increment against the currently active counter
// store, and returns a Decision.
//
// All collaborators are injected at construction; there are no package
// globals, so tests can substitute a fake counter store.
type Limiter struct {
	policies    *PolicyTable
	keys        *KeyResolver
	tiers       *TierResolver
	distributed store.CounterStore
	local       *store.MemoryStore
	health      *HealthMonitor
	log         *zap.Logger
	metrics     *Metrics
	extractor   RequestExtractor

	probeInterval time.Duration
	sweepInterval time.Duration
}

// New creates a Limiter enforcing the given policy table against the
// distributed store, with an in-process fallback. See the With* options for
// logging, metrics, probing, and resolver overrides.
func New(policies *PolicyTable, distributed store.CounterStore, opts ...Option) (*Limiter, error) {
	if policies == nil {
		return nil, errors.New("policy table is required")
	}

	l := &Limiter{
		policies:      policies,
		keys:          NewKeyResolver(),
		tiers:         NewTierResolver(policies.DefaultTier()),
		distributed:   distributed,
		local:         store.NewMemoryStore(),
		log:           zap.NewNop(),
		extractor:     ExtractFromHeaders,
		probeInterval: 5 * time.Second,
		sweepInterval: time.Minute,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	if l.health == nil {
		var probe ProbeFunc
		if pinger, ok := distributed.(interface {
			Ping(ctx context.Context) error
		}); ok {
			probe = pinger.Ping
		}
		l.health = NewHealthMonitor(probe, l.probeInterval, l.log)
	}
	l.health.metrics = l.metrics

	return l, nil
}

// Check decides whether one request is admitted. It never surfaces a store
// transport failure to the caller: when the distributed store errors, the
// health monitor is signalled and the same call retries once against the
// local store.
//
// The increment is not rolled back on deny; an over-limit attempt still
// consumes window accounting, so probing the limit is never free.
func (l *Limiter) Check(ctx context.Context, req Request) (*Decision, error) {
	start := time.Now()

	key, err := l.keys.Resolve(req)
	if err != nil {
		return nil, err
	}
	tier := l.tiers.Resolve(req)
	policy := l.policies.Lookup(tier)

	active := store.CounterStore(l.local)
	storeName := "local"
	if l.distributed != nil && l.health.Healthy() {
		active = l.distributed
		storeName = "distributed"
	}

	usage, err := active.Increment(ctx, key, policy.Window)
	if err != nil && storeName == "distributed" {
		if l.metrics != nil {
			l.metrics.storeErrors.Inc()
		}
		l.health.ReportFailure(err)
		storeName = "local"
		usage, err = l.local.Increment(ctx, key, policy.Window)
	}
	if err != nil {
		// The local store cannot fail today; if it ever does, admit
		// rather than reject on infrastructure grounds.
		l.log.Error("counter store failed, admitting without accounting",
			zap.String("key", key), zap.Error(err))
		return &Decision{
			Allowed:   true,
			Limit:     policy.Limit,
			Remaining: policy.Limit,
			ResetAt:   time.Now().Add(policy.Window),
			Key:       key,
			Tier:      policy.Tier,
		}, nil
	}

	remaining := policy.Limit - usage.Count
	if remaining < 0 {
		remaining = 0
	}

	decision := &Decision{
		Allowed:   usage.Count <= policy.Limit,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   usage.ExpiresAt,
		Key:       key,
		Tier:      policy.Tier,
	}

	if l.metrics != nil {
		l.metrics.recordCheck(policy.Tier, decision.Allowed, storeName, time.Since(start))
	}
	if !decision.Allowed {
		l.log.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.String("tier", policy.Tier),
			zap.Int64("limit", policy.Limit),
			zap.Time("reset_at", decision.ResetAt))
	}

	return decision, nil
}

// CheckHTTP runs Check on a Request built by the configured extractor.
func (l *Limiter) CheckHTTP(r *http.Request) (*Decision, error) {
	return l.Check(r.Context(), l.extractor(r))
}

// Health exposes the store health switch, e.g. for a readiness endpoint.
func (l *Limiter) Health() *HealthMonitor {
	return l.health
}

// Start launches the background probe loop and the local store sweep. Call
// the returned function on shutdown.
func (l *Limiter) Start() func() {
	stopProbe := l.health.Start()
	stopSweep := l.local.StartSweep(l.sweepInterval)
	return func() {
		stopProbe()
		stopSweep()
	}
}
