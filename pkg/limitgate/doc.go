// Package limitgate provides tiered, distributed admission control for Go
// services.
//
// Limitgate limits how often a client identity may invoke a protected
// operation within a fixed time window, with per-tier quotas (free, pro,
// enterprise, ...) and a Redis-backed counter store that fails over to an
// in-process store when Redis is unreachable.
//
// # Quick Start
//
//	policies, err := limitgate.NewPolicyTable("free",
//	    limitgate.Policy{Tier: "free", Limit: 100, Window: time.Minute},
//	    limitgate.Policy{Tier: "pro", Limit: 1000, Window: time.Minute},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	limiter, err := limitgate.New(policies, store.NewRedisStore(client, "limitgate"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stop := limiter.Start()
//	defer stop()
//
//	decision, err := limiter.Check(ctx, limitgate.Request{
//	    PrincipalID:   "42",
//	    PrincipalTier: "pro",
//	    OriginAddr:    "203.0.113.9",
//	})
//	if !decision.Allowed {
//	    fmt.Printf("rejected, retry after %v\n", decision.RetryAfter(time.Now()))
//	}
//
// # HTTP Middleware
//
// The middleware renders decisions as standard rate-limit headers and 429:
//
//	http.Handle("/api/", limiter.Middleware(yourHandler))
//
// # Key Derivation
//
// Keys are derived by a prioritized strategy chain, first match wins:
// authenticated principal ("user:42"), credential prefix ("apikey:abc123de"),
// then network origin ("ip:203.0.113.9"). Authenticated callers are thus
// limited on identity, so users behind a shared NAT are not penalized
// collectively once they sign in.
//
// # Failure Semantics
//
// A transport error from Redis never rejects a request. The failing call
// retries once against the local store, the health monitor flips to degraded
// mode, and a background probe restores distributed mode once Redis answers
// again. Callers only ever see "allowed" or "rate limited".
package limitgate
