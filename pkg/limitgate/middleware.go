package limitgate

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Middleware applies admission control ahead of next. It renders the
// Decision as the conventional HTTP surface:
//
//   - X-RateLimit-Limit: requests allowed per window
//   - X-RateLimit-Remaining: requests left in the current window
//   - X-RateLimit-Reset: window expiry as epoch seconds
//   - Retry-After: whole seconds until the window resets (deny only)
//
// Denied requests get 429 with a JSON body. An internal engine error fails
// open: the protected resource stays available and the error is logged, the
// caller never sees an infrastructure failure.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := l.CheckHTTP(r)
		if err != nil {
			l.log.Error("admission check failed, failing open", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := decision.RetryAfter(time.Now())
			w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter/time.Second), 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after_seconds":%d}`+"\n",
				int64(retryAfter/time.Second))
			return
		}

		next.ServeHTTP(w, r)
	})
}
