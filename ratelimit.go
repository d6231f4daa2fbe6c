package graceful

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	Rate  float64 // tokens per second
	Burst int     // bucket size; at least 1

	// KeyFunc identifies the client. Defaults to the remote IP.
	KeyFunc func(r *http.Request) string

	// OnLimit answers a refused request. retryAfter is rate.InfDuration when
	// the bucket never refills. Defaults to a 429 problem with Retry-After.
	OnLimit func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

	// MaxIdle drops buckets unused for longer than this. Defaults to 5m.
	MaxIdle time.Duration
}

// RateLimit returns middleware that refuses requests beyond cfg's rate.
// Resources take the same configuration with WithRateLimit.
func RateLimit(cfg RateLimitConfig) Middleware {
	b := newBuckets(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait := b.take(b.key(r), time.Now()); wait > 0 {
				b.onLimit(w, r, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type buckets struct {
	limit   rate.Limit
	burst   int
	maxIdle time.Duration
	key     func(r *http.Request) string
	onLimit func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	b := &buckets{
		limit:   rate.Limit(cfg.Rate),
		burst:   max(cfg.Burst, 1),
		maxIdle: cfg.MaxIdle,
		key:     cfg.KeyFunc,
		onLimit: cfg.OnLimit,
		byKey:   make(map[string]*bucket),
	}
	if b.maxIdle <= 0 {
		b.maxIdle = 5 * time.Minute
	}
	if b.key == nil {
		b.key = remoteHost
	}
	if b.onLimit == nil {
		b.onLimit = tooManyRequests
	}
	return b
}

// take spends one token of key's bucket. It returns zero when the request
// may proceed, or how long the client has to wait for a token.
func (b *buckets) take(key string, now time.Time) time.Duration {
	b.mu.Lock()
	if now.Sub(b.lastSweep) >= b.maxIdle {
		for k, e := range b.byKey {
			if now.Sub(e.lastSeen) > b.maxIdle {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}
	e, ok := b.byKey[key]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.byKey[key] = e
	}
	e.lastSeen = now
	b.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return rate.InfDuration
	}
	wait := res.DelayFrom(now)
	if wait > 0 {
		res.CancelAt(now)
	}
	return wait
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	detail := "request rate exceeded"
	if retryAfter != rate.InfDuration {
		secs := int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		detail = fmt.Sprintf("request rate exceeded, retry in %s", retryAfter.Round(time.Millisecond))
	}
	WriteRequestProblem(w, r, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: detail,
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
