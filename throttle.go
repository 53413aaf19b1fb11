package credentials

import (
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"golang.org/x/time/rate"
)

// Throttler decides whether the caller identified by key may proceed.
type Throttler interface {
	Allow(key string) bool
}

// ThrottlerFunc adapts a function to the Throttler interface.
type ThrottlerFunc func(key string) bool

// Allow implements Throttler.
func (f ThrottlerFunc) Allow(key string) bool {
	if f == nil {
		return true
	}
	return f(key)
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateThrottler keeps a token bucket per key. A bucket holds Limit tokens
// and refills one token every Window/Limit.
type RateThrottler struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	window  time.Duration
	now     func() time.Time
	entries map[string]*throttleEntry
	sweptAt time.Time
}

var _ Throttler = (*RateThrottler)(nil)

// RateThrottlerOption customizes a RateThrottler.
type RateThrottlerOption func(*RateThrottler)

// WithThrottleClock overrides the time source.
func WithThrottleClock(now func() time.Time) RateThrottlerOption {
	return func(t *RateThrottler) {
		if now != nil {
			t.now = now
		}
	}
}

// NewRateThrottler builds a throttler from cfg. A zero limit disables throttling.
func NewRateThrottler(cfg ThrottleConfig, opts ...RateThrottlerOption) *RateThrottler {
	t := &RateThrottler{
		burst:   cfg.Limit,
		window:  cfg.Window,
		now:     time.Now,
		entries: map[string]*throttleEntry{},
	}

	switch {
	case cfg.Limit <= 0:
		t.limit = rate.Inf
	case cfg.Window <= 0:
		t.limit = rate.Inf
	default:
		t.limit = rate.Every(cfg.Window / time.Duration(cfg.Limit))
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// Allow consumes one attempt for key.
func (t *RateThrottler) Allow(key string) bool {
	if t.limit == rate.Inf {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	entry, ok := t.entries[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (t *RateThrottler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// sweep drops keys idle for a full window, their buckets are full again.
func (t *RateThrottler) sweep(now time.Time) {
	if now.Sub(t.sweptAt) < t.window {
		return
	}
	for key, entry := range t.entries {
		if now.Sub(entry.lastSeen) >= t.window {
			delete(t.entries, key)
		}
	}
	t.sweptAt = now
}

// ThrottleKeyFunc extracts the throttle key from a request.
type ThrottleKeyFunc func(c router.Context) string

// ClientIPKey keys throttling on the client address.
func ClientIPKey(c router.Context) string {
	return c.IP()
}

// ThrottleMiddleware rejects requests once key exhausted its attempts.
// onLimit receives ErrThrottled.
func ThrottleMiddleware(t Throttler, key ThrottleKeyFunc, onLimit func(router.Context, error) error) router.MiddlewareFunc {
	if key == nil {
		key = ClientIPKey
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if t != nil && !t.Allow(key(c)) {
				if onLimit != nil {
					return onLimit(c, ErrThrottled)
				}
				return ErrThrottled
			}
			return next(c)
		}
	}
}
