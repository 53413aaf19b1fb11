package credentials

import (
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateThrottlerLimitsPerKey(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	throttler := NewRateThrottler(ThrottleConfig{Limit: 3, Window: time.Minute}, WithThrottleClock(clock.Now))

	for i := 0; i < 3; i++ {
		assert.True(t, throttler.Allow("1.1.1.1"), "attempt %d", i+1)
	}
	assert.False(t, throttler.Allow("1.1.1.1"))

	assert.True(t, throttler.Allow("2.2.2.2"))
	assert.Equal(t, 2, throttler.Len())
}

func TestRateThrottlerRefills(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	throttler := NewRateThrottler(ThrottleConfig{Limit: 2, Window: time.Minute}, WithThrottleClock(clock.Now))

	require.True(t, throttler.Allow("key"))
	require.True(t, throttler.Allow("key"))
	require.False(t, throttler.Allow("key"))

	clock.Advance(30 * time.Second)
	assert.True(t, throttler.Allow("key"))
	assert.False(t, throttler.Allow("key"))
}

func TestRateThrottlerSweepsIdleKeys(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	throttler := NewRateThrottler(ThrottleConfig{Limit: 1, Window: time.Minute}, WithThrottleClock(clock.Now))

	require.True(t, throttler.Allow("a"))
	require.True(t, throttler.Allow("b"))
	require.Equal(t, 2, throttler.Len())

	clock.Advance(2 * time.Minute)
	require.True(t, throttler.Allow("c"))
	assert.Equal(t, 1, throttler.Len())
}

func TestRateThrottlerDisabled(t *testing.T) {
	for _, cfg := range []ThrottleConfig{{}, {Limit: 5}, {Window: time.Minute}} {
		throttler := NewRateThrottler(cfg)
		for i := 0; i < 100; i++ {
			require.True(t, throttler.Allow("key"))
		}
		assert.Equal(t, 0, throttler.Len())
	}
}

func TestThrottleMiddleware(t *testing.T) {
	allow := false
	throttler := ThrottlerFunc(func(key string) bool {
		assert.Equal(t, "127.0.0.1", key)
		return allow
	})

	var limited error
	mw := ThrottleMiddleware(throttler, nil, func(_ router.Context, err error) error {
		limited = err
		return nil
	})

	calls := 0
	handler := mw(func(router.Context) error {
		calls++
		return nil
	})

	ctx := router.NewMockContext()
	ctx.On("IP").Return("127.0.0.1")

	require.NoError(t, handler(ctx))
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, limited, ErrThrottled)

	allow = true
	require.NoError(t, handler(ctx))
	assert.Equal(t, 1, calls)
}

func TestThrottleMiddlewareWithoutHandler(t *testing.T) {
	deny := ThrottlerFunc(func(string) bool { return false })
	handler := ThrottleMiddleware(deny, func(router.Context) string { return "k" }, nil)(func(router.Context) error {
		return nil
	})

	assert.ErrorIs(t, handler(router.NewMockContext()), ErrThrottled)
}
