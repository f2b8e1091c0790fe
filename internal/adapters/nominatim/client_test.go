package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when Sleep is called and records every sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestThrottleSpacesCalls(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Second, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := th.Wait(ctx)
		require.NoError(t, err)
		th.Release()
	}

	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.sleeps)
}

func TestThrottleMeasuresFromCallEnd(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Second, clock)
	ctx := context.Background()

	_, err := th.Wait(ctx)
	require.NoError(t, err)
	clock.Advance(800 * time.Millisecond)
	th.Release()
	end := clock.Now()

	waited, err := th.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Second, waited)
	assert.Equal(t, end.Add(time.Second), clock.Now())
}

func TestThrottleNoWaitAfterIdle(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Second, clock)
	ctx := context.Background()

	_, err := th.Wait(ctx)
	require.NoError(t, err)
	th.Release()

	clock.Advance(3 * time.Second)

	waited, err := th.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.sleeps)
}

func TestThrottleWaitHonoursContext(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(time.Second, clock)

	_, err := th.Wait(context.Background())
	require.NoError(t, err)
	th.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = th.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThrottleDisabled(t *testing.T) {
	clock := newFakeClock()
	th := NewThrottle(0, clock)

	for i := 0; i < 5; i++ {
		waited, err := th.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
		th.Release()
	}
	assert.Empty(t, clock.sleeps)
}

func newTestClient(t *testing.T, h http.HandlerFunc, clock Clock) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:     srv.URL,
		UserAgent:   "route-planner-test/1.0",
		MinInterval: time.Second,
		Clock:       clock,
	})
	require.NoError(t, err)
	return c
}

func TestResolveReturnsFirstCandidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "route-planner-test/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat":"48.8588897","lon":"2.3200410","display_name":"Paris, Île-de-France, France"},
			{"lat":"33.66","lon":"-95.55","display_name":"Paris, Texas"}
		]`))
	}, newFakeClock())

	res, ok := c.Resolve(context.Background(), "  Paris ")
	require.True(t, ok)
	assert.InDelta(t, 48.8588897, res.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 2.3200410, res.Coordinate.Lon, 1e-9)
	assert.Equal(t, "Paris, Île-de-France, France", res.DisplayName)
}

func TestResolveNotFoundCases(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "empty result", status: http.StatusOK, payload: `[]`},
		{name: "server error", status: http.StatusInternalServerError, payload: `oops`},
		{name: "bad payload", status: http.StatusOK, payload: `{"not":"a list"}`},
		{name: "bad latitude", status: http.StatusOK, payload: `[{"lat":"north","lon":"2.3","display_name":"x"}]`},
		{name: "out of range", status: http.StatusOK, payload: `[{"lat":"123","lon":"2.3","display_name":"x"}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.payload))
			}, newFakeClock())

			_, ok := c.Resolve(context.Background(), "nowhere")
			assert.False(t, ok)
		})
	}
}

func TestResolveBlankQuerySkipsProvider(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, newFakeClock())

	_, ok := c.Resolve(context.Background(), "   ")
	assert.False(t, ok)
	assert.False(t, called)
}

func TestResolveIsRateLimited(t *testing.T) {
	clock := newFakeClock()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"x"}]`))
	}, clock)

	for _, q := range []string{"a", "b", "c"} {
		_, ok := c.Resolve(context.Background(), q)
		require.True(t, ok)
	}

	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.sleeps)
}

func TestResolveSpacingStartsAfterSlowCall(t *testing.T) {
	clock := newFakeClock()
	var (
		mu     sync.Mutex
		starts []time.Time
		ends   []time.Time
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, clock.Now())
		mu.Unlock()

		clock.Advance(800 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2","display_name":"x"}]`))

		mu.Lock()
		ends = append(ends, clock.Now())
		mu.Unlock()
	}, clock)

	for _, q := range []string{"a", "b"} {
		_, ok := c.Resolve(context.Background(), q)
		require.True(t, ok)
	}

	require.Len(t, starts, 2)
	assert.GreaterOrEqual(t, starts[1].Sub(ends[0]), time.Second)
	assert.Equal(t, []time.Duration{time.Second}, clock.sleeps)
}

func TestNewClientRequiresUserAgent(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://localhost"})
	assert.Error(t, err)
}
