package nominatim

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so the throttle can be driven by a fake in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Throttle spaces provider calls so that at least a fixed interval passes
// between the end of one call and the start of the next.
//
// The limiter has a burst of one, so its state reduces to the next instant a
// call is allowed. Wait only inspects that instant; Release consumes the token
// when the call returns, which pushes the next slot one interval past the end
// of the call however long the call took. Callers must serialise
// Wait/call/Release.
type Throttle struct {
	limiter  *rate.Limiter
	interval time.Duration
	clock    Clock
}

func NewThrottle(interval time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Throttle{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
		clock:    clock,
	}
}

// Wait blocks until the next call is permitted and returns how long it waited.
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	if t.interval <= 0 {
		return 0, nil
	}

	var waited time.Duration
	for {
		tokens := t.limiter.TokensAt(t.clock.Now())
		if tokens >= 1 {
			return waited, nil
		}

		delay := time.Duration(math.Ceil((1 - tokens) * float64(t.interval)))
		if err := t.clock.Sleep(ctx, delay); err != nil {
			return waited, err
		}
		waited += delay
	}
}

// Release marks the end of a call. The next Wait returns no earlier than one
// interval from now.
func (t *Throttle) Release() {
	if t.interval <= 0 {
		return
	}
	t.limiter.ReserveN(t.clock.Now(), 1)
}
