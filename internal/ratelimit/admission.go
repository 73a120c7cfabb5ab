package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// LocalLimitError is returned when Acquire gives up: every window tested
// free, but a hit lost the race too many times in a row. RetryAfter is the
// time until the contested window resets.
type LocalLimitError struct {
	RetryAfter time.Duration
}

func (e *LocalLimitError) Error() string {
	return fmt.Sprintf("local rate limit exceeded, retry after %s", e.RetryAfter)
}

// Admitter runs the admission protocol: before a request may be issued, one
// unit of quota must be consumed from every window the endpoint is bound to.
//
// The loop tests every binding first and only then hits them, so a caller
// sleeping on one exhausted window does not burn quota on the others. Test
// followed by hit is not atomic across bindings; the occasional over-admission
// that allows is handled by the server's own 429 as a second line of defense.
type Admitter struct {
	limiter *Limiter

	// SafetyMargin is added to every computed sleep to keep clock skew
	// between us and the counter store from waking us before the reset.
	SafetyMargin time.Duration

	// MaxHitRetries bounds how many times a lost test-then-hit race is
	// retried before Acquire returns LocalLimitError.
	MaxHitRetries int

	// test seams
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
	now    func() time.Time
}

// NewAdmitter returns an Admitter with the default margin, jitter and retry
// bounds.
func NewAdmitter(limiter *Limiter) *Admitter {
	return &Admitter{
		limiter:       limiter,
		SafetyMargin:  0,
		MaxHitRetries: 3,
		sleep:         sleepCtx,
		jitter:        defaultJitter,
		now:           time.Now,
	}
}

// Stats exposes the underlying limiter's view of one window for telemetry
// logging.
func (a *Admitter) Stats(ctx context.Context, w Window, keys ...string) (WindowStats, error) {
	return a.limiter.WindowStats(ctx, w, keys...)
}

// Acquire blocks until one admission has been consumed from every binding,
// ctx is cancelled, or the hit race is lost more than MaxHitRetries times.
func (a *Admitter) Acquire(ctx context.Context, bindings []Binding) error {
	hitRetries := 0
	for {
		blocked, reset, err := a.testAll(ctx, bindings)
		if err != nil {
			return err
		}
		if blocked {
			d := a.untilReset(reset)
			admissionSleeps.Inc()
			if err := a.sleep(ctx, d); err != nil {
				return err
			}
			continue
		}

		ok, reset, err := a.hitAll(ctx, bindings)
		if err != nil {
			return err
		}
		if ok {
			admissionsGranted.Inc()
			return nil
		}

		// A window that tested free was drained by a concurrent caller
		// before our hit landed.
		hitRacesLost.Inc()
		hitRetries++
		if hitRetries > a.MaxHitRetries {
			return &LocalLimitError{RetryAfter: a.untilReset(reset)}
		}
	}
}

// testAll peeks every binding. When one is exhausted it returns blocked=true
// and that window's reset time.
func (a *Admitter) testAll(ctx context.Context, bindings []Binding) (bool, time.Time, error) {
	for _, b := range bindings {
		ok, err := a.limiter.Test(ctx, b.Window, b.Keys...)
		if err != nil {
			return false, time.Time{}, fmt.Errorf("test window %s: %w", b.Window.Namespace, err)
		}
		if !ok {
			stats, err := a.limiter.WindowStats(ctx, b.Window, b.Keys...)
			if err != nil {
				return false, time.Time{}, fmt.Errorf("window stats %s: %w", b.Window.Namespace, err)
			}
			return true, stats.Reset, nil
		}
	}
	return false, time.Time{}, nil
}

// hitAll consumes one admission from each binding in order. On a failed hit
// it reports the failing window's reset time. Admissions already consumed by
// earlier bindings in the list are not returned; the windows are sized with
// enough headroom below the server quota that the leak is harmless.
func (a *Admitter) hitAll(ctx context.Context, bindings []Binding) (bool, time.Time, error) {
	for _, b := range bindings {
		ok, err := a.limiter.Hit(ctx, b.Window, b.Keys...)
		if err != nil {
			return false, time.Time{}, fmt.Errorf("hit window %s: %w", b.Window.Namespace, err)
		}
		if !ok {
			stats, serr := a.limiter.WindowStats(ctx, b.Window, b.Keys...)
			if serr != nil {
				return false, time.Time{}, fmt.Errorf("window stats %s: %w", b.Window.Namespace, serr)
			}
			return false, stats.Reset, nil
		}
	}
	return true, time.Time{}, nil
}

// untilReset computes how long to sleep for a window resetting at reset,
// with the safety margin and a positive jitter to spread waiters that would
// otherwise all wake on the same boundary.
func (a *Admitter) untilReset(reset time.Time) time.Duration {
	d := reset.Sub(a.now())
	if d < 0 {
		d = 0
	}
	return d + a.SafetyMargin + a.jitter()
}

// defaultJitter is uniform over [0, 200ms).
func defaultJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(200 * time.Millisecond)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
