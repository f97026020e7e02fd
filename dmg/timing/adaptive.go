package timing

import (
	"log/slog"
	"time"
)

const (
	spinThreshold = 2 * time.Millisecond
	lateThreshold = 5 * time.Millisecond
	driftWindow   = 60
	driftLimit    = 10 * time.Millisecond
)

// AdaptiveLimiter sleeps for most of the frame and spins for the last couple of
// milliseconds. It drops the schedule when badly late and nudges it when drift
// builds up over a second of frames.
type AdaptiveLimiter struct {
	frame  time.Duration
	next   time.Time
	frames int64

	now   func() time.Time
	sleep func(time.Duration)
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	return newAdaptive(time.Now, time.Sleep)
}

func newAdaptive(now func() time.Time, sleep func(time.Duration)) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		frame: FrameDuration(),
		next:  now(),
		now:   now,
		sleep: sleep,
	}
}

// SetSpeed scales the frame rate; 2 runs twice as fast. Non-positive values are ignored.
func (a *AdaptiveLimiter) SetSpeed(factor float64) {
	if factor <= 0 {
		return
	}
	a.frame = time.Duration(float64(FrameDuration()) / factor)
	a.Reset()
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := a.now()
	wait := a.next.Sub(now)

	switch {
	case wait > spinThreshold:
		a.sleep(wait - time.Millisecond)
		a.spin()
	case wait > 0:
		a.spin()
	case wait < -lateThreshold:
		a.next = now
	}

	a.next = a.next.Add(a.frame)
	a.frames++

	if a.frames%driftWindow == 0 {
		drift := a.now().Sub(a.next)
		if drift.Abs() > driftLimit {
			a.next = a.next.Add(drift / 10)
			slog.Debug("frame timing drift correction", "drift_ms", drift.Milliseconds())
		}
	}
}

func (a *AdaptiveLimiter) spin() {
	for a.now().Before(a.next) {
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.next = a.now()
	a.frames = 0
}
