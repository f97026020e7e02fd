// Package timing paces the host loop at the console's frame rate.
package timing

import (
	"fmt"
	"time"

	"github.com/valerio/go-dmg/dmg/audio"
)

// Limiter blocks the run loop between frames.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame is due. It returns at once when
	// the loop is behind schedule.
	WaitForNextFrame()

	// Reset forgets the schedule, used after a pause.
	Reset()
}

// Limiter names accepted by New.
const (
	Adaptive = "adaptive"
	Ticker   = "ticker"
	None     = "none"
)

// New returns the limiter with the given name.
func New(name string) (Limiter, error) {
	switch name {
	case Adaptive, "":
		return NewAdaptiveLimiter(), nil
	case Ticker:
		return NewTickerLimiter(), nil
	case None:
		return NewNoOpLimiter(), nil
	}
	return nil, fmt.Errorf("unknown limiter %q", name)
}

// NewNoOpLimiter returns a limiter that never waits, for headless runs.
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}

// TargetFPS is the native refresh rate, about 59.73 Hz.
func TargetFPS() float64 {
	return float64(audio.ClockRate) / float64(audio.FrameCycles)
}

// FrameDuration is the length of one native frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}
