package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. The ticker keeps at most one
// tick buffered, so a frame that finds a tick already waiting ran over its
// budget; those frames are counted by Late and the missed ticks are dropped.
type TickerLimiter struct {
	ticker *time.Ticker
	period time.Duration
	late   uint64
}

func NewTickerLimiter() *TickerLimiter {
	return newTicker(FrameDuration())
}

func newTicker(period time.Duration) *TickerLimiter {
	return &TickerLimiter{ticker: time.NewTicker(period), period: period}
}

func (t *TickerLimiter) WaitForNextFrame() {
	select {
	case <-t.ticker.C:
		t.late++
	default:
		<-t.ticker.C
	}
}

// SetSpeed runs the machine at factor times real speed.
func (t *TickerLimiter) SetSpeed(factor float64) {
	if factor <= 0 {
		return
	}
	t.period = time.Duration(float64(FrameDuration()) / factor)
	t.Reset()
}

// Period is the current time between frames.
func (t *TickerLimiter) Period() time.Duration {
	return t.period
}

// Late is the number of frames since Reset that overran their tick.
func (t *TickerLimiter) Late() uint64 {
	return t.late
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.period)
	t.late = 0
}

// Stop releases the ticker.
func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
