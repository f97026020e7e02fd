package timing

import "time"

// FPSCounter measures frames per second over one second windows.
type FPSCounter struct {
	start  time.Time
	frames int
	fps    float64
}

// Frame records a completed frame at now and returns the latest measurement.
func (f *FPSCounter) Frame(now time.Time) float64 {
	if f.start.IsZero() {
		f.start = now
	}
	f.frames++

	if elapsed := now.Sub(f.start); elapsed >= time.Second {
		f.fps = float64(f.frames) / elapsed.Seconds()
		f.frames = 0
		f.start = now
	}
	return f.fps
}

// FPS returns the last full-window measurement.
func (f *FPSCounter) FPS() float64 {
	return f.fps
}
