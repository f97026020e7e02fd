package dmg

import (
	"log/slog"

	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/fault"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

// Option configures a machine at construction time.
type Option func(*config)

type config struct {
	faults      fault.Handler
	peer        serial.Peer
	sink        video.LineSink
	apu         *audio.APU
	clock       memory.Clock
	logger      *slog.Logger
	immediateEI bool
	frameSkip   bool
	interlace   bool
}

func defaultConfig() config {
	return config{
		clock:  memory.SystemClock,
		logger: slog.Default(),
	}
}

// WithFaultHandler replaces the default slog fault handler. A handler that wants
// to abort execution calls Stop on the machine.
func WithFaultHandler(h fault.Handler) Option {
	return func(c *config) { c.faults = h }
}

// WithSerialPeer attaches a link cable peer.
func WithSerialPeer(p serial.Peer) Option {
	return func(c *config) { c.peer = p }
}

// WithLineSink receives every composited scanline, in addition to the machine's
// own frame buffer.
func WithLineSink(s video.LineSink) Option {
	return func(c *config) { c.sink = s }
}

// WithAPU uses a caller owned synthesizer, typically one already handed to the
// host audio callback.
func WithAPU(a *audio.APU) Option {
	return func(c *config) { c.apu = a }
}

// WithClock sets the wall clock used to seed the cartridge RTC.
func WithClock(clock memory.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithLogger sets the logger for the machine and the default fault handler.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithImmediateEI makes EI take effect at once instead of after the next instruction.
func WithImmediateEI() Option {
	return func(c *config) { c.immediateEI = true }
}

// WithFrameSkip draws only every other frame.
func WithFrameSkip() Option {
	return func(c *config) { c.frameSkip = true }
}

// WithInterlace draws alternating lines on alternating frames.
func WithInterlace() Option {
	return func(c *config) { c.interlace = true }
}
