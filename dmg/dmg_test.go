package dmg

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/cartridge"
	"github.com/valerio/go-dmg/dmg/fault"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/video"
)

// spin is JR -2, an endless loop at the entry point.
var spin = []byte{0x18, 0xFE}

func newTestDMG(t *testing.T, program []byte, opts ...Option) *DMG {
	t.Helper()
	rom := cartridge.Blank("TEST", 0x00, 0x00, 0x00, program)
	d, err := New(cartridge.NewMemory(rom, nil), opts...)
	require.NoError(t, err)
	return d
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestNew(t *testing.T) {
	t.Run("invalid header checksum", func(t *testing.T) {
		rom := cartridge.Blank("TEST", 0x00, 0x00, 0x00, spin)
		rom[addr.TitleStart] ^= 0x01

		d, err := New(cartridge.NewMemory(rom, nil))
		assert.Nil(t, d)
		assert.True(t, errors.Is(err, cartridge.ErrInvalidHash))
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		rom := cartridge.Blank("TEST", 0xFC, 0x00, 0x00, spin)

		d, err := New(cartridge.NewMemory(rom, nil))
		assert.Nil(t, d)
		assert.True(t, errors.Is(err, cartridge.ErrCartridgeUnsupported))
	})

	t.Run("post-boot state", func(t *testing.T) {
		d := newTestDMG(t, spin)

		assert.Equal(t, "TEST", d.Header().Title)
		assert.Equal(t, uint16(0x0100), d.CPU().PC())
		assert.Equal(t, uint16(0xFFFE), d.CPU().SP())
		assert.Equal(t, uint8(0x91), uint8(d.Registers().LCDC))
		assert.Nil(t, d.RTC())
		assert.NotNil(t, d.APU())
	})
}

func TestRunFrame(t *testing.T) {
	t.Run("stops at vblank", func(t *testing.T) {
		d := newTestDMG(t, spin)
		d.Registers().IF = 0

		require.NoError(t, d.RunFrame())
		assert.Equal(t, uint64(1), d.Frames())
		assert.Equal(t, uint8(144), d.Registers().LY)
		assert.False(t, d.Registers().Frame)
		assert.NotZero(t, d.Registers().IF&uint8(addr.VBlankInterrupt))
		assert.Equal(t, uint64(144), d.FrameBuffer().Lines())

		require.NoError(t, d.RunFrame())
		assert.Equal(t, uint64(2), d.Frames())
		assert.Equal(t, uint64(288), d.FrameBuffer().Lines())
	})

	t.Run("display off still yields", func(t *testing.T) {
		// wait for LY == 144, then LD A,0; LDH (0x40),A; JR -2
		d := newTestDMG(t, []byte{
			0xF0, 0x44, 0xFE, 0x90, 0x20, 0xFA,
			0x3E, 0x00, 0xE0, 0x40, 0x18, 0xFE,
		})

		require.NoError(t, d.RunFrame())
		require.True(t, d.Registers().LCDC.Enabled())

		require.NoError(t, d.RunFrame())
		assert.False(t, d.Registers().LCDC.Enabled())
		assert.Equal(t, uint8(0), d.Registers().LY)
		assert.Equal(t, uint64(2), d.Frames())
	})

	t.Run("stop", func(t *testing.T) {
		d := newTestDMG(t, spin)
		d.Stop()

		assert.ErrorIs(t, d.RunFrame(), ErrStopped)
		assert.True(t, d.Stopped())

		d.Reset()
		assert.False(t, d.Stopped())
		assert.NoError(t, d.RunFrame())
	})
}

func TestFaults(t *testing.T) {
	t.Run("recorded without unwinding", func(t *testing.T) {
		rec := &fault.Recorder{}
		d := newTestDMG(t, []byte{0xD3, 0x18, 0xFE}, WithFaultHandler(rec))

		require.NoError(t, d.RunFrame())
		require.Equal(t, 1, rec.Count(fault.InvalidOpcode))
		assert.Equal(t, uint16(0xD3), rec.Faults[0].Value)
		assert.Equal(t, uint16(0x0101), d.CPU().PC())
	})

	t.Run("handler stops the machine", func(t *testing.T) {
		var d *DMG
		handler := fault.HandlerFunc(func(kind fault.Kind, value uint16) {
			if kind == fault.InvalidOpcode {
				d.Stop()
			}
		})
		d = newTestDMG(t, []byte{0xDD}, WithFaultHandler(handler))

		assert.ErrorIs(t, d.RunFrame(), ErrStopped)
		assert.Equal(t, uint16(0x0101), d.CPU().PC())
	})

	t.Run("default handler gets cpu registers", func(t *testing.T) {
		h := fault.NewLogHandler()
		d := newTestDMG(t, spin, WithFaultHandler(h))
		assert.Same(t, d.CPU(), h.CPU)
	})
}

func TestSerial(t *testing.T) {
	// LD A,'H'; LDH (0x01),A; LD A,0x81; LDH (0x02),A; JR -2
	program := []byte{0x3E, 'H', 0xE0, 0x01, 0x3E, 0x81, 0xE0, 0x02, 0x18, 0xFE}

	t.Run("log sink", func(t *testing.T) {
		sink := serial.NewLogSink()
		d := newTestDMG(t, program, WithSerialPeer(sink))

		require.NoError(t, d.RunFrame())
		assert.Equal(t, "H", sink.Text())
		assert.Equal(t, uint8(0xFF), d.Registers().SB)
		assert.Equal(t, uint8(0x01), d.Registers().SC)
		assert.NotZero(t, d.Registers().IF&uint8(addr.SerialInterrupt))
	})

	t.Run("no peer shifts in 0xFF", func(t *testing.T) {
		d := newTestDMG(t, program)

		require.NoError(t, d.RunFrame())
		assert.Equal(t, uint8(0xFF), d.Registers().SB)
		assert.NotZero(t, d.Registers().IF&uint8(addr.SerialInterrupt))
	})
}

func TestLineOptions(t *testing.T) {
	count := func(n *int) video.LineSink {
		return video.LineSinkFunc(func(uint8, *video.Line) { *n++ })
	}

	tests := []struct {
		name   string
		opts   []Option
		frames int
		want   int
	}{
		{name: "every line", frames: 2, want: 288},
		{name: "frame skip", opts: []Option{WithFrameSkip()}, frames: 2, want: 144},
		{name: "interlace", opts: []Option{WithInterlace()}, frames: 2, want: 144},
		{name: "both", opts: []Option{WithFrameSkip(), WithInterlace()}, frames: 4, want: 144},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 0
			d := newTestDMG(t, spin, append(tt.opts, WithLineSink(count(&n)))...)
			for range tt.frames {
				require.NoError(t, d.RunFrame())
			}
			assert.Equal(t, tt.want, n)
			assert.Equal(t, uint64(tt.want), d.FrameBuffer().Lines())
		})
	}
}

// A program polling the LY=LYC flag in STAT gets past its wait loop.
func TestSTATCoincidencePolling(t *testing.T) {
	d := newTestDMG(t, []byte{
		0x3E, 0x05, // LD A,5
		0xE0, 0x45, // LDH (LYC),A
		0xF0, 0x41, // LDH A,(STAT)
		0xE6, 0x04, // AND 4
		0x28, 0xFA, // JR Z,-6
		0x3E, 0x5A, // LD A,0x5A
		0xE0, 0x80, // LDH (0x80),A
		0x18, 0xFE, // JR -2
	})

	require.NoError(t, d.RunFrame())
	assert.Equal(t, uint8(0x5A), d.MMU().Read(0xFF80))
}

func TestJoypad(t *testing.T) {
	d := newTestDMG(t, spin)
	d.Registers().IF = 0

	d.Press(memory.JoypadStart)
	assert.NotZero(t, d.Registers().IF&uint8(addr.JoypadInterrupt))

	d.Registers().IF = 0
	d.Press(memory.JoypadStart)
	assert.Zero(t, d.Registers().IF&uint8(addr.JoypadInterrupt), "held key raises no new interrupt")

	d.Release(memory.JoypadStart)
	d.SetJoypad(0xFE)
	assert.NotZero(t, d.Registers().IF&uint8(addr.JoypadInterrupt))
}

func TestSyncRTC(t *testing.T) {
	start := time.Date(2024, time.March, 1, 12, 30, 15, 0, time.UTC)
	rom := cartridge.Blank("CLOCK", 0x10, 0x00, 0x03, spin)
	d, err := New(cartridge.NewMemory(rom, make([]byte, 0x8000)), WithClock(fixedClock(start)))
	require.NoError(t, err)
	require.NotNil(t, d.RTC())

	assert.Equal(t, uint8(15), d.RTC().Regs[memory.RTCSeconds])
	assert.Equal(t, uint8(30), d.RTC().Regs[memory.RTCMinutes])
	assert.Equal(t, uint8(12), d.RTC().Regs[memory.RTCHours])
	assert.Equal(t, uint8(start.YearDay()-1), d.RTC().Regs[memory.RTCDayLow])

	assert.Equal(t, 0, d.SyncRTC(start.Add(500*time.Millisecond)))
	assert.Equal(t, 3, d.SyncRTC(start.Add(3*time.Second)))
	assert.Equal(t, uint8(18), d.RTC().Regs[memory.RTCSeconds])

	plain := newTestDMG(t, spin)
	assert.Equal(t, 0, plain.SyncRTC(start))
}

func TestReset(t *testing.T) {
	d := newTestDMG(t, spin)
	require.NoError(t, d.RunFrame())
	d.MMU().Write(0xC000, 0x42)

	d.Reset()

	assert.Equal(t, uint64(0), d.Frames())
	assert.Equal(t, uint16(0x0100), d.CPU().PC())
	assert.Equal(t, uint8(0), d.Registers().LY)
	assert.Equal(t, uint8(0), d.MMU().Read(0xC000))
	assert.Equal(t, 0, d.Timer().Counters().LCD)
}
