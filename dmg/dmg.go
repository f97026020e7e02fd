// Package dmg assembles the emulated machine: cartridge, bus, timing coordinator,
// compositor, synthesizer and CPU, and runs it one instruction or one frame at a time.
package dmg

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/cartridge"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/fault"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/regs"
	"github.com/valerio/go-dmg/dmg/timer"
	"github.com/valerio/go-dmg/dmg/video"
)

// ErrStopped is returned by RunFrame once Stop has been called.
var ErrStopped = errors.New("emulation stopped")

// DMG is one emulated Game Boy. It is not safe for concurrent use, except for Stop
// and the APU, which may be pulled from another goroutine.
type DMG struct {
	header  cartridge.Header
	storage cartridge.Storage

	regs       *regs.File
	rtc        *memory.RTC
	mmu        *memory.MMU
	cpu        *cpu.CPU
	timer      *timer.Coordinator
	compositor *video.Compositor
	frame      *video.FrameBuffer
	apu        *audio.APU

	handler    fault.Handler
	beforeStep func()
	logger     *slog.Logger
	stopped    atomic.Bool
	frames     uint64
}

// New validates the cartridge header and builds a machine in the post-boot state.
// Header errors wrap cartridge.ErrInvalidHash or cartridge.ErrCartridgeUnsupported.
func New(storage cartridge.Storage, opts ...Option) (*DMG, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	header, err := cartridge.ParseHeader(storage)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	d := &DMG{
		header:  header,
		storage: storage,
		regs:    &regs.File{},
		frame:   video.NewFrameBuffer(),
		apu:     cfg.apu,
		logger:  cfg.logger,
	}
	d.regs.Window.SkipFrames = cfg.frameSkip
	d.regs.Window.Interlace = cfg.interlace

	if header.HasRTC {
		d.rtc = &memory.RTC{}
		d.rtc.SetTime(cfg.clock.Now())
	}
	mbc, err := memory.NewMBC(storage, header, d.rtc)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	// The CPU is not built yet, so faults go through a forwarder.
	var faults fault.Handler = fault.HandlerFunc(func(kind fault.Kind, value uint16) {
		d.fault(kind, value)
	})
	d.mmu = memory.New(mbc, d.regs, faults)
	d.mmu.SetLogger(cfg.logger)

	if d.apu == nil {
		d.apu = audio.New()
	}
	d.mmu.SetAudio(d.apu)

	var sink video.LineSink = d.frame
	if cfg.sink != nil {
		sink = fanOut{d.frame, cfg.sink}
	}
	d.compositor = video.NewCompositor(d.mmu, d.regs, sink)
	d.timer = timer.New(d.regs, cfg.peer, d.compositor)
	d.mmu.OnLCDDisable(d.timer.ResetLine)

	var cpuOpts []cpu.Option
	if cfg.immediateEI {
		cpuOpts = append(cpuOpts, cpu.WithImmediateEI())
	}
	d.cpu = cpu.New(d.mmu, faults, cpuOpts...)

	if cfg.faults == nil {
		h := fault.NewLogHandler()
		h.Logger = cfg.logger
		cfg.faults = h
	}
	if h, ok := cfg.faults.(*fault.LogHandler); ok && h.CPU == nil {
		h.CPU = d.cpu
	}
	d.handler = cfg.faults

	d.reset()

	d.logger.Debug("cartridge loaded",
		"title", header.Title,
		"mbc", header.MBC.String(),
		"rom_banks", header.ROMBanks,
		"ram_banks", header.RAMBanks,
		"battery", header.HasBattery,
		"rtc", header.HasRTC)

	return d, nil
}

// Step executes one instruction, or one interrupt dispatch plus the handler's first
// instruction, and advances the timing coordinator by its cost.
func (d *DMG) Step() int {
	if d.beforeStep != nil {
		d.beforeStep()
	}
	cycles := d.cpu.Step()
	d.timer.Advance(cycles)
	return cycles
}

// RunFrame steps until the next VBlank entry and clears the frame flag. While the
// display is off no VBlank occurs, so it returns after one frame's worth of cycles.
func (d *DMG) RunFrame() error {
	elapsed := 0
	for !d.regs.Frame {
		if d.stopped.Load() {
			return ErrStopped
		}
		elapsed += d.Step()

		if !d.regs.LCDC.Enabled() && elapsed >= timer.LineCycles*timer.Lines {
			break
		}
	}
	d.regs.Frame = false
	d.frames++
	return nil
}

// BeforeStep registers fn to run before every Step, for tracing. nil removes it.
func (d *DMG) BeforeStep(fn func()) {
	d.beforeStep = fn
}

// Stop makes RunFrame return ErrStopped at the next instruction boundary. It can be
// called from a fault handler or another goroutine.
func (d *DMG) Stop() {
	d.stopped.Store(true)
}

// Stopped reports whether Stop has been called since the last Reset.
func (d *DMG) Stopped() bool {
	return d.stopped.Load()
}

// Reset returns the machine to the post-boot state. Cartridge RAM, bank registers
// and the RTC are preserved.
func (d *DMG) Reset() {
	d.reset()
	d.apu.Reset()
}

func (d *DMG) reset() {
	d.regs.Reset()
	d.mmu.Reset()
	d.cpu.Reset()
	d.timer.Reset()
	d.frames = 0
	d.stopped.Store(false)
}

func (d *DMG) fault(kind fault.Kind, value uint16) {
	if d.handler != nil {
		d.handler.Fault(kind, value)
	}
}

// Press marks a key as held.
func (d *DMG) Press(key memory.JoypadKey) {
	d.mmu.PressKey(key)
}

// Release marks a key as released.
func (d *DMG) Release(key memory.JoypadKey) {
	d.mmu.ReleaseKey(key)
}

// SetJoypad replaces the whole active-low key mask.
func (d *DMG) SetJoypad(mask uint8) {
	d.mmu.SetJoypad(mask)
}

// SyncRTC advances the cartridge clock by the whole seconds elapsed since the last
// sync. It returns the number of ticks applied, zero for carts without a clock.
func (d *DMG) SyncRTC(now time.Time) int {
	if d.rtc == nil {
		return 0
	}
	return d.rtc.Sync(now)
}

// Header returns the parsed cartridge header.
func (d *DMG) Header() cartridge.Header { return d.header }

// Storage returns the cartridge storage the machine was built with.
func (d *DMG) Storage() cartridge.Storage { return d.storage }

// RTC returns the cartridge clock, or nil.
func (d *DMG) RTC() *memory.RTC { return d.rtc }

func (d *DMG) CPU() *cpu.CPU                   { return d.cpu }
func (d *DMG) MMU() *memory.MMU                { return d.mmu }
func (d *DMG) Registers() *regs.File           { return d.regs }
func (d *DMG) Timer() *timer.Coordinator       { return d.timer }
func (d *DMG) APU() *audio.APU                 { return d.apu }
func (d *DMG) FrameBuffer() *video.FrameBuffer { return d.frame }

// Frames returns the number of frames completed since the last Reset.
func (d *DMG) Frames() uint64 { return d.frames }

// fanOut copies each line to several sinks.
type fanOut []video.LineSink

func (f fanOut) DrawLine(line uint8, pixels *video.Line) {
	for _, s := range f {
		s.DrawLine(line, pixels)
	}
}
