// Package timer advances the divider, the serial shifter, TIMA and the LCD mode
// state machine by the cycle cost of each executed instruction.
package timer

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/regs"
	"github.com/valerio/go-dmg/dmg/serial"
)

const (
	// DivCycles is the number of cycles per DIV increment.
	DivCycles = 256
	// SerialCycles is the duration of one byte transfer.
	SerialCycles = 4096
	// LineCycles is the length of one scanline.
	LineCycles = 456
	// OAMStart is the offset into a line where HBlank gives way to OAM search.
	OAMStart = 204
	// TransferStart is the offset into a line where pixel transfer begins.
	TransferStart = 284
	// Lines is the number of scanlines per frame, VBlank included.
	Lines = 154
	// VisibleLines is the screen height; line 144 starts VBlank.
	VisibleLines = 144
)

// LineRenderer draws the current scanline. It is called on every entry into
// pixel transfer.
type LineRenderer interface {
	DrawLine()
}

// Counters are the accumulated cycles of each state machine.
type Counters struct {
	Div    int
	TIMA   int
	Serial int
	LCD    int
}

// Coordinator drives the timing side effects of instruction execution.
type Coordinator struct {
	regs     *regs.File
	peer     serial.Peer
	renderer LineRenderer

	counters Counters
}

// New creates a coordinator. peer and renderer may be nil.
func New(r *regs.File, peer serial.Peer, renderer LineRenderer) *Coordinator {
	return &Coordinator{regs: r, peer: peer, renderer: renderer}
}

// SetPeer replaces the link-cable peer.
func (c *Coordinator) SetPeer(peer serial.Peer) {
	c.peer = peer
}

// SetRenderer replaces the scanline renderer.
func (c *Coordinator) SetRenderer(renderer LineRenderer) {
	c.renderer = renderer
}

// Counters returns a copy of the cycle counters.
func (c *Coordinator) Counters() Counters {
	return c.counters
}

// Reset zeroes every counter.
func (c *Coordinator) Reset() {
	c.counters = Counters{}
}

// ResetLine restarts the current scanline, used when the display is switched off.
func (c *Coordinator) ResetLine() {
	c.counters.LCD = 0
}

// Advance applies cycles to every counter.
func (c *Coordinator) Advance(cycles int) {
	c.advanceDiv(cycles)
	c.advanceSerial(cycles)
	c.advanceTIMA(cycles)
	c.advanceLCD(cycles)
}

func (c *Coordinator) advanceDiv(cycles int) {
	c.counters.Div += cycles
	if c.counters.Div >= DivCycles {
		c.regs.DIV++
		c.counters.Div -= DivCycles
	}
}

// advanceSerial runs a transfer while SC bit 7 is set. The peer sees SB when the
// transfer starts and answers when it completes. Without an answer, an internally
// clocked transfer shifts in 0xFF and an externally clocked one waits.
func (c *Coordinator) advanceSerial(cycles int) {
	r := c.regs
	if r.SC&regs.SerialStart == 0 {
		return
	}

	if c.counters.Serial == 0 && c.peer != nil {
		c.peer.Transmit(r.SB)
	}

	c.counters.Serial += cycles
	if c.counters.Serial < SerialCycles {
		return
	}
	c.counters.Serial = 0

	if c.peer != nil {
		if rx, status := c.peer.Receive(); status == serial.Success {
			r.SB = rx
			c.completeSerial()
			return
		}
	}
	if r.SC&regs.SerialInternal != 0 {
		r.SB = 0xFF
		c.completeSerial()
	}
}

func (c *Coordinator) completeSerial() {
	c.regs.SC &= regs.SerialInternal
	c.regs.Request(addr.SerialInterrupt)
}

func (c *Coordinator) advanceTIMA(cycles int) {
	r := c.regs
	if !r.TAC.Enabled() {
		return
	}

	c.counters.TIMA += cycles
	for period := r.TAC.Period(); c.counters.TIMA >= period; {
		c.counters.TIMA -= period

		r.TIMA++
		if r.TIMA == 0 {
			r.Request(addr.TimerInterrupt)
			r.TIMA = r.TMA
		}
	}
}

func (c *Coordinator) advanceLCD(cycles int) {
	r := c.regs
	if !r.LCDC.Enabled() {
		return
	}

	c.counters.LCD += cycles

	switch {
	case c.counters.LCD >= LineCycles:
		c.counters.LCD -= LineCycles
		c.nextLine()
	case r.Mode == regs.HBlank && c.counters.LCD >= OAMStart:
		r.Mode = regs.OAMSearch
		c.requestStat(regs.StatMode2Intr)
	case r.Mode == regs.OAMSearch && c.counters.LCD >= TransferStart:
		r.Mode = regs.Transfer
		if c.renderer != nil {
			c.renderer.DrawLine()
		}
	}
}

// nextLine finishes the current line: the LYC comparison uses the line just
// completed, then LY advances and the new line's mode is entered.
func (c *Coordinator) nextLine() {
	r := c.regs

	if r.LY == r.LYC {
		r.STAT |= regs.LCDStatus(regs.StatLYCCoinc)
		c.requestStat(regs.StatLYCIntr)
	} else {
		r.STAT &^= regs.LCDStatus(regs.StatLYCCoinc)
	}

	r.LY = uint8((int(r.LY) + 1) % Lines)

	switch {
	case r.LY == VisibleLines:
		r.Mode = regs.VBlank
		r.Frame = true
		r.Request(addr.VBlankInterrupt)
		c.requestStat(regs.StatMode1Intr)

		w := &r.Window
		if w.SkipFrames {
			w.SkipPhase = !w.SkipPhase
		}
		if w.Interlace && (!w.SkipFrames || w.SkipPhase) {
			w.InterlacePhase = !w.InterlacePhase
		}
	case r.LY < VisibleLines:
		if r.LY == 0 {
			r.Window.Y = r.WY
			r.Window.Line = 0
		}
		r.Mode = regs.HBlank
		c.requestStat(regs.StatMode0Intr)
	}
}

func (c *Coordinator) requestStat(source uint8) {
	if c.regs.STAT.Has(source) {
		c.regs.Request(addr.LCDSTATInterrupt)
	}
}
