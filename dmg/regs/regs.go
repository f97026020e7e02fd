// Package regs holds the hardware register file shared by the bus, the timing
// coordinator and the pixel compositor. Packed registers are small value types with
// named accessors over the raw byte.
package regs

import "github.com/valerio/go-dmg/dmg/addr"

// LCDMode is the phase of the current scanline, as reported in STAT bits 0-1.
type LCDMode uint8

const (
	HBlank    LCDMode = 0
	VBlank    LCDMode = 1
	OAMSearch LCDMode = 2
	Transfer  LCDMode = 3
)

func (m LCDMode) String() string {
	switch m {
	case HBlank:
		return "hblank"
	case VBlank:
		return "vblank"
	case OAMSearch:
		return "oam"
	case Transfer:
		return "transfer"
	}
	return "?"
}

// LCDC bits.
const (
	LCDEnable    uint8 = 0x80
	WindowMap    uint8 = 0x40
	WindowEnable uint8 = 0x20
	TileSelect   uint8 = 0x10
	BGMap        uint8 = 0x08
	ObjSize      uint8 = 0x04
	ObjEnable    uint8 = 0x02
	BGEnable     uint8 = 0x01
)

// LCDControl wraps LCDC.
type LCDControl uint8

func (c LCDControl) has(mask uint8) bool { return uint8(c)&mask != 0 }

func (c LCDControl) Enabled() bool        { return c.has(LCDEnable) }
func (c LCDControl) WindowEnabled() bool  { return c.has(WindowEnable) }
func (c LCDControl) UnsignedTiles() bool  { return c.has(TileSelect) }
func (c LCDControl) SpritesEnabled() bool { return c.has(ObjEnable) }
func (c LCDControl) BGEnabled() bool      { return c.has(BGEnable) }
func (c LCDControl) TallSprites() bool    { return c.has(ObjSize) }

// BGTileMap returns the VRAM offset of the background tile map.
func (c LCDControl) BGTileMap() uint16 {
	if c.has(BGMap) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// WindowTileMap returns the VRAM offset of the window tile map.
func (c LCDControl) WindowTileMap() uint16 {
	if c.has(WindowMap) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// TileAddress returns the VRAM offset of a background/window tile, honouring the
// signed addressing mode used when TileSelect is clear.
func (c LCDControl) TileAddress(index uint8) uint16 {
	if c.UnsignedTiles() {
		return addr.TileData0 + uint16(index)*16
	}
	return addr.TileData1 + uint16(index+0x80)*16
}

// SpriteHeight is 8 or 16 depending on ObjSize.
func (c LCDControl) SpriteHeight() uint8 {
	if c.TallSprites() {
		return 16
	}
	return 8
}

// STAT bits.
const (
	StatLYCIntr   uint8 = 0x40
	StatMode2Intr uint8 = 0x20
	StatMode1Intr uint8 = 0x10
	StatMode0Intr uint8 = 0x08
	StatLYCCoinc  uint8 = 0x04
	StatMode      uint8 = 0x03
	StatUserBits  uint8 = 0xF8
)

// LCDStatus wraps STAT.
type LCDStatus uint8

func (s LCDStatus) Has(mask uint8) bool { return uint8(s)&mask != 0 }

// TAC bits.
const (
	TimerEnable uint8 = 0x04
	TimerRate   uint8 = 0x03
)

// timerPeriods holds the cycles per TIMA increment for each rate select value.
var timerPeriods = [4]int{1024, 16, 64, 256}

// TimerControl wraps TAC.
type TimerControl uint8

func (t TimerControl) Enabled() bool { return uint8(t)&TimerEnable != 0 }

// Period returns the number of cycles between TIMA increments.
func (t TimerControl) Period() int { return timerPeriods[uint8(t)&TimerRate] }

// SC bits.
const (
	SerialStart    uint8 = 0x80
	SerialInternal uint8 = 0x01
)

// File is the set of I/O registers plus the LCD state they expose.
type File struct {
	DIV  uint8
	TIMA uint8
	TMA  uint8
	TAC  TimerControl

	LCDC LCDControl
	STAT LCDStatus
	SCY  uint8
	SCX  uint8
	LY   uint8
	LYC  uint8
	DMA  uint8
	BGP  uint8
	OBP0 uint8
	OBP1 uint8
	WY   uint8
	WX   uint8

	P1 uint8
	SB uint8
	SC uint8

	IF uint8
	IE uint8

	// Mode is the current LCD mode, merged into STAT on reads.
	Mode LCDMode
	// Frame is raised on VBlank entry and cleared by the run loop.
	Frame bool

	// BGPalette and ObjPalette are BGP and OBP0/OBP1 decoded into shade indices.
	BGPalette  [4]uint8
	ObjPalette [8]uint8

	Window Window
}

// Window holds the per-frame window bookkeeping and the frame skip/interlace toggles.
type Window struct {
	// Y is WY latched at line 0.
	Y uint8
	// Line counts window lines drawn so far in this frame.
	Line uint8

	SkipFrames bool
	Interlace  bool
	// SkipPhase and InterlacePhase flip on every VBlank entry.
	SkipPhase      bool
	InterlacePhase bool
}

// Request raises the interrupt request bit.
func (f *File) Request(i addr.Interrupt) {
	f.IF |= uint8(i)
}

// Pending returns the interrupts that are both requested and enabled.
func (f *File) Pending() addr.Interrupt {
	return addr.Interrupt(f.IF & f.IE & uint8(addr.AnyInterrupt))
}

// SetBGP stores BGP and decodes its shades.
func (f *File) SetBGP(v uint8) {
	f.BGP = v
	decodePalette(f.BGPalette[:], v)
}

// SetOBP0 stores OBP0 and decodes its shades into ObjPalette[0:4].
func (f *File) SetOBP0(v uint8) {
	f.OBP0 = v
	decodePalette(f.ObjPalette[0:4], v)
}

// SetOBP1 stores OBP1 and decodes its shades into ObjPalette[4:8].
func (f *File) SetOBP1(v uint8) {
	f.OBP1 = v
	decodePalette(f.ObjPalette[4:8], v)
}

func decodePalette(dst []uint8, v uint8) {
	for i := range dst {
		dst[i] = (v >> (2 * i)) & 0x03
	}
}

// StatValue returns STAT as seen by the CPU: user bits, the LY=LYC flag and
// the live mode, or VBlank while the display is off.
func (f *File) StatValue() uint8 {
	mode := VBlank
	if f.LCDC.Enabled() {
		mode = f.Mode
	}
	return uint8(f.STAT)&(StatUserBits|StatLYCCoinc) | uint8(mode)
}

// Reset loads the documented post-boot values.
func (f *File) Reset() {
	window := f.Window
	*f = File{}
	f.Window.SkipFrames = window.SkipFrames
	f.Window.Interlace = window.Interlace

	f.TAC = 0xF8
	f.DIV = 0xAC
	f.IF = 0xE1
	f.LCDC = 0x91
	f.SC = 0x7E
	f.Mode = HBlank
	f.SetBGP(0xFC)
	f.SetOBP0(0xFF)
	f.SetOBP1(0x0F)
	f.P1 = 0xCF
}
