package addr

// memory regions
const (
	// ROM0 is the fixed ROM bank, always mapped to bank 0 of the cartridge.
	ROM0 uint16 = 0x0000
	// ROMN is the switchable ROM bank window.
	ROMN uint16 = 0x4000
	// VRAM is the start of video RAM.
	VRAM uint16 = 0x8000
	// CartRAM is the switchable cartridge RAM window (or RTC registers on MBC3).
	CartRAM uint16 = 0xA000
	// WRAM0 and WRAM1 are the two work RAM banks.
	WRAM0 uint16 = 0xC000
	WRAM1 uint16 = 0xD000
	// Echo mirrors work RAM up to OAM.
	Echo uint16 = 0xE000
	// OAM holds 40 sprites * 4 bytes.
	OAM uint16 = 0xFE00
	// Unusable is the hole between OAM and the I/O block: reads 0xFF, writes are dropped.
	Unusable uint16 = 0xFEA0
	// IO is the start of the I/O register block.
	IO uint16 = 0xFF00
	// HRAM is high RAM, up to (but excluding) IE.
	HRAM uint16 = 0xFF80
)

// region sizes
const (
	ROMBankSize  = 0x4000
	WRAMSize     = 0x2000
	WRAMBankSize = 0x1000
	VRAMSize     = 0x2000
	CartRAMSize  = 0x2000
	OAMSize      = 0xA0
	HRAMSize     = 0x80
)

// gpu registers
const (
	// LCD Control register.
	LCDC uint16 = 0xFF40
	// LCDC Status register.
	STAT uint16 = 0xFF41
	// Scroll Y (SCY) register.
	SCY uint16 = 0xFF42
	// Scroll X (SCX) register.
	SCX uint16 = 0xFF43
	// LCDC Y-Coordinate (readonly) register.
	LY uint16 = 0xFF44
	// LY Compare register.
	LYC uint16 = 0xFF45
	// DMA Transfer and Start register.
	DMA uint16 = 0xFF46
	// BG Palette register.
	BGP uint16 = 0xFF47
	// Object Palette 0 register.
	OBP0 uint16 = 0xFF48
	// Object Palette 1 register.
	OBP1 uint16 = 0xFF49
	// Window Y Position register.
	WY uint16 = 0xFF4A
	// Window X Position register.
	WX uint16 = 0xFF4B
)

// Audio registers live in a single block delegated to the synthesizer.
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	NR10 uint16 = 0xFF10 // Channel 1 sweep
	NR11 uint16 = 0xFF11 // Channel 1 length timer & duty cycle
	NR12 uint16 = 0xFF12 // Channel 1 volume & envelope
	NR13 uint16 = 0xFF13 // Channel 1 period low
	NR14 uint16 = 0xFF14 // Channel 1 period high & control

	NR21 uint16 = 0xFF16 // Channel 2 length timer & duty cycle
	NR22 uint16 = 0xFF17 // Channel 2 volume & envelope
	NR23 uint16 = 0xFF18 // Channel 2 period low
	NR24 uint16 = 0xFF19 // Channel 2 period high & control

	NR30 uint16 = 0xFF1A // Channel 3 DAC enable
	NR31 uint16 = 0xFF1B // Channel 3 length timer
	NR32 uint16 = 0xFF1C // Channel 3 output level
	NR33 uint16 = 0xFF1D // Channel 3 period low
	NR34 uint16 = 0xFF1E // Channel 3 period high & control

	NR41 uint16 = 0xFF20 // Channel 4 length timer
	NR42 uint16 = 0xFF21 // Channel 4 volume & envelope
	NR43 uint16 = 0xFF22 // Channel 4 frequency & randomness
	NR44 uint16 = 0xFF23 // Channel 4 control

	NR50 uint16 = 0xFF24 // Master volume & VIN panning
	NR51 uint16 = 0xFF25 // Sound panning
	NR52 uint16 = 0xFF26 // Sound on/off and channel status

	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// tile data and tile maps, as offsets into VRAM
const (
	TileData0 uint16 = 0x8000 - VRAM
	TileData1 uint16 = 0x8800 - VRAM
	TileMap0  uint16 = 0x9800 - VRAM
	TileMap1  uint16 = 0x9C00 - VRAM
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// joypad
const (
	// P1 is used to read the Joypad state.
	P1 uint16 = 0xFF00
)

// serial I/O
const (
	// SB (Serial transfer data, 0xFF01)
	//
	// Holds the byte to be transmitted. After completion it holds the byte received from
	// the peer (0xFF when nobody answers on an internally clocked transfer).
	SB uint16 = 0xFF01
	// SC (Serial transfer control, 0xFF02)
	//  - Bit 7 (Start): writing 1 starts a transfer, cleared when the byte completes.
	//  - Bit 0 (Clock): 1=internal clock, 0=external clock provided by the peer.
	SC uint16 = 0xFF02
)

// timers
const (
	// DIV is the divider register. Incremented every 256 cycles, writing to it resets it.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter register. Generates an interrupt when it overflows.
	TIMA uint16 = 0xFF05
	// TMA is the timer modulo register. When TIMA overflows, this data will be loaded.
	TMA uint16 = 0xFF06
	// TAC is the timer control register. Used to start/stop and control the timer clock.
	TAC uint16 = 0xFF07
)

// cartridge header
const (
	TitleStart    uint16 = 0x0134
	TitleEnd      uint16 = 0x0143
	CartridgeType uint16 = 0x0147
	ROMSize       uint16 = 0x0148
	RAMSize       uint16 = 0x0149
	HeaderHash    uint16 = 0x014D
)

// Interrupt is an enum that represents one of the possible interrupts.
// Values are the bit masks used in IE and IF.
type Interrupt uint8

const (
	// VBlankInterrupt is fired when the LCD enters line 144.
	VBlankInterrupt Interrupt = 1
	// LCDSTATInterrupt is fired based on one of the conditions in the LCDSTAT register.
	LCDSTATInterrupt Interrupt = 1 << 1
	// TimerInterrupt is fired when the timer register (TIMA) overflows (i.e. goes from 0xFF to 0x00).
	TimerInterrupt Interrupt = 1 << 2
	// SerialInterrupt is fired when a serial transfer has completed on the game link port.
	SerialInterrupt Interrupt = 1 << 3
	// JoypadInterrupt is fired when any of the keypad inputs goes from high to low.
	JoypadInterrupt Interrupt = 1 << 4

	// AnyInterrupt masks the five usable request bits.
	AnyInterrupt Interrupt = 0x1F
)

// Vector returns the handler address of the interrupt: 0x40, 0x48, 0x50, 0x58 or 0x60.
// Only meaningful for single-bit values.
func (i Interrupt) Vector() uint16 {
	v := uint16(0x40)
	for m := i; m > 1; m >>= 1 {
		v += 8
	}
	return v
}

func (i Interrupt) String() string {
	switch i {
	case VBlankInterrupt:
		return "vblank"
	case LCDSTATInterrupt:
		return "stat"
	case TimerInterrupt:
		return "timer"
	case SerialInterrupt:
		return "serial"
	case JoypadInterrupt:
		return "joypad"
	}
	return "unknown"
}
