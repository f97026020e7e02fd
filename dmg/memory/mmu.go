package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/fault"
	"github.com/valerio/go-dmg/dmg/regs"
)

// AudioPort is the register interface of the sound unit. 0xFF10-0xFF3F are forwarded
// to it unchanged.
type AudioPort interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	mbc  MBC
	regs *regs.File

	vram [addr.VRAMSize]byte
	wram [addr.WRAMSize]byte
	oam  [addr.OAMSize]byte
	hram [addr.HRAMSize]byte

	Joypad *Joypad
	apu    AudioPort
	faults fault.Handler

	lcdOff func()
	logger *slog.Logger
}

// New creates a bus over the cartridge controller and the shared register file.
func New(mbc MBC, r *regs.File, faults fault.Handler) *MMU {
	if faults == nil {
		faults = fault.NewLogHandler()
	}
	return &MMU{
		mbc:    mbc,
		regs:   r,
		Joypad: NewJoypad(),
		faults: faults,
		logger: slog.Default(),
	}
}

// SetAudio connects the sound unit. Without one, audio registers read 0xFF.
func (m *MMU) SetAudio(apu AudioPort) {
	m.apu = apu
}

// SetLogger replaces the logger used for bus diagnostics.
func (m *MMU) SetLogger(l *slog.Logger) {
	m.logger = l
}

// OnLCDDisable registers fn to run when a write to LCDC turns the display off.
func (m *MMU) OnLCDDisable(fn func()) {
	m.lcdOff = fn
}

// MBC returns the cartridge controller.
func (m *MMU) MBC() MBC {
	return m.mbc
}

// Registers returns the shared register file.
func (m *MMU) Registers() *regs.File {
	return m.regs
}

// VRAM exposes video memory, indexed from 0x8000.
func (m *MMU) VRAM() []byte {
	return m.vram[:]
}

// OAM exposes sprite attribute memory, indexed from 0xFE00.
func (m *MMU) OAM() []byte {
	return m.oam[:]
}

// Reset clears every RAM region. Cartridge state is left untouched.
func (m *MMU) Reset() {
	clear(m.vram[:])
	clear(m.wram[:])
	clear(m.oam[:])
	clear(m.hram[:])
	m.Joypad.SetMask(0xFF)
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.regs.Request(interrupt)
}

// PressKey updates the joypad and raises the joypad interrupt on a new press.
func (m *MMU) PressKey(key JoypadKey) {
	if m.Joypad.Press(key) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// ReleaseKey updates the joypad.
func (m *MMU) ReleaseKey(key JoypadKey) {
	m.Joypad.Release(key)
}

// SetJoypad replaces the whole active-low key mask.
func (m *MMU) SetJoypad(mask uint8) {
	if m.Joypad.SetMask(mask) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

func (m *MMU) Read(address uint16) byte {
	switch address >> 12 {
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7:
		return m.mbc.Read(address)
	case 0x8, 0x9:
		return m.vram[address-addr.VRAM]
	case 0xA, 0xB:
		return m.mbc.Read(address)
	case 0xC, 0xD:
		return m.wram[address-addr.WRAM0]
	case 0xE:
		return m.wram[address-addr.Echo]
	}

	switch {
	case address < addr.OAM:
		return m.wram[address-addr.Echo]
	case address < addr.Unusable:
		return m.oam[address-addr.OAM]
	case address < addr.IO:
		return 0xFF
	case address >= addr.HRAM && address < addr.IE:
		return m.hram[address-addr.HRAM]
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		if m.apu == nil {
			return 0xFF
		}
		return m.apu.ReadRegister(address)
	}

	return m.readIO(address)
}

func (m *MMU) readIO(address uint16) byte {
	r := m.regs
	switch address {
	case addr.P1:
		return m.Joypad.Read(r.P1)
	case addr.SB:
		return r.SB
	case addr.SC:
		return r.SC
	case addr.DIV:
		return r.DIV
	case addr.TIMA:
		return r.TIMA
	case addr.TMA:
		return r.TMA
	case addr.TAC:
		return uint8(r.TAC)
	case addr.IF:
		return r.IF
	case addr.LCDC:
		return uint8(r.LCDC)
	case addr.STAT:
		return r.StatValue()
	case addr.SCY:
		return r.SCY
	case addr.SCX:
		return r.SCX
	case addr.LY:
		return r.LY
	case addr.LYC:
		return r.LYC
	case addr.DMA:
		return r.DMA
	case addr.BGP:
		return r.BGP
	case addr.OBP0:
		return r.OBP0
	case addr.OBP1:
		return r.OBP1
	case addr.WY:
		return r.WY
	case addr.WX:
		return r.WX
	case addr.IE:
		return r.IE
	}
	return 0xFF
}

func (m *MMU) Write(address uint16, value byte) {
	switch address >> 12 {
	case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7:
		m.mbc.Write(address, value)
		return
	case 0x8, 0x9:
		m.vram[address-addr.VRAM] = value
		return
	case 0xA, 0xB:
		m.mbc.Write(address, value)
		return
	case 0xC, 0xD:
		m.wram[address-addr.WRAM0] = value
		return
	case 0xE:
		m.wram[address-addr.Echo] = value
		return
	}

	switch {
	case address < addr.OAM:
		m.wram[address-addr.Echo] = value
		return
	case address < addr.Unusable:
		m.oam[address-addr.OAM] = value
		return
	case address < addr.IO:
		return
	case address >= addr.HRAM && address < addr.IE:
		m.hram[address-addr.HRAM] = value
		return
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		if m.apu != nil {
			m.apu.WriteRegister(address, value)
		}
		return
	}

	if !m.writeIO(address, value) {
		m.logger.Debug("write to unmapped register", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
		m.faults.Fault(fault.InvalidWrite, address)
	}
}

// writeIO stores an I/O register write. It reports false for registers that do not
// accept writes.
func (m *MMU) writeIO(address uint16, value byte) bool {
	r := m.regs
	switch address {
	case addr.P1:
		r.P1 = value & 0x30
	case addr.SB:
		r.SB = value
	case addr.SC:
		r.SC = value
	case addr.DIV:
		// any write resets the divider
		r.DIV = 0
	case addr.TIMA:
		r.TIMA = value
	case addr.TMA:
		r.TMA = value
	case addr.TAC:
		r.TAC = regs.TimerControl(value)
	case addr.IF:
		// upper 3 bits always read as 1
		r.IF = value | 0xE0
	case addr.LCDC:
		m.writeLCDC(value)
	case addr.STAT:
		// the LY=LYC flag is owned by the LCD
		r.STAT = regs.LCDStatus(value&0x78) | r.STAT&regs.LCDStatus(regs.StatLYCCoinc)
	case addr.SCY:
		r.SCY = value
	case addr.SCX:
		r.SCX = value
	case addr.LYC:
		r.LYC = value
	case addr.DMA:
		m.transferOAM(value)
	case addr.BGP:
		r.SetBGP(value)
	case addr.OBP0:
		r.SetOBP0(value)
	case addr.OBP1:
		r.SetOBP1(value)
	case addr.WY:
		r.WY = value
	case addr.WX:
		r.WX = value
	case addr.IE:
		r.IE = value
	default:
		return false
	}
	return true
}

// writeLCDC only lets the display be switched off during VBlank; outside it the
// enable bit is forced back on.
func (m *MMU) writeLCDC(value byte) {
	r := m.regs
	r.LCDC = regs.LCDControl(value)
	if r.LCDC.Enabled() {
		return
	}

	if r.Mode != regs.VBlank {
		r.LCDC |= regs.LCDControl(regs.LCDEnable)
		return
	}

	r.STAT = r.STAT&^regs.LCDStatus(regs.StatMode) | regs.LCDStatus(regs.VBlank)
	r.LY = 0
	if m.lcdOff != nil {
		m.lcdOff()
	}
}

// transferOAM copies 160 bytes from value<<8 into OAM in one go. Sources from
// 0xF100 up wrap around to the bottom of ROM.
func (m *MMU) transferOAM(value byte) {
	m.regs.DMA = value
	source := uint16(value%0xF1) << 8
	for i := range uint16(addr.OAMSize) {
		m.oam[i] = m.Read(source + i)
	}
}
