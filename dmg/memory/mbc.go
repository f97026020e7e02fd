package memory

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/cartridge"
)

// MBC is the cartridge side of the bus. ROM and RAM bytes live in external storage;
// the controller only tracks bank selection and forwards the resolved offsets.
type MBC interface {
	// Read reads from 0x0000-0x7FFF or 0xA000-0xBFFF.
	Read(address uint16) uint8
	// Write handles bank control writes (0x0000-0x7FFF) and RAM writes (0xA000-0xBFFF).
	Write(address uint16, value uint8)
	// Banks reports the current selection, for debugging and tests.
	Banks() BankState
}

// BankState is a snapshot of a controller's selection registers.
type BankState struct {
	ROM        uint16
	RAM        uint8
	RAMEnabled bool
	Mode       uint8
}

// banks is the selection state shared by every controller type.
type banks struct {
	storage  cartridge.Storage
	romBanks uint16
	ramBanks uint8
	hasRAM   bool
	hasRTC   bool

	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	mode       uint8
}

func newBanks(storage cartridge.Storage, h cartridge.Header) banks {
	romBanks := h.ROMBanks
	if romBanks == 0 {
		romBanks = 2
	}
	return banks{
		storage:  storage,
		romBanks: romBanks,
		ramBanks: h.RAMBanks,
		hasRAM:   h.HasRAM,
		hasRTC:   h.HasRTC,
		romBank:  1,
	}
}

func (b *banks) Banks() BankState {
	return BankState{ROM: b.romBank, RAM: b.ramBank, RAMEnabled: b.ramEnabled, Mode: b.mode}
}

// readROM maps 0x0000-0x7FFF. Bank 0 selected as the high bank reads the fixed bank.
func (b *banks) readROM(address uint16, bank uint16) uint8 {
	if address < addr.ROMN {
		return b.storage.ReadROM(uint32(address))
	}
	offset := int(address) + (int(bank)-1)*addr.ROMBankSize
	return b.storage.ReadROM(uint32(offset))
}

// ramOffset resolves a cartridge RAM address. Banked access applies in MBC1 mode 1
// and for every other controller, as long as the bank exists.
func (b *banks) ramOffset(address uint16, banked bool) uint32 {
	offset := uint32(address - addr.CartRAM)
	if banked && b.ramBank < b.ramBanks {
		offset += uint32(b.ramBank) * addr.CartRAMSize
	}
	return offset
}

func (b *banks) ramAccessible() bool {
	return b.hasRAM && b.ramEnabled
}

func (b *banks) readRAM(address uint16, banked bool) uint8 {
	if !b.ramAccessible() {
		return 0
	}
	return b.storage.ReadRAM(b.ramOffset(address, banked))
}

func (b *banks) writeRAM(address uint16, value uint8, banked bool) {
	if !b.ramAccessible() || b.ramBanks == 0 {
		return
	}
	b.storage.WriteRAM(b.ramOffset(address, banked), value)
}

// enableRAM handles writes to 0x0000-0x1FFF. The enable line also gates the clock
// registers, so clock-only cartridges accept it too.
func (b *banks) enableRAM(value uint8) {
	if b.hasRAM || b.hasRTC {
		b.ramEnabled = value&0x0F == 0x0A
	}
}

func (b *banks) wrapROMBank() {
	b.romBank %= b.romBanks
}

// NoMBC maps a 32KB ROM directly. Cartridge RAM, when present, is always enabled.
type NoMBC struct {
	banks
}

// NewNoMBC creates a controller for cartridges without banking hardware.
func NewNoMBC(storage cartridge.Storage, h cartridge.Header) *NoMBC {
	m := &NoMBC{banks: newBanks(storage, h)}
	m.ramEnabled = true
	return m
}

func (m *NoMBC) Read(address uint16) uint8 {
	if address < addr.VRAM {
		return m.readROM(address, m.romBank)
	}
	return m.readRAM(address, true)
}

func (m *NoMBC) Write(address uint16, value uint8) {
	if address >= addr.CartRAM {
		m.writeRAM(address, value, true)
	}
}

// MBC1 supports up to 2MB of ROM and 32KB of RAM.
//   - 0x0000-0x1FFF: RAM enable (0x0A in the low nibble)
//   - 0x2000-0x3FFF: low 5 bits of the ROM bank, 0 selects bank 1
//   - 0x4000-0x5FFF: RAM bank, also bits 5-6 of the ROM bank
//   - 0x6000-0x7FFF: banking mode. In mode 1 the high ROM bank bits are ignored for
//     reads and RAM accesses become banked.
type MBC1 struct {
	banks
}

// NewMBC1 creates an MBC1 controller.
func NewMBC1(storage cartridge.Storage, h cartridge.Header) *MBC1 {
	return &MBC1{banks: newBanks(storage, h)}
}

func (m *MBC1) Read(address uint16) uint8 {
	if address < addr.VRAM {
		bank := m.romBank
		if m.mode == 1 {
			bank &= 0x1F
		}
		return m.readROM(address, bank)
	}
	return m.readRAM(address, m.mode == 1)
}

func (m *MBC1) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.enableRAM(value)
	case address < 0x4000:
		m.romBank = uint16(value&0x1F) | m.romBank&0x60
		if m.romBank&0x1F == 0 {
			m.romBank++
		}
		m.wrapROMBank()
	case address < 0x6000:
		m.ramBank = value & 0x03
		m.romBank = uint16(value&0x03)<<5 | m.romBank&0x1F
		m.wrapROMBank()
	case address < addr.VRAM:
		m.mode = value & 0x01
	default:
		m.writeRAM(address, value, m.mode == 1)
	}
}

// MBC2 supports up to 256KB of ROM. Control writes only apply when address bit 4
// selects them.
type MBC2 struct {
	banks
}

// NewMBC2 creates an MBC2 controller.
func NewMBC2(storage cartridge.Storage, h cartridge.Header) *MBC2 {
	return &MBC2{banks: newBanks(storage, h)}
}

func (m *MBC2) Read(address uint16) uint8 {
	if address < addr.VRAM {
		return m.readROM(address, m.romBank)
	}
	return m.readRAM(address, true)
}

func (m *MBC2) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		if address&0x10 == 0 {
			m.enableRAM(value)
		}
	case address < 0x4000:
		if address&0x10 != 0 {
			m.romBank = uint16(value & 0x0F)
			if m.romBank == 0 {
				m.romBank = 1
			}
		}
		m.wrapROMBank()
	case address < 0x6000:
	case address < addr.VRAM:
		m.mode = value & 0x01
	default:
		m.writeRAM(address, value, true)
	}
}

// MBC3 supports up to 2MB of ROM, 32KB of RAM and an optional real time clock.
// RAM banks 0x08-0x0C select the clock registers instead of RAM.
type MBC3 struct {
	banks
	RTC *RTC
}

// NewMBC3 creates an MBC3 controller. rtc may be nil for cartridges without a clock.
func NewMBC3(storage cartridge.Storage, h cartridge.Header, rtc *RTC) *MBC3 {
	if rtc == nil {
		rtc = &RTC{}
	}
	return &MBC3{banks: newBanks(storage, h), RTC: rtc}
}

func (m *MBC3) Read(address uint16) uint8 {
	if address < addr.VRAM {
		return m.readROM(address, m.romBank)
	}
	if m.clockSelected() {
		return m.RTC.Register(m.ramBank - 0x08)
	}
	return m.readRAM(address, true)
}

func (m *MBC3) clockSelected() bool {
	return m.ramEnabled && m.ramBank >= 0x08
}

func (m *MBC3) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.enableRAM(value)
	case address < 0x4000:
		m.romBank = uint16(value & 0x7F)
		if m.romBank == 0 {
			m.romBank = 1
		}
		m.wrapROMBank()
	case address < 0x6000:
		m.ramBank = value
	case address < addr.VRAM:
		m.mode = value & 0x01
	default:
		if m.clockSelected() {
			m.RTC.SetRegister(m.ramBank-0x08, value)
			return
		}
		m.writeRAM(address, value, true)
	}
}

// MBC5 supports up to 8MB of ROM through a 9 bit bank number, and 128KB of RAM.
// Unlike the other controllers, bank 0 can be mapped as the high bank.
type MBC5 struct {
	banks
}

// NewMBC5 creates an MBC5 controller.
func NewMBC5(storage cartridge.Storage, h cartridge.Header) *MBC5 {
	return &MBC5{banks: newBanks(storage, h)}
}

func (m *MBC5) Read(address uint16) uint8 {
	if address < addr.VRAM {
		return m.readROM(address, m.romBank)
	}
	return m.readRAM(address, true)
}

func (m *MBC5) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.enableRAM(value)
	case address < 0x3000:
		m.romBank = m.romBank&0x100 | uint16(value)
		m.wrapROMBank()
	case address < 0x4000:
		m.romBank = uint16(value&0x01)<<8 | m.romBank&0xFF
		m.wrapROMBank()
	case address < 0x6000:
		m.ramBank = value & 0x0F
	case address < addr.VRAM:
		m.mode = value & 0x01
	default:
		m.writeRAM(address, value, true)
	}
}

// NewMBC returns the controller for the mapper declared in the header.
func NewMBC(storage cartridge.Storage, h cartridge.Header, rtc *RTC) (MBC, error) {
	switch h.MBC {
	case cartridge.NoMBC:
		return NewNoMBC(storage, h), nil
	case cartridge.MBC1:
		return NewMBC1(storage, h), nil
	case cartridge.MBC2:
		return NewMBC2(storage, h), nil
	case cartridge.MBC3:
		return NewMBC3(storage, h, rtc), nil
	case cartridge.MBC5:
		return NewMBC5(storage, h), nil
	}
	return nil, cartridge.ErrCartridgeUnsupported
}
