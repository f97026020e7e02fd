package cartridge

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/valerio/go-dmg/dmg/addr"
)

var (
	// ErrInvalidHash is returned when the header checksum at 0x014D does not match.
	ErrInvalidHash = errors.New("invalid header checksum")
	// ErrCartridgeUnsupported is returned when the cartridge type maps to no supported mapper.
	ErrCartridgeUnsupported = errors.New("unsupported cartridge type")
)

// MBC is the kind of memory bank controller fitted on the cartridge.
type MBC uint8

const (
	NoMBC MBC = 0
	MBC1  MBC = 1
	MBC2  MBC = 2
	MBC3  MBC = 3
	MBC5  MBC = 5

	unsupported MBC = 0xFF
)

func (m MBC) String() string {
	switch m {
	case NoMBC:
		return "ROM"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	}
	return fmt.Sprintf("MBC(%d)", uint8(m))
}

const na = unsupported

// mbcTypes maps the cartridge type byte (0x0147) to a mapper.
var mbcTypes = [32]MBC{
	0, 1, 1, 1, na, 2, 2, na, 0, 0, na, 0, 0, 0, na, 3,
	3, 3, 3, 3, na, na, na, na, na, 5, 5, 5, 5, 5, 5, na,
}

// cartRAM marks the cartridge types that carry external RAM.
var cartRAM = [32]bool{
	false, false, true, true, false, false, false, false, true, true, false, false, false, false, false, false,
	true, false, true, true, false, false, false, false, false, false, true, true, false, true, true, false,
}

// romBanks maps the ROM size byte (0x0148) to a bank count.
var romBanks = map[uint8]uint16{
	0x00: 2, 0x01: 4, 0x02: 8, 0x03: 16, 0x04: 32, 0x05: 64, 0x06: 128, 0x07: 256, 0x08: 512,
	0x52: 72, 0x53: 80, 0x54: 96,
}

// ramBanks maps the RAM size byte (0x0149) to an 8KiB bank count.
var ramBanks = [6]uint8{0, 1, 1, 4, 16, 8}

// saveSizes maps the RAM size byte (0x0149) to the size of a save file.
var saveSizes = [5]int{0, 0x800, 0x2000, 0x8000, 0x20000}

// ROM is the read side of the cartridge storage.
type ROM interface {
	ReadROM(address uint32) uint8
}

// Header holds the cartridge metadata the core needs.
type Header struct {
	Title         string
	Type          uint8
	MBC           MBC
	ROMBanks      uint16
	RAMBanks      uint8
	HasRAM        bool
	HasBattery    bool
	HasRTC        bool
	SaveSize      int
	Checksum      uint8
	TitleChecksum uint8
}

// HeaderChecksum computes the checksum over 0x0134-0x014C.
func HeaderChecksum(rom ROM) uint8 {
	var x uint8
	for i := uint32(addr.TitleStart); i <= 0x014C; i++ {
		x = x - rom.ReadROM(i) - 1
	}
	return x
}

// ParseHeader validates the header checksum and resolves the mapper and bank counts.
// It returns ErrInvalidHash or ErrCartridgeUnsupported on failure.
func ParseHeader(rom ROM) (Header, error) {
	var h Header

	h.Checksum = rom.ReadROM(uint32(addr.HeaderHash))
	if HeaderChecksum(rom) != h.Checksum {
		return h, ErrInvalidHash
	}

	h.Type = rom.ReadROM(uint32(addr.CartridgeType))
	if int(h.Type) >= len(mbcTypes) || mbcTypes[h.Type] == unsupported {
		return h, fmt.Errorf("%w: type 0x%02X", ErrCartridgeUnsupported, h.Type)
	}
	h.MBC = mbcTypes[h.Type]
	h.HasRAM = cartRAM[h.Type]

	switch h.Type {
	case 0x03, 0x06, 0x09, 0x0D, 0x0F, 0x10, 0x13, 0x1B, 0x1E:
		h.HasBattery = true
	}
	h.HasRTC = h.Type == 0x0F || h.Type == 0x10

	romSize := rom.ReadROM(uint32(addr.ROMSize))
	banks, ok := romBanks[romSize]
	if !ok {
		return h, fmt.Errorf("%w: rom size 0x%02X", ErrCartridgeUnsupported, romSize)
	}
	h.ROMBanks = banks

	ramSize := rom.ReadROM(uint32(addr.RAMSize))
	if int(ramSize) < len(ramBanks) {
		h.RAMBanks = ramBanks[ramSize]
	}
	if int(ramSize) < len(saveSizes) {
		h.SaveSize = saveSizes[ramSize]
	}

	h.Title = readTitle(rom)
	h.TitleChecksum = TitleChecksum(rom)

	return h, nil
}

// TitleChecksum sums the title bytes. Hosts use it to pick a colour palette.
func TitleChecksum(rom ROM) uint8 {
	var x uint8
	for i := uint32(addr.TitleStart); i <= uint32(addr.TitleEnd); i++ {
		x += rom.ReadROM(i)
	}
	return x
}

// readTitle returns the title up to the first character outside ' '..'_'.
func readTitle(rom ROM) string {
	var sb strings.Builder
	for i := uint32(addr.TitleStart); i <= uint32(addr.TitleEnd); i++ {
		c := rom.ReadROM(i)
		if c < ' ' || c > '_' {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// DisplayTitle returns a printable, trimmed title for logs and window captions.
func (h Header) DisplayTitle() string {
	title := strings.TrimFunc(h.Title, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	})
	if title == "" {
		return "(Untitled)"
	}
	return title
}
