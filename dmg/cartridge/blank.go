package cartridge

import "github.com/valerio/go-dmg/dmg/addr"

// Blank builds a ROM image with a valid header for the given type and size bytes.
// program is placed at the 0x0100 entry point. The image is sized from the ROM size byte.
func Blank(title string, cartType, romSize, ramSize uint8, program []byte) []byte {
	banks, ok := romBanks[romSize]
	if !ok {
		banks = 2
	}
	rom := make([]byte, int(banks)*addr.ROMBankSize)

	copy(rom[0x0100:0x0134], program)
	copy(rom[addr.TitleStart:addr.TitleEnd+1], title)
	rom[addr.CartridgeType] = cartType
	rom[addr.ROMSize] = romSize
	rom[addr.RAMSize] = ramSize
	rom[addr.HeaderHash] = HeaderChecksum(NewMemory(rom, nil))

	return rom
}
