package cartridge

// Storage is the cartridge side of the bus: ROM bytes and battery RAM, both owned
// outside the core. Addresses are absolute offsets into the ROM image or RAM dump.
type Storage interface {
	ROM
	ReadRAM(address uint32) uint8
	WriteRAM(address uint32, value uint8)
}

// Memory is an in-memory Storage backed by a ROM image and a RAM dump.
// Out of range accesses read 0xFF and drop writes.
type Memory struct {
	rom []byte
	ram []byte
}

// NewMemory wraps rom and ram. ram may be nil for cartridges without RAM.
func NewMemory(rom, ram []byte) *Memory {
	return &Memory{rom: rom, ram: ram}
}

func (m *Memory) ReadROM(address uint32) uint8 {
	if int(address) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[address]
}

func (m *Memory) ReadRAM(address uint32) uint8 {
	if int(address) >= len(m.ram) {
		return 0xFF
	}
	return m.ram[address]
}

func (m *Memory) WriteRAM(address uint32, value uint8) {
	if int(address) >= len(m.ram) {
		return
	}
	m.ram[address] = value
}

// RAM returns the backing RAM, e.g. to persist it as a save file.
func (m *Memory) RAM() []byte {
	return m.ram
}

// ROMSize returns the size of the ROM image in bytes.
func (m *Memory) ROMSize() int {
	return len(m.rom)
}
