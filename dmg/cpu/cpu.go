package cpu

import (
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/fault"
)

// Bus is the CPU's view of the address space.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptCycles is the cost of vectoring to an interrupt handler.
const interruptCycles = 20

// CPU is the main struct holding SM83 state
type CPU struct {
	// registers
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	ime       bool
	eiDelay   int // steps left until a delayed EI takes effect
	halted    bool
	opcode    uint16
	cycles    uint64
	instrs    uint64
	immediate bool // EI enables interrupts without the one instruction delay

	bus    Bus
	faults fault.Handler
}

// Option configures a CPU.
type Option func(*CPU)

// WithImmediateEI makes EI take effect immediately instead of after the next
// instruction.
func WithImmediateEI() Option {
	return func(c *CPU) { c.immediate = true }
}

// New returns a CPU in its post-boot state. Runtime faults are reported to faults.
func New(bus Bus, faults fault.Handler, opts ...Option) *CPU {
	if faults == nil {
		faults = fault.NewLogHandler()
	}
	c := &CPU{bus: bus, faults: faults}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset loads the register values the boot ROM leaves behind.
func (c *CPU) Reset() {
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100

	c.ime = true
	c.eiDelay = 0
	c.halted = false
	c.cycles = 0
	c.instrs = 0
}

// Step services a pending interrupt, then executes one instruction (a NOP while
// halted). It returns the cycles consumed.
func (c *CPU) Step() int {
	cycles := c.serviceInterrupts()

	if c.halted {
		c.cycles += uint64(cycles + 4)
		return cycles + 4
	}

	op := c.fetch()
	cycles += opcodes[op](c)
	c.instrs++

	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.ime = true
		}
	}

	c.cycles += uint64(cycles)
	return cycles
}

// serviceInterrupts wakes the CPU when an enabled interrupt is requested and, with
// IME set, vectors to the highest priority one. Returns the cycles spent.
func (c *CPU) serviceInterrupts() int {
	if !c.ime && !c.halted {
		return 0
	}

	requested := c.bus.Read(addr.IF)
	pending := requested & c.bus.Read(addr.IE) & uint8(addr.AnyInterrupt)
	if pending == 0 {
		return 0
	}

	c.halted = false
	if !c.ime {
		return 0
	}

	// lowest bit wins: VBlank, STAT, Timer, Serial, Joypad
	interrupt := addr.Interrupt(pending & -pending)

	c.ime = false
	c.eiDelay = 0
	c.pushStack(c.pc)
	c.pc = interrupt.Vector()
	c.bus.Write(addr.IF, requested&^uint8(interrupt))

	return interruptCycles
}

func (c *CPU) fetch() uint8 {
	op := c.bus.Read(c.pc)
	c.opcode = uint16(op)
	c.pc++
	return op
}

// readImmediate returns the byte at PC and advances past it
// this value is known as immediate ('n' in mnemonics), some opcodes use it as a parameter
func (c *CPU) readImmediate() uint8 {
	n := c.bus.Read(c.pc)
	c.pc++
	return n
}

// readImmediateWord returns the little endian word at PC and advances past it ('nn').
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// readSignedImmediate returns the byte at PC as a signed offset ('e').
func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
		return
	}
	c.resetFlag(flag)
}

// setFlags assigns all four flags at once.
func (c *CPU) setFlags(z, n, h, cy bool) {
	c.f = 0
	c.setFlagToCondition(zeroFlag, z)
	c.setFlagToCondition(subFlag, n)
	c.setFlagToCondition(halfCarryFlag, h)
	c.setFlagToCondition(carryFlag, cy)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c *CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// reg8 reads an operand by its 3 bit encoding: B, C, D, E, H, L, (HL), A.
func (c *CPU) reg8(index uint8) uint8 {
	switch index {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.Read(c.getHL())
	}
	return c.a
}

func (c *CPU) setReg8(index uint8, value uint8) {
	switch index {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case 6:
		c.bus.Write(c.getHL(), value)
	default:
		c.a = value
	}
}

// reg16 reads a pair by its 2 bit encoding: BC, DE, HL, SP.
func (c *CPU) reg16(index uint8) uint16 {
	switch index {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	}
	return c.sp
}

func (c *CPU) setReg16(index uint8, value uint16) {
	switch index {
	case 0:
		c.setBC(value)
	case 1:
		c.setDE(value)
	case 2:
		c.setHL(value)
	default:
		c.sp = value
	}
}

// condition evaluates a 2 bit branch condition: NZ, Z, NC, C.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	}
	return c.isSetFlag(carryFlag)
}
