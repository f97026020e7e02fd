package cpu

import (
	"fmt"
	"strings"
)

// Registers is a snapshot of the register file, used by debuggers and tests.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

func (r Registers) String() string {
	return fmt.Sprintf("AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X SP=%04X PC=%04X",
		r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, r.PC)
}

// Registers returns a copy of the current register values.
func (c *CPU) Registers() Registers {
	return Registers{
		A: c.a, F: c.f, B: c.b, C: c.c, D: c.d, E: c.e, H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
		IME:    c.ime,
		Halted: c.halted,
	}
}

// SetRegisters loads every register from r. The low nibble of F is dropped.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.b, c.c, c.d, c.e, c.h, c.l = r.A, r.B, r.C, r.D, r.E, r.H, r.L
	c.f = r.F & 0xF0
	c.sp, c.pc = r.SP, r.PC
	c.ime, c.halted = r.IME, r.Halted
	c.eiDelay = 0
}

func (c *CPU) PC() uint16     { return c.pc }
func (c *CPU) SP() uint16     { return c.sp }
func (c *CPU) IME() bool      { return c.ime }
func (c *CPU) Halted() bool   { return c.halted }
func (c *CPU) Cycles() uint64 { return c.cycles }

// Instructions is the number of opcodes executed since reset.
func (c *CPU) Instructions() uint64 { return c.instrs }

// Opcode is the last fetched opcode, 0xCBxx for prefixed ones.
func (c *CPU) Opcode() uint16 { return c.opcode }

// FlagString renders F as ZNHC, with '-' for clear flags.
func (c *CPU) FlagString() string {
	var sb strings.Builder
	for _, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if c.isSetFlag(f.flag) {
			sb.WriteByte(f.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
