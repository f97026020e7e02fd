package cpu

import (
	"github.com/valerio/go-dmg/dmg/bit"
	"github.com/valerio/go-dmg/dmg/fault"
)

// Opcode executes one decoded instruction and returns the cycles it took,
// including any extra cost of a taken branch.
type Opcode func(*CPU) int

// opCycles is the base cost of every opcode. Conditional branches add their
// taken penalty on top, 0xCB is replaced by the prefixed instruction cost.
var opCycles = [256]int{
	4, 12, 8, 8, 4, 4, 8, 4, 20, 8, 8, 8, 4, 4, 8, 4,
	4, 12, 8, 8, 4, 4, 8, 4, 12, 8, 8, 8, 4, 4, 8, 4,
	8, 12, 8, 8, 4, 4, 8, 4, 8, 8, 8, 8, 4, 4, 8, 4,
	8, 12, 8, 8, 12, 12, 12, 4, 8, 8, 8, 8, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	8, 8, 8, 8, 8, 8, 4, 8, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	4, 4, 4, 4, 4, 4, 8, 4, 4, 4, 4, 4, 4, 4, 8, 4,
	8, 12, 12, 16, 12, 16, 8, 16, 8, 16, 12, 8, 12, 24, 8, 16,
	8, 12, 12, 4, 12, 16, 8, 16, 8, 16, 12, 4, 12, 4, 8, 16,
	12, 12, 8, 4, 4, 16, 8, 16, 16, 4, 16, 4, 4, 4, 8, 16,
	12, 12, 8, 4, 4, 16, 8, 16, 12, 8, 16, 4, 4, 4, 8, 16,
}

// invalidOpcodes have no instruction on the SM83.
var invalidOpcodes = []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}

// taken branch penalties
const (
	jumpTaken = 4
	callTaken = 12
	retTaken  = 12
)

var opcodes [256]Opcode

func init() {
	for i := 0; i < 256; i++ {
		op := uint8(i)
		base := opCycles[i]
		opcodes[i] = decode(op, base)
	}
}

// decode builds the handler for a non-prefixed opcode from its bit fields.
// The SM83 encoding groups most instructions as xx yyy zzz where yyy and zzz
// select registers, conditions or ALU operations.
func decode(op uint8, base int) Opcode {
	y := (op >> 3) & 7
	z := op & 7
	p := y >> 1

	switch {
	case op == 0x76:
		return func(c *CPU) int {
			c.halted = true
			return base
		}
	case op >= 0x40 && op < 0x80:
		// LD r,r'
		return func(c *CPU) int {
			c.setReg8(y, c.reg8(z))
			return base
		}
	case op >= 0x80 && op < 0xC0:
		// ALU A,r
		return func(c *CPU) int {
			c.alu(y, c.reg8(z))
			return base
		}
	case op >= 0xC0 && z == 6:
		// ALU A,n
		return func(c *CPU) int {
			c.alu(y, c.readImmediate())
			return base
		}
	case op >= 0xC0 && z == 7:
		// RST
		vector := uint16(y) * 8
		return func(c *CPU) int {
			c.pushStack(c.pc)
			c.pc = vector
			return base
		}
	case op < 0x40 && z == 4:
		// INC r
		return func(c *CPU) int {
			c.setReg8(y, c.inc(c.reg8(y)))
			return base
		}
	case op < 0x40 && z == 5:
		// DEC r
		return func(c *CPU) int {
			c.setReg8(y, c.dec(c.reg8(y)))
			return base
		}
	case op < 0x40 && z == 6:
		// LD r,n
		return func(c *CPU) int {
			c.setReg8(y, c.readImmediate())
			return base
		}
	case op < 0x40 && op&0x0F == 0x01:
		// LD rr,nn
		return func(c *CPU) int {
			c.setReg16(p, c.readImmediateWord())
			return base
		}
	case op < 0x40 && op&0x0F == 0x03:
		// INC rr
		return func(c *CPU) int {
			c.setReg16(p, c.reg16(p)+1)
			return base
		}
	case op < 0x40 && op&0x0F == 0x0B:
		// DEC rr
		return func(c *CPU) int {
			c.setReg16(p, c.reg16(p)-1)
			return base
		}
	case op < 0x40 && op&0x0F == 0x09:
		// ADD HL,rr
		return func(c *CPU) int {
			c.addHL(c.reg16(p))
			return base
		}
	case op >= 0x20 && op < 0x40 && z == 0:
		// JR cc,e
		cond := y - 4
		return func(c *CPU) int {
			offset := c.readSignedImmediate()
			if !c.condition(cond) {
				return base
			}
			c.pc = uint16(int32(c.pc) + int32(offset))
			return base + jumpTaken
		}
	case op >= 0xC0 && op < 0xE0 && z == 0:
		// RET cc
		return func(c *CPU) int {
			if !c.condition(y) {
				return base
			}
			c.pc = c.popStack()
			return base + retTaken
		}
	case op >= 0xC0 && op < 0xE0 && z == 2:
		// JP cc,nn
		return func(c *CPU) int {
			target := c.readImmediateWord()
			if !c.condition(y) {
				return base
			}
			c.pc = target
			return base + jumpTaken
		}
	case op >= 0xC0 && op < 0xE0 && z == 4:
		// CALL cc,nn
		return func(c *CPU) int {
			target := c.readImmediateWord()
			if !c.condition(y) {
				return base
			}
			c.pushStack(c.pc)
			c.pc = target
			return base + callTaken
		}
	case op >= 0xC0 && op&0x0F == 0x01:
		// POP rr, with AF in place of SP
		if p == 3 {
			return func(c *CPU) int {
				c.setAF(c.popStack())
				return base
			}
		}
		return func(c *CPU) int {
			c.setReg16(p, c.popStack())
			return base
		}
	case op >= 0xC0 && op&0x0F == 0x05:
		// PUSH rr, with AF in place of SP
		if p == 3 {
			return func(c *CPU) int {
				c.pushStack(c.getAF())
				return base
			}
		}
		return func(c *CPU) int {
			c.pushStack(c.reg16(p))
			return base
		}
	}

	for _, invalid := range invalidOpcodes {
		if op == invalid {
			return func(c *CPU) int {
				c.faults.Fault(fault.InvalidOpcode, uint16(op))
				return base
			}
		}
	}

	if special, ok := specialOpcodes[op]; ok {
		return func(c *CPU) int { return special(c) + base }
	}

	// unreachable: every opcode above is covered
	return func(c *CPU) int {
		c.faults.Fault(fault.InvalidOpcode, uint16(op))
		return 4
	}
}

// alu runs one of the 8 accumulator operations selected by bits 3-5.
func (c *CPU) alu(op uint8, value uint8) {
	switch op {
	case 0:
		c.add(value, false)
	case 1:
		c.add(value, true)
	case 2:
		c.sub(value, false)
	case 3:
		c.sub(value, true)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	case 7:
		c.compare(value, false)
	}
}

// specialOpcodes are the instructions without a regular encoding. They return
// only cycles on top of the base cost (0 except for the prefixed page).
var specialOpcodes = map[uint8]Opcode{
	//NOP
	0x00: func(c *CPU) int { return 0 },
	//LD (nn), SP
	0x08: func(c *CPU) int {
		address := c.readImmediateWord()
		c.bus.Write(address, bit.Low(c.sp))
		c.bus.Write(address+1, bit.High(c.sp))
		return 0
	},
	//LD (BC), A
	0x02: func(c *CPU) int {
		c.bus.Write(c.getBC(), c.a)
		return 0
	},
	//LD A, (BC)
	0x0A: func(c *CPU) int {
		c.a = c.bus.Read(c.getBC())
		return 0
	},
	//LD (DE), A
	0x12: func(c *CPU) int {
		c.bus.Write(c.getDE(), c.a)
		return 0
	},
	//LD A, (DE)
	0x1A: func(c *CPU) int {
		c.a = c.bus.Read(c.getDE())
		return 0
	},
	//LDI (HL), A
	0x22: func(c *CPU) int {
		hl := c.getHL()
		c.bus.Write(hl, c.a)
		c.setHL(hl + 1)
		return 0
	},
	//LDI A, (HL)
	0x2A: func(c *CPU) int {
		hl := c.getHL()
		c.a = c.bus.Read(hl)
		c.setHL(hl + 1)
		return 0
	},
	//LDD (HL), A
	0x32: func(c *CPU) int {
		hl := c.getHL()
		c.bus.Write(hl, c.a)
		c.setHL(hl - 1)
		return 0
	},
	//LDD A, (HL)
	0x3A: func(c *CPU) int {
		hl := c.getHL()
		c.a = c.bus.Read(hl)
		c.setHL(hl - 1)
		return 0
	},
	//RLCA
	0x07: func(c *CPU) int {
		c.rotateA(0)
		return 0
	},
	//RRCA
	0x0F: func(c *CPU) int {
		c.rotateA(1)
		return 0
	},
	//RLA
	0x17: func(c *CPU) int {
		c.rotateA(2)
		return 0
	},
	//RRA
	0x1F: func(c *CPU) int {
		c.rotateA(3)
		return 0
	},
	//STOP, treated as NOP
	0x10: func(c *CPU) int { return 0 },
	//JR e
	0x18: func(c *CPU) int {
		offset := c.readSignedImmediate()
		c.pc = uint16(int32(c.pc) + int32(offset))
		return 0
	},
	//DAA
	0x27: func(c *CPU) int {
		c.daa()
		return 0
	},
	//CPL
	0x2F: func(c *CPU) int {
		c.a = ^c.a
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
		return 0
	},
	//SCF
	0x37: func(c *CPU) int {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
		return 0
	},
	//CCF
	0x3F: func(c *CPU) int {
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
		return 0
	},
	//JP nn
	0xC3: func(c *CPU) int {
		c.pc = c.readImmediateWord()
		return 0
	},
	//RET
	0xC9: func(c *CPU) int {
		c.pc = c.popStack()
		return 0
	},
	//RETI
	0xD9: func(c *CPU) int {
		c.pc = c.popStack()
		c.ime = true
		c.eiDelay = 0
		return 0
	},
	//CALL nn
	0xCD: func(c *CPU) int {
		target := c.readImmediateWord()
		c.pushStack(c.pc)
		c.pc = target
		return 0
	},
	//CB prefix
	0xCB: func(c *CPU) int {
		return c.executeCB() - opCycles[0xCB]
	},
	//LDH (n), A
	0xE0: func(c *CPU) int {
		c.bus.Write(0xFF00+uint16(c.readImmediate()), c.a)
		return 0
	},
	//LDH A, (n)
	0xF0: func(c *CPU) int {
		c.a = c.bus.Read(0xFF00 + uint16(c.readImmediate()))
		return 0
	},
	//LD (C), A
	0xE2: func(c *CPU) int {
		c.bus.Write(0xFF00+uint16(c.c), c.a)
		return 0
	},
	//LD A, (C)
	0xF2: func(c *CPU) int {
		c.a = c.bus.Read(0xFF00 + uint16(c.c))
		return 0
	},
	//ADD SP, e
	0xE8: func(c *CPU) int {
		c.sp = c.spOffset()
		return 0
	},
	//LD HL, SP+e
	0xF8: func(c *CPU) int {
		c.setHL(c.spOffset())
		return 0
	},
	//JP (HL)
	0xE9: func(c *CPU) int {
		c.pc = c.getHL()
		return 0
	},
	//LD SP, HL
	0xF9: func(c *CPU) int {
		c.sp = c.getHL()
		return 0
	},
	//LD (nn), A
	0xEA: func(c *CPU) int {
		c.bus.Write(c.readImmediateWord(), c.a)
		return 0
	},
	//LD A, (nn)
	0xFA: func(c *CPU) int {
		c.a = c.bus.Read(c.readImmediateWord())
		return 0
	},
	//DI
	0xF3: func(c *CPU) int {
		c.ime = false
		c.eiDelay = 0
		return 0
	},
	//EI
	0xFB: func(c *CPU) int {
		if c.immediate {
			c.ime = true
			return 0
		}
		if !c.ime {
			// takes effect after the following instruction
			c.eiDelay = 2
		}
		return 0
	},
}

// executeCB runs a 0xCB prefixed instruction and returns its full cost.
func (c *CPU) executeCB() int {
	op := c.readImmediate()
	c.opcode = 0xCB00 | uint16(op)

	y := (op >> 3) & 7
	z := op & 7

	switch op >> 6 {
	case 0:
		c.setReg8(z, c.shift(int(y), c.reg8(z)))
	case 1:
		c.testBit(y, c.reg8(z))
	case 2:
		c.setReg8(z, bit.Reset(y, c.reg8(z)))
	case 3:
		c.setReg8(z, bit.Set(y, c.reg8(z)))
	}

	return cbCycles(op)
}

// cbCycles: 8 for registers, 16 for read-modify-write on (HL), 12 for BIT n,(HL).
func cbCycles(op uint8) int {
	if op&0x07 != 6 {
		return 8
	}
	if op&0xC0 == 0x40 {
		return 12
	}
	return 16
}
