package cpu

import (
	"fmt"

	"github.com/valerio/go-dmg/dmg/bit"
)

// operand names in encoding order
var (
	reg8Names  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	reg16Names = [4]string{"BC", "DE", "HL", "SP"}
	pushNames  = [4]string{"BC", "DE", "HL", "AF"}
	condNames  = [4]string{"NZ", "Z", "NC", "C"}
	aluNames   = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	shiftNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
)

var irregularNames = map[uint8]string{
	0x00: "NOP", 0x02: "LD (BC),A", 0x07: "RLCA", 0x08: "LD (a16),SP",
	0x0A: "LD A,(BC)", 0x0F: "RRCA", 0x10: "STOP", 0x12: "LD (DE),A",
	0x17: "RLA", 0x18: "JR r8", 0x1A: "LD A,(DE)", 0x1F: "RRA",
	0x22: "LD (HL+),A", 0x27: "DAA", 0x2A: "LD A,(HL+)", 0x2F: "CPL",
	0x32: "LD (HL-),A", 0x37: "SCF", 0x3A: "LD A,(HL-)", 0x3F: "CCF",
	0x76: "HALT", 0xC3: "JP a16", 0xC9: "RET", 0xCB: "PREFIX CB",
	0xCD: "CALL a16", 0xD9: "RETI", 0xE0: "LDH (a8),A", 0xE2: "LD (C),A",
	0xE8: "ADD SP,r8", 0xE9: "JP (HL)", 0xEA: "LD (a16),A", 0xF0: "LDH A,(a8)",
	0xF2: "LD A,(C)", 0xF3: "DI", 0xF8: "LD HL,SP+r8", 0xF9: "LD SP,HL",
	0xFA: "LD A,(a16)", 0xFB: "EI",
}

var (
	opcodeNames   [256]string
	opcodeNamesCB [256]string
)

func init() {
	for i := 0; i < 256; i++ {
		opcodeNames[i] = mnemonic(uint8(i))
		opcodeNamesCB[i] = mnemonicCB(uint8(i))
	}
}

func mnemonic(op uint8) string {
	if name, ok := irregularNames[op]; ok {
		return name
	}
	for _, invalid := range invalidOpcodes {
		if op == invalid {
			return "INVALID"
		}
	}

	y := (op >> 3) & 7
	z := op & 7
	p := y >> 1

	switch {
	case op >= 0x40 && op < 0x80:
		return fmt.Sprintf("LD %s,%s", reg8Names[y], reg8Names[z])
	case op >= 0x80 && op < 0xC0:
		return aluNames[y] + reg8Names[z]
	case op >= 0xC0 && z == 6:
		return aluNames[y] + "d8"
	case op >= 0xC0 && z == 7:
		return fmt.Sprintf("RST %02XH", y*8)
	case op >= 0xC0 && z == 0:
		return "RET " + condNames[y]
	case op >= 0xC0 && z == 2:
		return fmt.Sprintf("JP %s,a16", condNames[y])
	case op >= 0xC0 && z == 4:
		return fmt.Sprintf("CALL %s,a16", condNames[y])
	case op >= 0xC0 && z == 1:
		return "POP " + pushNames[p]
	case op >= 0xC0 && z == 5:
		return "PUSH " + pushNames[p]
	case z == 0:
		return fmt.Sprintf("JR %s,r8", condNames[y-4])
	case z == 4:
		return "INC " + reg8Names[y]
	case z == 5:
		return "DEC " + reg8Names[y]
	case z == 6:
		return fmt.Sprintf("LD %s,d8", reg8Names[y])
	case op&0x0F == 0x01:
		return fmt.Sprintf("LD %s,d16", reg16Names[p])
	case op&0x0F == 0x03:
		return "INC " + reg16Names[p]
	case op&0x0F == 0x0B:
		return "DEC " + reg16Names[p]
	case op&0x0F == 0x09:
		return "ADD HL," + reg16Names[p]
	}
	return "INVALID"
}

func mnemonicCB(op uint8) string {
	y := (op >> 3) & 7
	reg := reg8Names[op&7]
	switch op >> 6 {
	case 0:
		return shiftNames[y] + " " + reg
	case 1:
		return fmt.Sprintf("BIT %d,%s", y, reg)
	case 2:
		return fmt.Sprintf("RES %d,%s", y, reg)
	}
	return fmt.Sprintf("SET %d,%s", y, reg)
}

// OpcodeName returns the mnemonic of an opcode; values 0xCB00-0xCBFF name the
// prefixed page.
func OpcodeName(opcode uint16) string {
	if bit.High(opcode) == 0xCB {
		return opcodeNamesCB[bit.Low(opcode)]
	}
	return opcodeNames[bit.Low(opcode)]
}

// operandBytes is the number of bytes following the opcode.
func operandBytes(op uint8) int {
	switch op {
	case 0xCB, 0xE0, 0xF0, 0xE8, 0xF8, 0x18:
		return 1
	case 0x08, 0xC3, 0xCD, 0xEA, 0xFA:
		return 2
	}
	y := (op >> 3) & 7
	z := op & 7
	switch {
	case op < 0x40 && (z == 6 || (z == 0 && y >= 4)):
		return 1
	case op < 0x40 && op&0x0F == 0x01:
		return 2
	case op >= 0xC0 && z == 6:
		return 1
	case op >= 0xC0 && op < 0xE0 && (z == 2 || z == 4):
		return 2
	}
	return 0
}

// Disassemble decodes the instruction at address without executing it. It
// returns the text and the instruction length.
func Disassemble(bus Bus, address uint16) (string, int) {
	op := bus.Read(address)
	if op == 0xCB {
		return opcodeNamesCB[bus.Read(address+1)], 2
	}

	name := opcodeNames[op]
	switch operandBytes(op) {
	case 1:
		return fmt.Sprintf("%s ; $%02X", name, bus.Read(address+1)), 2
	case 2:
		nn := bit.Combine(bus.Read(address+2), bus.Read(address+1))
		return fmt.Sprintf("%s ; $%04X", name, nn), 3
	}
	return name, 1
}
