package cpu

import "github.com/valerio/go-dmg/dmg/bit"

// add sets A to A + value (+ carry), flags: Z 0 H C
func (c *CPU) add(value uint8, withCarry bool) {
	carry := uint16(0)
	if withCarry {
		carry = uint16(c.flagToBit(carryFlag))
	}
	result := uint16(c.a) + uint16(value) + carry

	c.setFlags(
		uint8(result) == 0,
		false,
		bit.Carry4(c.a, value, result),
		result > 0xFF,
	)
	c.a = uint8(result)
}

// compare computes A - value (- carry) and sets flags, flags: Z 1 H C
func (c *CPU) compare(value uint8, withCarry bool) uint8 {
	carry := uint16(0)
	if withCarry {
		carry = uint16(c.flagToBit(carryFlag))
	}
	result := uint16(c.a) - uint16(value) - carry

	c.setFlags(
		uint8(result) == 0,
		true,
		bit.Carry4(c.a, value, result),
		result&0xFF00 != 0,
	)
	return uint8(result)
}

func (c *CPU) sub(value uint8, withCarry bool) {
	c.a = c.compare(value, withCarry)
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.setFlags(c.a == 0, false, true, false)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.setFlags(c.a == 0, false, false, false)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.setFlags(c.a == 0, false, false, false)
}

// inc increments value, flags: Z 0 H -
func (c *CPU) inc(value uint8) uint8 {
	value++
	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0x0F == 0)
	return value
}

// dec decrements value, flags: Z 1 H -
func (c *CPU) dec(value uint8) uint8 {
	value--
	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, value&0x0F == 0x0F)
	return value
}

// addHL adds value to HL, flags: - 0 H C
func (c *CPU) addHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, bit.Carry12(hl, value, result))
	c.setFlagToCondition(carryFlag, result > 0xFFFF)
	c.setHL(uint16(result))
}

// spOffset returns SP + e, used by ADD SP,e and LD HL,SP+e. flags: 0 0 H C
// Carries come from the unsigned low byte.
func (c *CPU) spOffset() uint16 {
	e := c.readSignedImmediate()
	low := uint8(e)

	c.setFlags(
		false,
		false,
		c.sp&0x0F+uint16(low&0x0F) > 0x0F,
		c.sp&0xFF+uint16(low) > 0xFF,
	)
	return uint16(int32(c.sp) + int32(e))
}

// daa adjusts A to packed BCD after an addition or subtraction. flags: Z - 0 C
func (c *CPU) daa() {
	a := uint16(c.a)

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			a = (a - 0x06) & 0xFF
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 9 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x9F {
			a += 0x60
		}
	}

	if a&0x100 != 0 {
		c.setFlag(carryFlag)
	}
	c.resetFlag(halfCarryFlag)
	c.a = uint8(a)
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

// rotate and shift operations, indexed by bits 3-5 of a CB opcode.
// Each returns the result and the new carry.
type shiftOp func(c *CPU, value uint8) (uint8, bool)

var shiftOps = [8]shiftOp{
	// RLC
	func(c *CPU, v uint8) (uint8, bool) { return v<<1 | v>>7, v&0x80 != 0 },
	// RRC
	func(c *CPU, v uint8) (uint8, bool) { return v>>1 | v<<7, v&0x01 != 0 },
	// RL
	func(c *CPU, v uint8) (uint8, bool) { return v<<1 | c.flagToBit(carryFlag), v&0x80 != 0 },
	// RR
	func(c *CPU, v uint8) (uint8, bool) { return v>>1 | c.flagToBit(carryFlag)<<7, v&0x01 != 0 },
	// SLA
	func(c *CPU, v uint8) (uint8, bool) { return v << 1, v&0x80 != 0 },
	// SRA
	func(c *CPU, v uint8) (uint8, bool) { return v>>1 | v&0x80, v&0x01 != 0 },
	// SWAP
	func(c *CPU, v uint8) (uint8, bool) { return v<<4 | v>>4, false },
	// SRL
	func(c *CPU, v uint8) (uint8, bool) { return v >> 1, v&0x01 != 0 },
}

// shift runs a CB rotate/shift, flags: Z 0 0 C
func (c *CPU) shift(op int, value uint8) uint8 {
	result, carry := shiftOps[op](c, value)
	c.setFlags(result == 0, false, false, carry)
	return result
}

// rotateA runs RLCA, RRCA, RLA or RRA. Unlike the CB forms Z is always cleared.
func (c *CPU) rotateA(op int) {
	c.a = c.shift(op, c.a)
	c.resetFlag(zeroFlag)
}

// testBit implements BIT n, flags: Z 0 1 -
func (c *CPU) testBit(index, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}
