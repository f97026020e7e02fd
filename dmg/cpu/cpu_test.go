package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-dmg/dmg/addr"
	"github.com/valerio/go-dmg/dmg/fault"
)

// flatBus is 64KB of plain RAM that counts writes.
type flatBus struct {
	mem    [0x10000]byte
	writes int
}

func (b *flatBus) Read(address uint16) byte { return b.mem[address] }

func (b *flatBus) Write(address uint16, value byte) {
	b.mem[address] = value
	b.writes++
}

func newTestCPU(t *testing.T, program ...byte) (*CPU, *flatBus, *fault.Recorder) {
	t.Helper()
	bus := &flatBus{}
	copy(bus.mem[0x100:], program)
	rec := &fault.Recorder{}
	c := New(bus, rec)
	c.ime = false
	return c, bus, rec
}

func TestCPU_reset(t *testing.T) {
	c, _, _ := newTestCPU(t)
	c.Reset()

	r := c.Registers()
	assert.Equal(t, uint8(0x01), r.A)
	assert.Equal(t, uint8(0xB0), r.F)
	assert.Equal(t, uint16(0x0013), c.getBC())
	assert.Equal(t, uint16(0x00D8), c.getDE())
	assert.Equal(t, uint16(0x014D), c.getHL())
	assert.Equal(t, uint16(0xFFFE), c.SP())
	assert.Equal(t, uint16(0x0100), c.PC())
	assert.True(t, c.IME())
	assert.Equal(t, "Z-HC", c.FlagString())
}

func TestCPU_stack(t *testing.T) {
	c, _, _ := newTestCPU(t)

	c.sp = 0xFFFE
	c.pushStack(0x0102)
	assert.Equal(t, uint16(0xFFFC), c.sp)

	assert.Equal(t, uint16(0x0102), c.popStack())
	assert.Equal(t, uint16(0xFFFE), c.sp)
}

func TestCPU_popAFMasksFlags(t *testing.T) {
	// PUSH BC, POP AF
	c, _, _ := newTestCPU(t, 0xC5, 0xF1)
	c.setBC(0x12FF)

	c.Step()
	c.Step()
	assert.Equal(t, uint8(0x12), c.a)
	assert.Equal(t, uint8(0xF0), c.f)
}

func TestCPU_setRegisters(t *testing.T) {
	c, _, _ := newTestCPU(t)
	c.SetRegisters(Registers{A: 1, F: 0xFF, B: 2, SP: 0xC000, PC: 0x150, IME: true})

	r := c.Registers()
	assert.Equal(t, uint8(0xF0), r.F)
	assert.Equal(t, uint8(2), r.B)
	assert.Equal(t, uint16(0x150), r.PC)
	assert.True(t, r.IME)
	assert.Equal(t, "AF=01F0 BC=0200 DE=0000 HL=0000 SP=C000 PC=0150", r.String())
}

func TestCPU_inc(t *testing.T) {
	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "increases", arg: 0x0A, want: 0x0B},
		{desc: "sets zero flag", arg: 0xFF, want: 0, flags: zeroFlag | halfCarryFlag},
		{desc: "sets half carry flag", arg: 0x0F, want: 0x10, flags: halfCarryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _, _ := newTestCPU(t)
			c.f = uint8(carryFlag | subFlag)
			got := c.inc(tC.arg)
			assert.Equal(t, tC.want, got)
			// carry is preserved, N is cleared
			assert.Equal(t, uint8(tC.flags|carryFlag), c.f)
		})
	}
}

func TestCPU_dec(t *testing.T) {
	testCases := []struct {
		desc  string
		arg   uint8
		want  uint8
		flags Flag
	}{
		{desc: "decreases", arg: 0x0A, want: 0x09, flags: subFlag},
		{desc: "sets zero flag", arg: 0x01, want: 0, flags: zeroFlag | subFlag},
		{desc: "sets half carry flag", arg: 0x10, want: 0x0F, flags: subFlag | halfCarryFlag},
		{desc: "wraps", arg: 0x00, want: 0xFF, flags: subFlag | halfCarryFlag},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _, _ := newTestCPU(t)
			c.f = 0
			got := c.dec(tC.arg)
			assert.Equal(t, tC.want, got)
			assert.Equal(t, uint8(tC.flags), c.f)
		})
	}
}

func TestCPU_aluFlagsExhaustive(t *testing.T) {
	c, _, _ := newTestCPU(t)

	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			for carry := 0; carry < 2; carry++ {
				withCarry := carry == 1

				c.a = uint8(a)
				c.f = 0
				c.setFlagToCondition(carryFlag, withCarry)
				c.add(uint8(b), withCarry)

				sum := a + b + carry
				want := uint8(0)
				if sum&0xFF == 0 {
					want |= uint8(zeroFlag)
				}
				if a&0xF+b&0xF+carry > 0xF {
					want |= uint8(halfCarryFlag)
				}
				if sum > 0xFF {
					want |= uint8(carryFlag)
				}
				if c.a != uint8(sum) || c.f != want {
					t.Fatalf("ADC %02X+%02X+%d: got A=%02X F=%02X, want A=%02X F=%02X", a, b, carry, c.a, c.f, uint8(sum), want)
				}

				c.a = uint8(a)
				c.f = 0
				c.setFlagToCondition(carryFlag, withCarry)
				c.sub(uint8(b), withCarry)

				diff := a - b - carry
				want = uint8(subFlag)
				if diff&0xFF == 0 {
					want |= uint8(zeroFlag)
				}
				if a&0xF < b&0xF+carry {
					want |= uint8(halfCarryFlag)
				}
				if diff < 0 {
					want |= uint8(carryFlag)
				}
				if c.a != uint8(diff) || c.f != want {
					t.Fatalf("SBC %02X-%02X-%d: got A=%02X F=%02X, want A=%02X F=%02X", a, b, carry, c.a, c.f, uint8(diff), want)
				}
			}
		}
	}
}

func TestCPU_compareKeepsA(t *testing.T) {
	c, _, _ := newTestCPU(t)
	c.a = 0x3C
	c.compare(0x3C, false)
	assert.Equal(t, uint8(0x3C), c.a)
	assert.Equal(t, "ZN--", c.FlagString())
}

func toBCD(n int) uint8 { return uint8(n/10<<4 | n%10) }

func TestCPU_daa(t *testing.T) {
	c, _, _ := newTestCPU(t)

	t.Run("after add", func(t *testing.T) {
		for x := 0; x < 100; x++ {
			for y := 0; y < 100; y++ {
				c.a = toBCD(x)
				c.add(toBCD(y), false)
				c.daa()

				require.Equal(t, toBCD((x+y)%100), c.a, "%d+%d", x, y)
				require.Equal(t, x+y >= 100, c.isSetFlag(carryFlag), "%d+%d carry", x, y)
				require.Equal(t, (x+y)%100 == 0, c.isSetFlag(zeroFlag), "%d+%d zero", x, y)
				require.False(t, c.isSetFlag(halfCarryFlag))
			}
		}
	})

	t.Run("after sub", func(t *testing.T) {
		for x := 0; x < 100; x++ {
			for y := 0; y < 100; y++ {
				c.a = toBCD(x)
				c.sub(toBCD(y), false)
				c.daa()

				require.Equal(t, toBCD((x-y+100)%100), c.a, "%d-%d", x, y)
				require.Equal(t, x < y, c.isSetFlag(carryFlag), "%d-%d carry", x, y)
				require.True(t, c.isSetFlag(subFlag))
			}
		}
	})
}

func TestCPU_addHL(t *testing.T) {
	c, _, _ := newTestCPU(t)

	c.f = uint8(zeroFlag)
	c.setHL(0x0FFF)
	c.addHL(0x0001)
	assert.Equal(t, uint16(0x1000), c.getHL())
	assert.Equal(t, "Z-H-", c.FlagString())

	c.setHL(0xFFFF)
	c.addHL(0x0001)
	assert.Equal(t, uint16(0), c.getHL())
	assert.Equal(t, "Z-HC", c.FlagString())
}

func TestCPU_spOffset(t *testing.T) {
	testCases := []struct {
		desc  string
		sp    uint16
		e     uint8
		want  uint16
		flags string
	}{
		{desc: "positive", sp: 0xFFF0, e: 0x05, want: 0xFFF5, flags: "----"},
		{desc: "half carry", sp: 0x000F, e: 0x01, want: 0x0010, flags: "--H-"},
		{desc: "negative uses unsigned low byte carries", sp: 0x0001, e: 0xFF, want: 0x0000, flags: "--HC"},
		{desc: "negative without carries", sp: 0x0000, e: 0xFF, want: 0xFFFF, flags: "----"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			// LD HL,SP+e then ADD SP,e
			c, _, _ := newTestCPU(t, 0xF8, tC.e, 0xE8, tC.e)
			c.sp = tC.sp
			c.f = uint8(zeroFlag | subFlag)

			assert.Equal(t, 12, c.Step())
			assert.Equal(t, tC.want, c.getHL())
			assert.Equal(t, tC.flags, c.FlagString())

			assert.Equal(t, 16, c.Step())
			assert.Equal(t, tC.want, c.sp)
		})
	}
}

func TestCPU_rotateA(t *testing.T) {
	// XOR A sets Z, RLCA must clear it again
	c, _, _ := newTestCPU(t, 0xAF, 0x07, 0x3E, 0x80, 0x07)
	c.Step()
	c.Step()
	assert.Equal(t, "----", c.FlagString())

	c.Step()
	c.Step()
	assert.Equal(t, uint8(0x01), c.a)
	assert.Equal(t, "---C", c.FlagString())
}

func TestCPU_cb(t *testing.T) {
	t.Run("BIT does not write back", func(t *testing.T) {
		// BIT 0,(HL)
		c, bus, _ := newTestCPU(t, 0xCB, 0x46)
		c.setHL(0xC000)
		bus.mem[0xC000] = 0x01
		bus.writes = 0

		assert.Equal(t, 12, c.Step())
		assert.Equal(t, 0, bus.writes)
		assert.Equal(t, "--HC", c.FlagString())
	})

	t.Run("SWAP clears carry", func(t *testing.T) {
		c, _, _ := newTestCPU(t, 0xCB, 0x37)
		c.a = 0xF1
		c.f = uint8(carryFlag)
		assert.Equal(t, 8, c.Step())
		assert.Equal(t, uint8(0x1F), c.a)
		assert.Equal(t, "----", c.FlagString())
	})

	t.Run("SET on (HL)", func(t *testing.T) {
		c, bus, _ := newTestCPU(t, 0xCB, 0xFE)
		c.setHL(0xC000)
		assert.Equal(t, 16, c.Step())
		assert.Equal(t, uint8(0x80), bus.mem[0xC000])
		assert.Equal(t, uint16(0xCBFE), c.Opcode())
	})

	t.Run("RR through carry", func(t *testing.T) {
		c, _, _ := newTestCPU(t, 0xCB, 0x19)
		c.c = 0x01
		c.f = uint8(carryFlag)
		c.Step()
		assert.Equal(t, uint8(0x80), c.c)
		assert.Equal(t, "---C", c.FlagString())
	})
}

func TestCPU_branchCycles(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		zero    bool
		cycles  int
		pc      uint16
	}{
		{desc: "JR NZ taken", program: []byte{0x20, 0x02}, cycles: 12, pc: 0x104},
		{desc: "JR NZ not taken", program: []byte{0x20, 0x02}, zero: true, cycles: 8, pc: 0x102},
		{desc: "JR backwards", program: []byte{0x18, 0xFE}, cycles: 12, pc: 0x100},
		{desc: "JP Z taken", program: []byte{0xCA, 0x00, 0x20}, zero: true, cycles: 16, pc: 0x2000},
		{desc: "JP Z not taken", program: []byte{0xCA, 0x00, 0x20}, cycles: 12, pc: 0x103},
		{desc: "CALL NZ taken", program: []byte{0xC4, 0x00, 0x20}, cycles: 24, pc: 0x2000},
		{desc: "CALL NZ not taken", program: []byte{0xC4, 0x00, 0x20}, zero: true, cycles: 12, pc: 0x103},
		{desc: "RET Z not taken", program: []byte{0xC8}, cycles: 8, pc: 0x101},
		{desc: "RST 38", program: []byte{0xFF}, cycles: 16, pc: 0x38},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _, _ := newTestCPU(t, tC.program...)
			c.setFlagToCondition(zeroFlag, tC.zero)
			assert.Equal(t, tC.cycles, c.Step())
			assert.Equal(t, tC.pc, c.PC())
		})
	}

	t.Run("RET Z taken", func(t *testing.T) {
		c, _, _ := newTestCPU(t, 0xC8)
		c.setFlag(zeroFlag)
		c.pushStack(0x1234)
		assert.Equal(t, 20, c.Step())
		assert.Equal(t, uint16(0x1234), c.PC())
	})
}

func TestCPU_invalidOpcode(t *testing.T) {
	for _, op := range invalidOpcodes {
		c, _, rec := newTestCPU(t, op)
		assert.Equal(t, 4, c.Step(), "opcode %02X", op)
		assert.Equal(t, uint16(0x101), c.PC())
		require.Len(t, rec.Faults, 1)
		assert.Equal(t, fault.InvalidOpcode, rec.Faults[0].Kind)
		assert.Equal(t, uint16(op), rec.Faults[0].Value)
	}
}

func TestCPU_interrupts(t *testing.T) {
	t.Run("disabled interrupts are not serviced", func(t *testing.T) {
		c, bus, _ := newTestCPU(t)
		bus.mem[addr.IF] = 0x01
		bus.mem[addr.IE] = 0x01

		assert.Equal(t, 4, c.Step())
		assert.Equal(t, uint16(0x101), c.PC())
	})

	t.Run("vblank wins over timer", func(t *testing.T) {
		c, bus, _ := newTestCPU(t)
		c.ime = true
		bus.mem[addr.IF] = 0x05
		bus.mem[addr.IE] = 0x05

		// 20 to vector plus the NOP at 0x40
		assert.Equal(t, 24, c.Step())
		assert.Equal(t, uint16(0x41), c.PC())
		assert.Equal(t, uint8(0x04), bus.mem[addr.IF])
		assert.False(t, c.IME())
		assert.Equal(t, uint16(0x100), c.popStack())
	})

	t.Run("masked requests are ignored", func(t *testing.T) {
		c, bus, _ := newTestCPU(t)
		c.ime = true
		bus.mem[addr.IF] = 0x04
		bus.mem[addr.IE] = 0x01

		assert.Equal(t, 4, c.Step())
		assert.Equal(t, uint16(0x101), c.PC())
	})

	t.Run("RETI re-enables", func(t *testing.T) {
		c, bus, _ := newTestCPU(t)
		c.ime = true
		bus.mem[0x50] = 0xD9
		bus.mem[addr.IF] = 0x04
		bus.mem[addr.IE] = 0x04

		assert.Equal(t, 36, c.Step())
		assert.Equal(t, uint16(0x100), c.PC())
		assert.True(t, c.IME())
	})
}

func TestCPU_halt(t *testing.T) {
	t.Run("halts until an enabled request", func(t *testing.T) {
		c, bus, _ := newTestCPU(t, 0x76, 0x00)

		assert.Equal(t, 4, c.Step())
		assert.True(t, c.Halted())
		assert.Equal(t, 4, c.Step())
		assert.Equal(t, uint16(0x101), c.PC())

		bus.mem[addr.IF] = 0x01
		assert.Equal(t, 4, c.Step())
		assert.True(t, c.Halted(), "IE not set")

		bus.mem[addr.IE] = 0x01
		assert.Equal(t, 4, c.Step())
		assert.False(t, c.Halted())
		// woke without IME: runs the next instruction, request stays pending
		assert.Equal(t, uint16(0x102), c.PC())
		assert.Equal(t, uint8(0x01), bus.mem[addr.IF])
	})

	t.Run("services the interrupt when IME is set", func(t *testing.T) {
		c, bus, _ := newTestCPU(t, 0x76)
		c.ime = true
		c.Step()

		bus.mem[addr.IF] = 0x10
		bus.mem[addr.IE] = 0x10
		assert.Equal(t, 24, c.Step())
		assert.Equal(t, uint16(0x61), c.PC())
		assert.Equal(t, uint16(0x101), c.popStack())
	})
}

func TestCPU_ei(t *testing.T) {
	t.Run("delayed by one instruction", func(t *testing.T) {
		c, bus, _ := newTestCPU(t, 0xFB, 0x00, 0x00)
		bus.mem[addr.IF] = 0x01
		bus.mem[addr.IE] = 0x01

		c.Step()
		assert.False(t, c.IME())

		c.Step()
		assert.True(t, c.IME())
		assert.Equal(t, uint16(0x102), c.PC())

		c.Step()
		assert.Equal(t, uint16(0x41), c.PC())
	})

	t.Run("DI cancels a pending EI", func(t *testing.T) {
		c, _, _ := newTestCPU(t, 0xFB, 0xF3, 0x00)
		c.Step()
		c.Step()
		c.Step()
		assert.False(t, c.IME())
	})

	t.Run("immediate", func(t *testing.T) {
		bus := &flatBus{}
		bus.mem[0x100] = 0xFB
		c := New(bus, &fault.Recorder{}, WithImmediateEI())
		c.ime = false

		c.Step()
		assert.True(t, c.IME())
	})
}

func TestCPU_loads(t *testing.T) {
	// LD HL,C000; LD (HL+),A; LD (HL-),A; LD (a16),SP
	c, bus, _ := newTestCPU(t, 0x21, 0x00, 0xC0, 0x22, 0x32, 0x08, 0x00, 0xD0)
	c.a = 0x42
	c.sp = 0xBEEF

	assert.Equal(t, 12, c.Step())
	assert.Equal(t, 8, c.Step())
	assert.Equal(t, uint16(0xC001), c.getHL())
	assert.Equal(t, 8, c.Step())
	assert.Equal(t, uint16(0xC000), c.getHL())
	assert.Equal(t, uint8(0x42), bus.mem[0xC000])
	assert.Equal(t, uint8(0x42), bus.mem[0xC001])

	assert.Equal(t, 20, c.Step())
	assert.Equal(t, uint8(0xEF), bus.mem[0xD000])
	assert.Equal(t, uint8(0xBE), bus.mem[0xD001])
	assert.Equal(t, uint64(48), c.Cycles())
	assert.Equal(t, uint64(4), c.Instructions())
}
