package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/cartridge"
)

// LD A,0x42; INC A; JR -3
var program = []byte{0x3E, 0x42, 0x3C, 0x18, 0xFD}

func newTestDMG(t *testing.T, cartType, ramSize uint8) *dmg.DMG {
	t.Helper()
	rom := cartridge.Blank("DEBUG", cartType, 0x00, ramSize, program)
	d, err := dmg.New(cartridge.NewMemory(rom, make([]byte, 0x8000)))
	require.NoError(t, err)
	return d
}

func TestDisassemble(t *testing.T) {
	d := newTestDMG(t, 0x00, 0x00)

	lines := Disassemble(d.MMU(), 0x0100, 3)
	require.Len(t, lines, 3)
	assert.Equal(t, "0100: LD A,d8 ; $42", lines[0].String())
	assert.Equal(t, uint16(0x0102), lines[1].Address)
	assert.Equal(t, "INC A", lines[1].Instruction)
	assert.Equal(t, uint16(0x0103), lines[2].Address)
}

func TestTracer(t *testing.T) {
	d := newTestDMG(t, 0x00, 0x00)
	var buf bytes.Buffer
	tr := NewTracer(&buf, 3)
	tr.Attach(d)

	for range 5 {
		d.Step()
	}

	assert.Equal(t, uint64(3), tr.Lines())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "0100  LD A,d8 ; $42"))
	assert.Contains(t, lines[0], "PC=0100")
	assert.True(t, strings.HasPrefix(lines[1], "0102  INC A"))
	assert.Contains(t, lines[1], "AF=42")

	d.BeforeStep(nil)
	d.Step()
	assert.Equal(t, uint64(3), tr.Lines())
}

func TestCapture(t *testing.T) {
	t.Run("plain cartridge", func(t *testing.T) {
		d := newTestDMG(t, 0x00, 0x00)
		d.Step()
		d.Step()

		s := Capture(d)
		assert.Equal(t, "DEBUG", s.Title)
		assert.Equal(t, uint8(0x43), s.CPU.Registers.A)
		assert.Equal(t, "INC A", s.CPU.LastOpcode)
		assert.Equal(t, uint64(2), s.CPU.Instructions)
		assert.Len(t, s.Upcoming, upcoming)
		assert.Len(t, s.Sprites, 40)
		assert.Nil(t, s.RTC)
		assert.Equal(t, uint16(1), s.Banks.ROM)
		assert.Contains(t, s.String(), "DEBUG frame=0")
	})

	t.Run("clock cartridge", func(t *testing.T) {
		d := newTestDMG(t, 0x10, 0x03)
		s := Capture(d)
		require.NotNil(t, s.RTC)
		assert.Equal(t, d.RTC().Regs, *s.RTC)
	})
}

func TestDumpState(t *testing.T) {
	d := newTestDMG(t, 0x00, 0x00)

	var buf bytes.Buffer
	DumpState(&buf, Capture(d))
	assert.Contains(t, buf.String(), "digraph")

	path := filepath.Join(t.TempDir(), "state.dot")
	require.NoError(t, WriteStateFile(path, d))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph")
}
