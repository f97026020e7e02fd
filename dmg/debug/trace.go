package debug

import (
	"fmt"
	"io"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/cpu"
)

// Line is one disassembled instruction.
type Line struct {
	Address     uint16
	Instruction string
}

func (l Line) String() string {
	return fmt.Sprintf("%04X: %s", l.Address, l.Instruction)
}

// Disassemble decodes n instructions starting at address.
func Disassemble(bus cpu.Bus, address uint16, n int) []Line {
	lines := make([]Line, 0, n)
	for range n {
		text, length := cpu.Disassemble(bus, address)
		lines = append(lines, Line{Address: address, Instruction: text})
		address += uint16(length)
	}
	return lines
}

// Tracer logs every instruction before it executes.
type Tracer struct {
	w     io.Writer
	limit uint64
	lines uint64
}

// NewTracer writes to w and stops after limit lines; 0 means no limit.
func NewTracer(w io.Writer, limit uint64) *Tracer {
	return &Tracer{w: w, limit: limit}
}

// Lines is the number of lines written.
func (t *Tracer) Lines() uint64 {
	return t.lines
}

// Attach traces every instruction d executes from now on.
func (t *Tracer) Attach(d *dmg.DMG) {
	d.BeforeStep(func() { t.trace(d) })
}

func (t *Tracer) trace(d *dmg.DMG) {
	if t.limit != 0 && t.lines >= t.limit {
		return
	}
	c := d.CPU()
	text, _ := cpu.Disassemble(d.MMU(), c.PC())
	fmt.Fprintf(t.w, "%04X  %-24s %s %s\n", c.PC(), text, c.Registers(), c.FlagString())
	t.lines++
}
