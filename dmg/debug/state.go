// Package debug captures machine state for post-mortem dumps and traces execution.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/cpu"
	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/regs"
	"github.com/valerio/go-dmg/dmg/timer"
	"github.com/valerio/go-dmg/dmg/video"
)

// upcoming is how many instructions from PC a State disassembles.
const upcoming = 8

// CPUState is the interpreter side of a State.
type CPUState struct {
	Registers    cpu.Registers
	Flags        string
	Cycles       uint64
	Instructions uint64
	LastOpcode   string
}

// State is a copy of everything useful to look at after a fault.
type State struct {
	Title string
	Frame uint64

	CPU      CPUState
	Upcoming []Line
	IO       regs.File
	Counters timer.Counters
	Banks    memory.BankState
	RTC      *[5]uint8
	Sprites  []video.Sprite
	Volumes  [4]uint8
}

// Capture copies the current machine state.
func Capture(d *dmg.DMG) *State {
	c := d.CPU()
	s := &State{
		Title: d.Header().DisplayTitle(),
		Frame: d.Frames(),
		CPU: CPUState{
			Registers:    c.Registers(),
			Flags:        c.FlagString(),
			Cycles:       c.Cycles(),
			Instructions: c.Instructions(),
			LastOpcode:   cpu.OpcodeName(c.Opcode()),
		},
		Upcoming: Disassemble(d.MMU(), c.PC(), upcoming),
		IO:       *d.Registers(),
		Counters: d.Timer().Counters(),
		Banks:    d.MMU().MBC().Banks(),
		Sprites:  video.Sprites(d.MMU().OAM(), d.Registers().LCDC.TallSprites()),
	}
	if rtc := d.RTC(); rtc != nil {
		clock := rtc.Regs
		s.RTC = &clock
	}
	s.Volumes[0], s.Volumes[1], s.Volumes[2], s.Volumes[3] = d.APU().Volumes()
	return s
}

// String is a short human readable summary.
func (s *State) String() string {
	return fmt.Sprintf("%s frame=%d %s %s LY=%d IF=%02X IE=%02X",
		s.Title, s.Frame, s.CPU.Registers, s.CPU.Flags, s.IO.LY, s.IO.IF, s.IO.IE)
}

// DumpState writes s as a graphviz graph.
func DumpState(w io.Writer, s *State) {
	memviz.Map(w, s)
}

// WriteStateFile captures the machine and writes the graph to path.
func WriteStateFile(path string, d *dmg.DMG) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing state dump: %w", err)
	}
	DumpState(f, Capture(d))
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing state dump: %w", err)
	}
	return nil
}
