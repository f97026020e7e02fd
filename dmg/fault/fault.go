// Package fault carries the runtime faults the core reports without unwinding:
// undefined opcodes and accesses that fall outside every mapped region.
package fault

import (
	"fmt"
	"log/slog"
)

// Kind identifies a runtime fault.
type Kind uint8

const (
	Unknown Kind = iota
	// InvalidOpcode is raised for opcodes with no defined instruction. Value is the opcode.
	InvalidOpcode
	// InvalidRead is raised for reads outside every mapped region. Value is the address.
	InvalidRead
	// InvalidWrite is raised for writes outside every mapped region. Value is the address.
	InvalidWrite
)

func (k Kind) String() string {
	switch k {
	case InvalidOpcode:
		return "invalid opcode"
	case InvalidRead:
		return "invalid read"
	case InvalidWrite:
		return "invalid write"
	}
	return "unknown error"
}

// Handler receives runtime faults. It decides whether execution continues;
// the interpreter resumes with whatever sentinel value was produced.
type Handler interface {
	Fault(kind Kind, value uint16)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(kind Kind, value uint16)

func (f HandlerFunc) Fault(kind Kind, value uint16) { f(kind, value) }

// Registers exposes the CPU state attached to opcode faults.
type Registers interface {
	PC() uint16
	SP() uint16
}

// LogHandler logs faults through slog. Invalid reads and writes are only logged at
// debug level since ROMs routinely poke unmapped I/O registers.
type LogHandler struct {
	Logger *slog.Logger
	CPU    Registers

	// OnOpcode, if set, is called after logging an invalid opcode.
	OnOpcode func(opcode uint16)
}

// NewLogHandler returns a LogHandler using the default logger.
func NewLogHandler() *LogHandler {
	return &LogHandler{Logger: slog.Default()}
}

func (h *LogHandler) Fault(kind Kind, value uint16) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch kind {
	case InvalidRead, InvalidWrite:
		logger.Debug("unmapped access", "kind", kind.String(), "addr", fmt.Sprintf("0x%04X", value))
		return
	case InvalidOpcode:
		attrs := []any{"opcode", fmt.Sprintf("0x%02X", value)}
		if h.CPU != nil {
			// PC has already moved past the opcode byte.
			attrs = append(attrs,
				"pc", fmt.Sprintf("0x%04X", h.CPU.PC()-1),
				"sp", fmt.Sprintf("0x%04X", h.CPU.SP()))
		}
		logger.Error("invalid opcode", attrs...)
		if h.OnOpcode != nil {
			h.OnOpcode(value)
		}
	default:
		logger.Error("unknown error", "value", value)
	}
}

// Recorder collects faults in order; useful in tests and for post-mortem dumps.
type Recorder struct {
	Faults []Record
}

// Record is a single reported fault.
type Record struct {
	Kind  Kind
	Value uint16
}

func (r *Recorder) Fault(kind Kind, value uint16) {
	r.Faults = append(r.Faults, Record{Kind: kind, Value: value})
}

// Count returns how many faults of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, f := range r.Faults {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
