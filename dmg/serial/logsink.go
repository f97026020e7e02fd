package serial

import (
	"log/slog"
	"strings"
)

// LogSink implements a dummy serial peer that just logs outgoing bytes as text.
// Handy for debugging test roms that output to serial.
type LogSink struct {
	logger *slog.Logger

	// settings
	connected bool
	defaultRX byte // byte shifted back into SB on completion

	// line buffer for readable output
	line []byte
	text strings.Builder
}

type LogSinkOption func(*LogSink)

// WithLogger sets the logger used for completed lines.
func WithLogger(l *slog.Logger) LogSinkOption { return func(s *LogSink) { s.logger = l } }

// WithResponse makes the sink answer every transfer with b.
func WithResponse(b byte) LogSinkOption { return func(s *LogSink) { s.defaultRX = b } }

// Disconnected makes the sink report NoConnection, so transfers behave as if no
// cable were attached.
func Disconnected() LogSinkOption { return func(s *LogSink) { s.connected = false } }

// NewLogSink creates a new logging serial peer.
func NewLogSink(opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		logger:    slog.Default(),
		connected: true,
		defaultRX: 0xFF,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transmit buffers the byte and logs the line on a newline or NUL.
func (s *LogSink) Transmit(b byte) {
	s.text.WriteByte(b)

	if b == 0 || b == '\n' || b == '\r' {
		s.Flush()
		return
	}
	s.line = append(s.line, b)
}

func (s *LogSink) Receive() (byte, Status) {
	if !s.connected {
		return 0, NoConnection
	}
	return s.defaultRX, Success
}

// Flush logs any partial line.
func (s *LogSink) Flush() {
	if len(s.line) == 0 {
		return
	}
	s.logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

// Text returns every byte transmitted so far.
func (s *LogSink) Text() string {
	return s.text.String()
}
