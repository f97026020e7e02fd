package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log record, already formatted.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

func (e LogEntry) String() string {
	var level string
	switch {
	case e.Level >= slog.LevelError:
		level = "ERR"
	case e.Level >= slog.LevelWarn:
		level = "WRN"
	case e.Level >= slog.LevelInfo:
		level = "INF"
	default:
		level = "DBG"
	}
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05"), level, e.Message)
}

// LogBuffer is a fixed size ring of log entries. The terminal owns stderr while it
// runs, so logs are shown in a panel instead.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	count   int
}

func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{entries: make([]LogEntry, size)}
}

func (b *LogBuffer) Add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns all of them.
func (b *LogBuffer) Recent(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]LogEntry, n)
	for i := range out {
		out[i] = b.entries[(b.next-1-i+len(b.entries))%len(b.entries)]
	}
	return out
}

// LogHandler is a slog.Handler writing into a LogBuffer. Its level can be changed
// while running.
type LogHandler struct {
	buffer *LogBuffer
	level  *slog.LevelVar
	attrs  string
}

func NewLogHandler(buffer *LogBuffer, level *slog.LevelVar) *LogHandler {
	return &LogHandler{buffer: buffer, level: level}
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)
	sb.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})

	h.buffer.Add(LogEntry{Time: r.Time, Level: r.Level, Message: sb.String()})
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	next.attrs = sb.String()
	return &next
}

// WithGroup is not supported; group names are dropped.
func (h *LogHandler) WithGroup(string) slog.Handler {
	return h
}

// stepLevel moves the level one step towards more (dir > 0) or less output.
func stepLevel(level *slog.LevelVar, dir int) {
	levels := []slog.Level{slog.LevelError, slog.LevelWarn, slog.LevelInfo, slog.LevelDebug}
	i := 0
	for j, l := range levels {
		if l == level.Level() {
			i = j
		}
	}
	i = min(max(i+dir, 0), len(levels)-1)
	level.Set(levels[i])
}
