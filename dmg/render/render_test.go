package render

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dmg/dmg/memory"
	"github.com/valerio/go-dmg/dmg/timing"
	"github.com/valerio/go-dmg/dmg/video"
)

type fakeMachine struct {
	fb      *video.FrameBuffer
	frames  int
	err     error
	pressed []memory.JoypadKey
	release []memory.JoypadKey
}

func (m *fakeMachine) RunFrame() error {
	m.frames++
	return m.err
}

func (m *fakeMachine) FrameBuffer() *video.FrameBuffer { return m.fb }
func (m *fakeMachine) Press(key memory.JoypadKey)      { m.pressed = append(m.pressed, key) }
func (m *fakeMachine) Release(key memory.JoypadKey)    { m.release = append(m.release, key) }

type fakeAudio struct {
	toggled, solo []int
}

func (a *fakeAudio) GetSamples(count int) []int16 { return make([]int16, count) }
func (a *fakeAudio) ToggleChannel(ch int)         { a.toggled = append(a.toggled, ch) }
func (a *fakeAudio) SoloChannel(ch int)           { a.solo = append(a.solo, ch) }
func (a *fakeAudio) ChannelStatus() (bool, bool, bool, bool) {
	return true, false, true, false
}

func newTestTerminal(t *testing.T, cfg Config) (*Terminal, *fakeMachine, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(220, 80)

	emu := &fakeMachine{fb: video.NewFrameBuffer()}
	cfg.Limiter = timing.NewNoOpLimiter()
	return New(screen, emu, cfg), emu, screen
}

func TestBlit(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(video.Width, video.Height/2)

	var frame video.Frame
	frame[0][0] = 3
	frame[1][0] = 0
	Blit(screen, &frame, video.GreyPalette, 0, 0)

	r, _, style, _ := screen.GetContent(0, 0)
	fg, bg, _ := style.Decompose()
	assert.Equal(t, upperHalf, r)
	assert.Equal(t, tcell.NewRGBColor(0, 0, 0), fg)
	assert.Equal(t, tcell.NewRGBColor(255, 255, 255), bg)
}

func TestKeyName(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), "z"},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "Space"},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "Enter"},
		{tcell.NewEventKey(tcell.KeyF9, 0, tcell.ModNone), "F9"},
		{tcell.NewEventKey(tcell.KeyF12, 0, tcell.ModNone), ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyName(tt.ev))
		})
	}
}

func TestKeyTracker(t *testing.T) {
	start := time.Unix(0, 0)
	pad := &fakeMachine{}
	k := newKeyTracker()

	k.hit(memory.JoypadA, start)
	k.update(start, pad)
	assert.Equal(t, []memory.JoypadKey{memory.JoypadA}, pad.pressed)

	// repeats within the timeout keep the key held
	k.hit(memory.JoypadA, start.Add(80*time.Millisecond))
	k.update(start.Add(150*time.Millisecond), pad)
	assert.Len(t, pad.pressed, 1)
	assert.Empty(t, pad.release)

	k.update(start.Add(300*time.Millisecond), pad)
	assert.Equal(t, []memory.JoypadKey{memory.JoypadA}, pad.release)

	t.Run("directions are exclusive", func(t *testing.T) {
		pad := &fakeMachine{}
		k := newKeyTracker()
		k.hit(memory.JoypadUp, start)
		k.update(start, pad)
		k.hit(memory.JoypadLeft, start)
		k.update(start, pad)

		assert.Equal(t, []memory.JoypadKey{memory.JoypadUp, memory.JoypadLeft}, pad.pressed)
		assert.Equal(t, []memory.JoypadKey{memory.JoypadUp}, pad.release)
	})
}

func TestTerminalTick(t *testing.T) {
	t.Run("runs a frame and draws", func(t *testing.T) {
		term, emu, screen := newTestTerminal(t, Config{Title: "TETRIS"})

		require.NoError(t, term.tick(time.Now()))
		assert.Equal(t, 1, emu.frames)

		r, _, _, _ := screen.GetContent(0, 0)
		assert.Equal(t, upperHalf, r)
		r, _, _, _ = screen.GetContent(0, gameRows)
		assert.Equal(t, 'T', r)
	})

	t.Run("buttons reach the joypad", func(t *testing.T) {
		term, emu, screen := newTestTerminal(t, Config{})
		screen.InjectKey(tcell.KeyRune, 'z', tcell.ModNone)

		require.Eventually(t, screen.HasPendingEvent, time.Second, time.Millisecond)
		require.NoError(t, term.tick(time.Now()))
		assert.Equal(t, []memory.JoypadKey{memory.JoypadA}, emu.pressed)
	})

	t.Run("pause and step", func(t *testing.T) {
		term, emu, _ := newTestTerminal(t, Config{})
		now := time.Now()

		term.handleKey(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), now)
		require.NoError(t, term.tick(now))
		assert.Equal(t, 0, emu.frames)
		assert.Contains(t, term.statusLine(), "[paused]")

		term.handleKey(tcell.NewEventKey(tcell.KeyRune, 'f', tcell.ModNone), now)
		require.NoError(t, term.tick(now))
		require.NoError(t, term.tick(now))
		assert.Equal(t, 1, emu.frames)
	})

	t.Run("audio and snapshot keys", func(t *testing.T) {
		a := &fakeAudio{}
		snaps := 0
		term, _, _ := newTestTerminal(t, Config{
			Audio:      a,
			OnSnapshot: func(*video.FrameBuffer) { snaps++ },
		})
		now := time.Now()

		term.handleKey(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone), now)
		term.handleKey(tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone), now)
		term.handleKey(tcell.NewEventKey(tcell.KeyF9, 0, tcell.ModNone), now)

		assert.Equal(t, []int{2}, a.toggled)
		assert.Equal(t, []int{3}, a.solo)
		assert.Equal(t, 1, snaps)
		assert.Contains(t, term.statusLine(), "ch:1-3-")
	})

	t.Run("quit", func(t *testing.T) {
		term, _, _ := newTestTerminal(t, Config{})
		term.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), time.Now())
		assert.True(t, term.quit)
	})

	t.Run("machine error stops the loop", func(t *testing.T) {
		term, emu, _ := newTestTerminal(t, Config{})
		emu.err = errors.New("boom")
		assert.ErrorIs(t, term.tick(time.Now()), emu.err)
	})
}

func TestLogBuffer(t *testing.T) {
	buf := NewLogBuffer(3)
	level := &slog.LevelVar{}
	logger := slog.New(NewLogHandler(buf, level)).With("pc", "0x0150")

	logger.Debug("hidden")
	for i := range 4 {
		logger.Info("line", "n", i)
	}

	recent := buf.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "line pc=0x0150 n=3", recent[0].Message)
	assert.Equal(t, "line pc=0x0150 n=1", recent[2].Message)
	assert.Contains(t, recent[0].String(), "[INF]")
	assert.Len(t, buf.Recent(2), 2)

	stepLevel(level, 1)
	assert.Equal(t, slog.LevelDebug, level.Level())
	stepLevel(level, 1)
	assert.Equal(t, slog.LevelDebug, level.Level())
	stepLevel(level, -3)
	assert.Equal(t, slog.LevelError, level.Level())
}
