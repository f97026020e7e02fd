// Package render is the terminal front-end: it runs the machine at frame rate,
// draws frames with half-block characters and maps keys to the joypad.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/timing"
	"github.com/valerio/go-dmg/dmg/video"
)

const (
	gameRows   = video.Height / 2
	logColumn  = video.Width + 2
	minLogCols = 30
)

// Machine is what the terminal drives.
type Machine interface {
	Joypad
	RunFrame() error
	FrameBuffer() *video.FrameBuffer
}

// Config holds the optional parts of the front-end.
type Config struct {
	Title   string
	Palette video.Palette
	Limiter timing.Limiter
	// Audio receives the channel toggles. May be nil.
	Audio audio.Provider
	// Logs is shown next to the game when the terminal is wide enough. May be nil.
	Logs     *LogBuffer
	LogLevel *slog.LevelVar
	// OnSnapshot is called for the snapshot key. May be nil.
	OnSnapshot func(fb *video.FrameBuffer)
	// OnFrame runs after every emulated frame. May be nil.
	OnFrame func()
}

// Terminal runs a machine in a tcell screen.
type Terminal struct {
	screen tcell.Screen
	emu    Machine
	cfg    Config
	keys   *keyTracker

	paused bool
	step   bool
	quit   bool
	fps    timing.FPSCounter
}

// NewScreen creates and initialises the terminal screen.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return screen, nil
}

// New creates a front-end on an initialised screen.
func New(screen tcell.Screen, emu Machine, cfg Config) *Terminal {
	if cfg.Limiter == nil {
		cfg.Limiter = timing.NewAdaptiveLimiter()
	}
	if cfg.Palette == (video.Palette{}) {
		cfg.Palette = video.GreyPalette
	}
	if cfg.LogLevel == nil {
		cfg.LogLevel = &slog.LevelVar{}
	}
	return &Terminal{screen: screen, emu: emu, cfg: cfg, keys: newKeyTracker()}
}

// Run loops until ctx is cancelled, the quit key is pressed or the machine fails.
// The screen is finalised on return.
func (t *Terminal) Run(ctx context.Context) error {
	defer t.screen.Fini()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()
	t.cfg.Limiter.Reset()

	for !t.quit {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := t.tick(time.Now()); err != nil {
			return err
		}
		t.cfg.Limiter.WaitForNextFrame()
	}
	slog.Info("terminal closed")
	return nil
}

// tick handles pending input, runs one frame unless paused and redraws.
func (t *Terminal) tick(now time.Time) error {
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.handleKey(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
	t.keys.update(now, t.emu)

	if !t.paused || t.step {
		t.step = false
		if err := t.emu.RunFrame(); err != nil {
			return err
		}
		if t.cfg.OnFrame != nil {
			t.cfg.OnFrame()
		}
		t.fps.Frame(now)
	}

	t.draw()
	t.screen.Show()
	return nil
}

func (t *Terminal) handleKey(ev *tcell.EventKey, now time.Time) {
	b, ok := DefaultKeyMap[KeyName(ev)]
	if !ok {
		return
	}

	switch b.Action {
	case ActionButton:
		t.keys.hit(b.Button, now)
	case ActionQuit:
		t.quit = true
	case ActionPause:
		t.paused = !t.paused
		slog.Info("pause", "paused", t.paused)
	case ActionStepFrame:
		t.paused = true
		t.step = true
	case ActionSnapshot:
		if t.cfg.OnSnapshot != nil {
			t.cfg.OnSnapshot(t.emu.FrameBuffer())
		}
	case ActionToggleChannel:
		if t.cfg.Audio != nil {
			t.cfg.Audio.ToggleChannel(b.Channel)
		}
	case ActionSoloChannel:
		if t.cfg.Audio != nil {
			t.cfg.Audio.SoloChannel(b.Channel)
		}
	case ActionLogLevelUp:
		stepLevel(t.cfg.LogLevel, 1)
	case ActionLogLevelDown:
		stepLevel(t.cfg.LogLevel, -1)
	}
}

func (t *Terminal) draw() {
	t.screen.Clear()

	frame := t.emu.FrameBuffer().Frame()
	Blit(t.screen, &frame, t.cfg.Palette, 0, 0)

	width, height := t.screen.Size()
	status := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	drawText(t.screen, 0, gameRows, width, status, t.statusLine())

	if t.cfg.Logs == nil || width < logColumn+minLogCols {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i, e := range t.cfg.Logs.Recent(height) {
		drawText(t.screen, logColumn, i, width, style, e.String())
	}
}

func (t *Terminal) statusLine() string {
	s := fmt.Sprintf("%s  %.1f fps", t.cfg.Title, t.fps.FPS())
	if t.paused {
		s += "  [paused]"
	}
	if t.cfg.Audio != nil {
		ch := [4]bool{}
		ch[0], ch[1], ch[2], ch[3] = t.cfg.Audio.ChannelStatus()
		s += "  ch:"
		for i, on := range ch {
			if on {
				s += fmt.Sprint(i + 1)
			} else {
				s += "-"
			}
		}
	}
	return s
}
