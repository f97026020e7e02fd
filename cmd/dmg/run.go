package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/cartridge"
	"github.com/valerio/go-dmg/dmg/debug"
	"github.com/valerio/go-dmg/dmg/fault"
	"github.com/valerio/go-dmg/dmg/render"
	"github.com/valerio/go-dmg/dmg/serial"
	"github.com/valerio/go-dmg/dmg/timing"
	"github.com/valerio/go-dmg/dmg/video"
)

const recoveryFile = "recovery.sav"

// session owns everything opened for one run and releases it on close.
type session struct {
	romPath  string
	savePath string
	header   cartridge.Header
	mem      *cartridge.Memory
	emu      *dmg.DMG
	palette  video.Palette

	recorder *audio.Recorder
	closers  []func() error
	dumpPath string
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}
	if romPath == "" {
		return errors.New("no ROM path provided")
	}

	headless := c.Bool("headless")
	if headless && c.Int("frames") <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}

	level := &slog.LevelVar{}
	if c.Bool("debug") {
		level.Set(slog.LevelDebug)
	}
	var logs *render.LogBuffer
	if headless {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	} else {
		logs = render.NewLogBuffer(200)
		slog.SetDefault(slog.New(render.NewLogHandler(logs, level)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, c, romPath)
	if err != nil {
		return err
	}

	if headless {
		err = s.runHeadless(ctx, c)
	} else {
		err = s.runInteractive(ctx, c, logs, level)
	}
	return errors.Join(err, s.close())
}

func openSession(ctx context.Context, c *cli.Context, romPath string) (*session, error) {
	rom, err := cartridge.LoadFile(romPath)
	if err != nil {
		return nil, err
	}
	header, err := cartridge.ParseHeader(cartridge.NewMemory(rom, nil))
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	s := &session{
		romPath:  romPath,
		savePath: c.String("save"),
		header:   header,
		dumpPath: c.String("dump-state"),
	}
	if s.savePath == "" {
		s.savePath = cartridge.SavePath(romPath)
	}

	ram, err := cartridge.LoadSave(s.savePath, header.SaveSize)
	if err != nil {
		return nil, err
	}
	s.mem = cartridge.NewMemory(rom, ram)

	opts := []dmg.Option{dmg.WithLogger(slog.Default())}
	if c.Bool("immediate-ei") {
		opts = append(opts, dmg.WithImmediateEI())
	}
	if c.Bool("frame-skip") {
		opts = append(opts, dmg.WithFrameSkip())
	}
	if c.Bool("interlace") {
		opts = append(opts, dmg.WithInterlace())
	}

	peer, err := s.openPeer(ctx, c)
	if err != nil {
		s.close()
		return nil, err
	}
	if peer != nil {
		opts = append(opts, dmg.WithSerialPeer(peer))
	}

	faults := fault.NewLogHandler()
	faults.OnOpcode = func(uint16) { s.abort() }
	opts = append(opts, dmg.WithFaultHandler(faults))

	s.emu, err = dmg.New(s.mem, opts...)
	if err != nil {
		s.close()
		return nil, err
	}

	if err := s.restoreRTC(); err != nil {
		s.close()
		return nil, err
	}
	if err := s.attachTracer(c); err != nil {
		s.close()
		return nil, err
	}
	if path := c.String("wav"); path != "" {
		s.recorder = audio.NewRecorder(path)
		s.closers = append(s.closers, func() error { return closeRecording(s.recorder, path) })
	}
	if addr := c.String("stats"); addr != "" {
		stopStats := startStats(addr)
		s.closers = append(s.closers, func() error { stopStats(); return nil })
	}

	s.palette = video.GreyPalette
	if p, ok := video.PaletteFor(header.TitleChecksum); ok {
		s.palette = p
	}

	slog.Info("cartridge loaded",
		"title", header.DisplayTitle(),
		"mbc", header.MBC,
		"rom_banks", header.ROMBanks,
		"ram_banks", header.RAMBanks,
		"battery", header.HasBattery,
		"rtc", header.HasRTC)
	return s, nil
}

func (s *session) openPeer(ctx context.Context, c *cli.Context) (serial.Peer, error) {
	switch {
	case c.String("link-listen") != "":
		addr := c.String("link-listen")
		slog.Info("waiting for link peer", "address", addr)
		link, err := serial.Listen(ctx, addr, slog.Default())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, link.Close)
		return link, nil
	case c.String("link-dial") != "":
		link, err := serial.Dial(ctx, c.String("link-dial"), slog.Default())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, link.Close)
		return link, nil
	case c.Bool("link-log"):
		sink := serial.NewLogSink()
		s.closers = append(s.closers, func() error { sink.Flush(); return nil })
		return sink, nil
	}
	return nil, nil
}

// restoreRTC replaces the wall-clock seed with the stored registers, if any. The
// time spent closed is applied by the next SyncRTC.
func (s *session) restoreRTC() error {
	rtc := s.emu.RTC()
	if rtc == nil {
		return nil
	}
	stored, saved, ok, err := cartridge.LoadRTC(cartridge.RTCPath(s.savePath))
	if err != nil {
		return err
	}
	if ok {
		rtc.Restore(stored, saved, time.Now())
	}
	return nil
}

func (s *session) attachTracer(c *cli.Context) error {
	path := c.String("trace")
	if path == "" {
		return nil
	}

	var w io.Writer = os.Stderr
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("opening trace: %w", err)
		}
		s.closers = append(s.closers, f.Close)
		w = f
	}
	debug.NewTracer(w, c.Uint64("trace-limit")).Attach(s.emu)
	return nil
}

// abort stops the machine after an invalid opcode, keeping what can be kept.
func (s *session) abort() {
	recovery := filepath.Join(filepath.Dir(s.savePath), recoveryFile)
	if err := cartridge.WriteSave(recovery, s.mem.RAM()); err != nil {
		slog.Error("failed to write recovery save", "error", err)
	} else if len(s.mem.RAM()) > 0 {
		slog.Warn("cartridge RAM written", "path", recovery)
	}
	s.emu.Stop()
}

// afterFrame runs the per-frame host work shared by both front-ends.
func (s *session) afterFrame() {
	s.emu.SyncRTC(time.Now())
	if s.recorder != nil {
		s.recorder.Write(s.emu.APU().GetSamples(2 * audio.SamplesPerFrame))
	}
}

func (s *session) runHeadless(ctx context.Context, c *cli.Context) error {
	frames := c.Int("frames")
	interval := c.Int("snapshot-interval")
	scale := c.Int("snapshot-scale")

	dir := c.String("snapshot-dir")
	if interval > 0 && dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "dmg_snapshots_*")
		if err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	if interval > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		slog.Info("saving snapshots", "directory", dir, "interval", interval)
	}

	name := strings.TrimSuffix(filepath.Base(s.romPath), filepath.Ext(s.romPath))
	fb := s.emu.FrameBuffer()
	slog.Info("running headless", "frames", frames)

	for i := 1; i <= frames; i++ {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "frame", i)
			return nil
		default:
		}

		if err := s.emu.RunFrame(); err != nil {
			return err
		}
		s.afterFrame()

		if interval > 0 && i%interval == 0 {
			path := filepath.Join(dir, fmt.Sprintf("%s_frame_%d.png", name, i))
			if err := video.SavePNG(path, fb, s.palette, scale); err != nil {
				slog.Error("failed to save snapshot", "frame", i, "error", err)
			} else {
				slog.Info("saved snapshot", "frame", i, "path", path)
			}
		}
		if i%60 == 0 {
			slog.Info("frame progress", "completed", i, "total", frames, "digest", fmt.Sprintf("%016x", fb.Digest()))
		}
	}

	slog.Info("headless execution completed", "frames", frames, "digest", fmt.Sprintf("%016x", fb.Digest()))
	return nil
}

func (s *session) runInteractive(ctx context.Context, c *cli.Context, logs *render.LogBuffer, level *slog.LevelVar) error {
	limiter, err := timing.New(c.String("limiter"))
	if err != nil {
		return err
	}
	screen, err := render.NewScreen()
	if err != nil {
		return err
	}

	dir := c.String("snapshot-dir")
	scale := c.Int("snapshot-scale")
	name := strings.TrimSuffix(filepath.Base(s.romPath), filepath.Ext(s.romPath))

	term := render.New(screen, s.emu, render.Config{
		Title:    s.header.DisplayTitle(),
		Palette:  s.palette,
		Limiter:  limiter,
		Audio:    s.emu.APU(),
		Logs:     logs,
		LogLevel: level,
		OnFrame:  s.afterFrame,
		OnSnapshot: func(fb *video.FrameBuffer) {
			path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", name, s.emu.Frames()))
			if err := video.SavePNG(path, fb, s.palette, scale); err != nil {
				slog.Error("failed to save snapshot", "error", err)
				return
			}
			slog.Info("saved snapshot", "path", path)
		},
	})
	return term.Run(ctx)
}

// closeRecording writes the WAV file and reads it back to report its length.
func closeRecording(rec *audio.Recorder, path string) error {
	if err := rec.Close(); err != nil {
		return err
	}
	d, err := audio.WAVDuration(path)
	if err != nil {
		return fmt.Errorf("checking recording: %w", err)
	}
	slog.Info("audio recorded", "path", path, "duration", d.Round(time.Millisecond))
	return nil
}

// close persists battery-backed state and releases everything opened.
func (s *session) close() error {
	var errs []error
	if s.emu != nil {
		if s.header.HasBattery {
			errs = append(errs, cartridge.WriteSave(s.savePath, s.mem.RAM()))
		}
		if rtc := s.emu.RTC(); rtc != nil {
			s.emu.SyncRTC(time.Now())
			errs = append(errs, cartridge.WriteRTC(cartridge.RTCPath(s.savePath), rtc.Regs, rtc.Synced()))
		}
		if s.dumpPath != "" {
			errs = append(errs, debug.WriteStateFile(s.dumpPath, s.emu))
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
