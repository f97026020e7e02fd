package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dmg/dmg"
	"github.com/valerio/go-dmg/dmg/audio"
	"github.com/valerio/go-dmg/dmg/cartridge"
)

// writeROM stores a blank cartridge running program and returns its path.
func writeROM(t *testing.T, cartType, ramSize uint8, program []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gb")
	rom := cartridge.Blank("TEST", cartType, 0x00, ramSize, program)
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

func run(args ...string) error {
	return newApp().Run(append([]string{"dmg"}, args...))
}

// storeByte enables cartridge RAM and writes 0x5A to 0xA000.
var storeByte = []byte{
	0x3E, 0x0A, // LD A,0x0A
	0xEA, 0x00, 0x00, // LD (0x0000),A
	0x3E, 0x5A, // LD A,0x5A
	0xEA, 0x00, 0xA0, // LD (0xA000),A
}

func TestArguments(t *testing.T) {
	t.Run("missing rom", func(t *testing.T) {
		assert.ErrorContains(t, run("--headless", "--frames", "1"), "no ROM")
	})

	t.Run("headless needs frames", func(t *testing.T) {
		rom := writeROM(t, 0x00, 0x00, []byte{0x18, 0xFE})
		assert.ErrorContains(t, run("--headless", rom), "--frames")
	})

	t.Run("rom not found", func(t *testing.T) {
		assert.Error(t, run("--headless", "--frames", "1", filepath.Join(t.TempDir(), "missing.gb")))
	})
}

func TestHeadless(t *testing.T) {
	t.Run("snapshots", func(t *testing.T) {
		rom := writeROM(t, 0x00, 0x00, []byte{0x18, 0xFE})
		dir := filepath.Join(t.TempDir(), "shots")

		require.NoError(t, run("--headless", "--frames", "4",
			"--snapshot-interval", "2", "--snapshot-dir", dir, "--rom", rom))

		shots, err := filepath.Glob(filepath.Join(dir, "*.png"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(dir, "test_frame_2.png"),
			filepath.Join(dir, "test_frame_4.png"),
		}, shots)
	})

	t.Run("battery save written on exit", func(t *testing.T) {
		rom := writeROM(t, 0x03, 0x02, append(storeByte, 0x18, 0xFE))

		require.NoError(t, run("--headless", "--frames", "1", rom))

		save, err := os.ReadFile(cartridge.SavePath(rom))
		require.NoError(t, err)
		assert.Len(t, save, 8*1024)
		assert.Equal(t, byte(0x5A), save[0])
		assert.Equal(t, byte(0xFF), save[1])
	})

	t.Run("invalid opcode stops and keeps ram", func(t *testing.T) {
		rom := writeROM(t, 0x03, 0x02, append(storeByte, 0xD3))
		dump := filepath.Join(t.TempDir(), "state.dot")

		err := run("--headless", "--frames", "10", "--dump-state", dump, rom)
		assert.ErrorIs(t, err, dmg.ErrStopped)

		recovery, err := os.ReadFile(filepath.Join(filepath.Dir(rom), recoveryFile))
		require.NoError(t, err)
		assert.Equal(t, byte(0x5A), recovery[0])

		state, err := os.ReadFile(dump)
		require.NoError(t, err)
		assert.Contains(t, string(state), "digraph")
	})

	t.Run("wav recording", func(t *testing.T) {
		rom := writeROM(t, 0x00, 0x00, []byte{0x18, 0xFE})
		wav := filepath.Join(t.TempDir(), "out.wav")

		require.NoError(t, run("--headless", "--frames", "3", "--wav", wav, rom))

		buf, err := audio.ReadWAV(wav)
		require.NoError(t, err)
		assert.Equal(t, 2, buf.Format.NumChannels)
		assert.Len(t, buf.Data, 3*2*audio.SamplesPerFrame)
	})

	t.Run("trace", func(t *testing.T) {
		rom := writeROM(t, 0x00, 0x00, []byte{0x18, 0xFE})
		trace := filepath.Join(t.TempDir(), "trace.txt")

		require.NoError(t, run("--headless", "--frames", "1", "--trace", trace, "--trace-limit", "2", rom))

		data, err := os.ReadFile(trace)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "0100  JR r8 ; $FE"), lines[0])
	})

	t.Run("clock keeps running while closed", func(t *testing.T) {
		rom := writeROM(t, 0x10, 0x03, []byte{0x18, 0xFE})
		rtcPath := cartridge.RTCPath(cartridge.SavePath(rom))
		closed := time.Now().Add(-time.Hour)
		require.NoError(t, cartridge.WriteRTC(rtcPath, [5]uint8{1, 2, 3, 4, 0}, closed))

		require.NoError(t, run("--headless", "--frames", "1", rom))

		regs, saved, ok, err := cartridge.LoadRTC(rtcPath)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint8(2), regs[1])
		assert.Equal(t, uint8(4), regs[2])
		assert.Equal(t, uint8(4), regs[3])
		assert.WithinDuration(t, time.Now(), saved, 5*time.Second)
	})
}
