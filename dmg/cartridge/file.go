package cartridge

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"
)

// LoadFile reads a ROM image, transparently unpacking .gz, .zip and .7z files.
// For archives the first entry is used.
func LoadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading rom: %w", err)
	}

	var rc io.ReadCloser
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		rc, err = gzip.NewReader(bytes.NewReader(data))
	case ".zip":
		var zr *zip.Reader
		zr, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			if len(zr.File) == 0 {
				return nil, fmt.Errorf("reading rom: %s: empty archive", filename)
			}
			rc, err = zr.File[0].Open()
		}
	case ".7z":
		var sr *sevenzip.Reader
		sr, err = sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			if len(sr.File) == 0 {
				return nil, fmt.Errorf("reading rom: %s: empty archive", filename)
			}
			rc, err = sr.File[0].Open()
		}
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", filename, err)
	}
	defer rc.Close()

	rom, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", filename, err)
	}
	return rom, nil
}

// SavePath returns the save file path for a ROM: same name, .sav extension.
func SavePath(romPath string) string {
	ext := filepath.Ext(romPath)
	return strings.TrimSuffix(romPath, ext) + ".sav"
}

// RTCPath returns the clock state path stored next to a save file.
func RTCPath(savePath string) string {
	return strings.TrimSuffix(savePath, filepath.Ext(savePath)) + ".rtc"
}

// LoadSave returns size bytes of cartridge RAM from path. A missing file yields
// RAM filled with 0xFF; a short file is padded the same way.
func LoadSave(path string, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	ram := bytes.Repeat([]byte{0xFF}, size)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ram, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading save: %w", err)
	}

	copy(ram, data)
	return ram, nil
}

// WriteSave dumps cartridge RAM to path. Nothing is written for cartridges without RAM.
func WriteSave(path string, ram []byte) error {
	if len(ram) == 0 {
		return nil
	}
	if err := os.WriteFile(path, ram, 0o644); err != nil {
		return fmt.Errorf("writing save: %w", err)
	}
	return nil
}

// rtcFileSize is the five clock registers followed by the unix time they were saved at.
const rtcFileSize = 5 + 8

// LoadRTC reads the five clock registers and the time they were saved at. ok is
// false if no state was stored. Files holding only the registers yield a zero time.
func LoadRTC(path string) (rtc [5]uint8, saved time.Time, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rtc, saved, false, nil
	}
	if err != nil {
		return rtc, saved, false, fmt.Errorf("reading rtc: %w", err)
	}
	if len(data) < len(rtc) {
		return rtc, saved, false, fmt.Errorf("reading rtc: %s: short file", path)
	}
	copy(rtc[:], data)
	if len(data) >= rtcFileSize {
		saved = time.Unix(int64(binary.LittleEndian.Uint64(data[len(rtc):])), 0)
	}
	return rtc, saved, true, nil
}

// WriteRTC persists the five clock registers with the time they correspond to.
func WriteRTC(path string, rtc [5]uint8, saved time.Time) error {
	data := make([]byte, rtcFileSize)
	copy(data, rtc[:])
	binary.LittleEndian.PutUint64(data[len(rtc):], uint64(saved.Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rtc: %w", err)
	}
	return nil
}
