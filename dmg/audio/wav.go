package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/youpy/go-wav"
)

// Recorder buffers pulled samples in memory and writes them out as a 16 bit
// stereo WAV file on Close.
type Recorder struct {
	path    string
	samples []wav.Sample
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Write appends interleaved stereo values as produced by Fill.
func (r *Recorder) Write(buf []int16) {
	for i := 0; i+1 < len(buf); i += 2 {
		s := wav.Sample{}
		s.Values[0] = int(buf[i])
		s.Values[1] = int(buf[i+1])
		r.samples = append(r.samples, s)
	}
}

// Len is the number of stereo samples recorded so far.
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Close writes the WAV file.
func (r *Recorder) Close() (rerr error) {
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("wav recorder: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wav recorder: %w", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(r.samples)), 2, SampleRate, 16)
	if enc == nil {
		return errors.New("wav recorder: bad parameters for wav encoding")
	}
	if err := enc.WriteSamples(r.samples); err != nil {
		return fmt.Errorf("wav recorder: %w", err)
	}
	return nil
}

// DecodeWAV reads a whole WAV stream into an integer PCM buffer.
func DecodeWAV(rs io.ReadSeeker) (*goaudio.IntBuffer, error) {
	dec := gowav.NewDecoder(rs)
	if dec == nil || !dec.IsValidFile() {
		return nil, errors.New("wav: not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return buf, nil
}

// ReadWAV opens and decodes a WAV file.
func ReadWAV(path string) (*goaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f)
}

// WAVDuration reads a recording back and returns its playing time.
func WAVDuration(path string) (time.Duration, error) {
	buf, err := ReadWAV(path)
	if err != nil {
		return 0, err
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || buf.Format.SampleRate == 0 {
		return 0, errors.New("wav: missing format")
	}
	frames := len(buf.Data) / buf.Format.NumChannels
	return time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate), nil
}
