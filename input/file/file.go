// Package file streams audio files as if they were a live capture:
// chunks are released at wall-clock rate so the visual output matches
// playback speed.
package file

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/input"
)

// Session replays one audio file.
type Session struct {
	path string
	cfg  input.SessionConfig
}

// NewSession prepares a playback session. The file's own channel count
// and sample rate override the ones in cfg.
func NewSession(path string, cfg input.SessionConfig) (*Session, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3":
	default:
		return nil, errors.Errorf("unsupported audio file %q", path)
	}
	return &Session{path: path, cfg: cfg}, nil
}

// Start decodes and pushes chunks until the file ends or ctx is
// canceled. Chunks are paced to the file's sample rate.
func (s *Session) Start(ctx context.Context, dst input.Consumer) error {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".wav":
		return s.playWAV(ctx, dst)
	case ".mp3":
		return s.playMP3(ctx, dst)
	}
	return errors.Errorf("unsupported audio file %q", s.path)
}

func (s *Session) playWAV(ctx context.Context, dst input.Consumer) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return errors.Errorf("not a valid wav file: %q", s.path)
	}

	format := dec.Format()
	channels := format.NumChannels
	scale := 1.0 / float64(int(1)<<(dec.BitDepth-1))

	buf := &audio.IntBuffer{
		Format: format,
		Data:   make([]int, s.cfg.SampleSize*channels),
	}
	samples := make([]float64, len(buf.Data))

	pace := newPacer(s.cfg.SampleSize, float64(format.SampleRate))
	defer pace.stop()

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return errors.Wrap(err, "failed to decode wav")
		}
		if n == 0 {
			return nil
		}

		for i := 0; i < n; i++ {
			samples[i] = float64(buf.Data[i]) * scale
		}

		if err := pace.wait(ctx); err != nil {
			return err
		}
		if err := dst.Process(samples[:n], channels); err != nil {
			return err
		}
	}
}

func (s *Session) playMP3(ctx context.Context, dst input.Consumer) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return errors.Wrap(err, "failed to decode mp3")
	}

	// The decoder always emits interleaved stereo int16le.
	const channels = 2
	raw := make([]byte, s.cfg.SampleSize*channels*2)
	samples := make([]float64, s.cfg.SampleSize*channels)

	pace := newPacer(s.cfg.SampleSize, float64(dec.SampleRate()))
	defer pace.stop()

	for {
		n, err := io.ReadFull(dec, raw)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "failed to read mp3")
		}

		values := n / 2
		for i := 0; i < values; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
			samples[i] = float64(v) / 32768.0
		}

		if err := pace.wait(ctx); err != nil {
			return err
		}
		if err := dst.Process(samples[:values], channels); err != nil {
			return err
		}
		if n < len(raw) {
			return nil
		}
	}
}

// pacer releases one chunk per chunk-duration of wall time.
type pacer struct {
	ticker *time.Ticker
}

func newPacer(frames int, rate float64) *pacer {
	d := time.Duration(float64(frames) / rate * float64(time.Second))
	if d <= 0 {
		d = time.Millisecond
	}
	return &pacer{ticker: time.NewTicker(d)}
}

func (p *pacer) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

func (p *pacer) stop() {
	p.ticker.Stop()
}
