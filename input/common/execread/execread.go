// Package execread runs a capture process and streams the
// floating-point PCM it writes to stdout into a Consumer.
package execread

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/input"
)

// Session reads little-endian float32 samples from a command's stdout.
type Session struct {
	argv []string
	cfg  input.SessionConfig
}

// NewSession creates a session around argv. It panics when argv is
// empty; backends construct the argv themselves.
func NewSession(argv []string, cfg input.SessionConfig) *Session {
	if len(argv) < 1 {
		panic("execread: argv has no arg0")
	}
	return &Session{argv: argv, cfg: cfg}
}

// Start launches the process and pushes one chunk of SampleSize frames
// per read until the process exits or ctx is canceled.
func (s *Session) Start(ctx context.Context, dst input.Consumer) error {
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stderr = os.Stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to get stdout pipe")
	}
	defer out.Close()

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start "+s.argv[0])
	}
	defer cmd.Wait()

	values := s.cfg.SampleSize * s.cfg.Channels
	raw := make([]byte, values*4)
	samples := make([]float64, values)

	for {
		if _, err := io.ReadFull(out, raw); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "failed to read samples")
		}

		DecodeF32LE(samples, raw)
		if err := dst.Process(samples, s.cfg.Channels); err != nil {
			return err
		}
	}
}

// DecodeF32LE unpacks little-endian float32 bytes into dst. len(raw)
// must be 4*len(dst).
func DecodeF32LE(dst []float64, raw []byte) {
	for i := range dst {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		dst[i] = float64(math.Float32frombits(bits))
	}
}
