package execread

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seliv/shaderviz/input"
)

type collector struct {
	chunks   [][]float64
	channels int
}

func (c *collector) Process(samples []float64, channels int) error {
	chunk := make([]float64, len(samples))
	copy(chunk, samples)
	c.chunks = append(c.chunks, chunk)
	c.channels = channels
	return nil
}

func encodeF32LE(values ...float32) []byte {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return raw
}

func TestDecodeF32LE(t *testing.T) {
	raw := encodeF32LE(0, 0.5, -1, 1)
	dst := make([]float64, 4)

	DecodeF32LE(dst, raw)
	assert.InDeltaSlice(t, []float64{0, 0.5, -1, 1}, dst, 1e-7)
}

func TestSessionStreamsStdout(t *testing.T) {
	// cat stands in for a capture process, streaming encoded samples
	// from a temp file.
	raw := encodeF32LE(0.25, -0.25, 0.5, -0.5, 0.75, -0.75, 1, -1)
	path := t.TempDir() + "/pcm.raw"
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s := NewSession([]string{"cat", path}, input.SessionConfig{
		Channels:   2,
		SampleRate: 44100,
		SampleSize: 2,
	})

	var dst collector
	require.NoError(t, s.Start(context.Background(), &dst))

	require.Len(t, dst.chunks, 2, "two chunks of two stereo frames")
	assert.Equal(t, 2, dst.channels)
	assert.InDeltaSlice(t, []float64{0.25, -0.25, 0.5, -0.5}, dst.chunks[0], 1e-7)
	assert.InDeltaSlice(t, []float64{0.75, -0.75, 1, -1}, dst.chunks[1], 1e-7)
}

func TestSessionDropsShortTail(t *testing.T) {
	// Five values do not fill the second four-value chunk; the remainder
	// is discarded at EOF.
	raw := encodeF32LE(1, 2, 3, 4, 5)
	path := t.TempDir() + "/pcm.raw"
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s := NewSession([]string{"cat", path}, input.SessionConfig{
		Channels:   2,
		SampleRate: 44100,
		SampleSize: 2,
	})

	var dst collector
	require.NoError(t, s.Start(context.Background(), &dst))
	assert.Len(t, dst.chunks, 1)
}

func TestNewSessionPanicsOnEmptyArgv(t *testing.T) {
	assert.Panics(t, func() {
		NewSession(nil, input.SessionConfig{})
	})
}
