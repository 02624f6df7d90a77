package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(Config{SampleRate: 44100})
}

func rampSamples(start, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = float64(start+i) / 1e6
	}
	return out
}

func TestRingCutover(t *testing.T) {
	az := newTestAnalyzer()

	// Two oversized chunks; only the tail of the second may survive.
	require.NoError(t, az.Process(rampSamples(0, SampleSize*2), 1))
	require.NoError(t, az.Process(rampSamples(10000, SampleSize+512), 1))

	for i := 0; i < SampleSize; i++ {
		want := float64(10000+512+i) / 1e6
		require.Equal(t, want, az.ring[i], "ring index %d", i)
	}
}

func TestRingShiftAppend(t *testing.T) {
	az := newTestAnalyzer()

	// Fill the ring, then feed a short chunk and verify the two ingests
	// reconstruct one contiguous sequence.
	require.NoError(t, az.Process(rampSamples(0, SampleSize), 1))

	const short = 100
	require.NoError(t, az.Process(rampSamples(SampleSize, short), 1))

	for i := 0; i < SampleSize; i++ {
		want := float64(short+i) / 1e6
		require.Equal(t, want, az.ring[i], "ring index %d", i)
	}
}

func TestRingDownMix(t *testing.T) {
	az := newTestAnalyzer()

	// Interleaved stereo frames (l, r) mix to their average.
	chunk := make([]float64, 8*2)
	for i := 0; i < 8; i++ {
		chunk[i*2] = 0.25
		chunk[i*2+1] = 0.75
	}
	require.NoError(t, az.Process(chunk, 2))

	for i := SampleSize - 8; i < SampleSize; i++ {
		assert.InDelta(t, 0.5, az.ring[i], 1e-12)
	}
}

func TestProcessRejectsZeroChannels(t *testing.T) {
	az := newTestAnalyzer()

	assert.Error(t, az.Process(make([]float64, 64), 0))
	assert.Error(t, az.Process(make([]float64, 64), -1))
}

func TestSmoothingConverges(t *testing.T) {
	az := newTestAnalyzer()

	sine := make([]float64, SampleSize)
	for i := range sine {
		sine[i] = math.Sin(2 * math.Pi * 32 * float64(i) / SampleSize)
	}

	// Feeding the same signal repeatedly drives the one-pole filter to
	// its fixed point, the true magnitude.
	for i := 0; i < 40; i++ {
		require.NoError(t, az.Process(sine, 1))
	}
	settled := make([]float64, BandCount)
	copy(settled, az.smoothed)

	require.NoError(t, az.Process(sine, 1))
	for k := range settled {
		assert.InDelta(t, settled[k], az.smoothed[k], 1e-9, "bin %d", k)
	}
}

func TestDecibelScaleMonotonic(t *testing.T) {
	az := newTestAnalyzer()

	mags := []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1.0}

	prev := -1
	for _, m := range mags {
		for k := range az.smoothed {
			az.smoothed[k] = m
		}
		// A no-op chunk keeps the ring but rescales the frame bytes off
		// the injected magnitudes after smoothing decays them equally.
		require.NoError(t, az.Process(nil, 1))

		got := int(az.frame[1])
		assert.GreaterOrEqual(t, got, prev, "magnitude %g", m)
		prev = got
	}
}

func TestZeroMagnitudeMapsToFloor(t *testing.T) {
	az := newTestAnalyzer()

	// Silence all the way through leaves every smoothed value at zero.
	require.NoError(t, az.Process(make([]float64, SampleSize), 1))

	for k := 0; k < BandCount; k++ {
		require.Equal(t, byte(0), az.frame[k], "bin %d", k)
	}
}

func TestWaveformEncoding(t *testing.T) {
	az := newTestAnalyzer()

	chunk := make([]float64, SampleSize)
	chunk[0] = 0.0
	chunk[1] = 1.0
	chunk[2] = -1.0
	chunk[3] = 2.0  // clamps high
	chunk[4] = -2.0 // clamps low
	require.NoError(t, az.Process(chunk, 1))

	wave := az.frame[BandCount:]
	assert.Equal(t, byte(128), wave[0])
	assert.Equal(t, byte(255), wave[1])
	assert.Equal(t, byte(0), wave[2])
	assert.Equal(t, byte(255), wave[3])
	assert.Equal(t, byte(0), wave[4])
}

func TestFramePublication(t *testing.T) {
	az := newTestAnalyzer()

	dst := make([]byte, FrameSize)
	assert.False(t, az.Frame(dst), "no frame before first Process")

	require.NoError(t, az.Process(make([]float64, 256), 1))
	assert.True(t, az.Frame(dst))
	assert.False(t, az.Frame(dst), "flag clears after a read")

	require.NoError(t, az.Process(make([]float64, 256), 1))
	assert.True(t, az.Frame(dst))
}

type recordingSink struct {
	frames int
	last   []byte
}

func (rs *recordingSink) Send(frame []byte) error {
	rs.frames++
	rs.last = append(rs.last[:0], frame...)
	return nil
}

func TestFrameTap(t *testing.T) {
	sink := &recordingSink{}
	az := NewAnalyzer(Config{SampleRate: 44100, Tap: sink})

	require.NoError(t, az.Process(make([]float64, 256), 1))
	require.NoError(t, az.Process(make([]float64, 256), 1))

	assert.Equal(t, 2, sink.frames)
	assert.Len(t, sink.last, FrameSize)
}

func TestSinePeakBin(t *testing.T) {
	const (
		rate = 44100.0
		freq = 440.0
	)

	az := NewAnalyzer(Config{SampleRate: rate})

	// 1024-frame stereo burst of a pure 440 Hz tone. The low amplitude
	// keeps the peak inside the decibel window instead of clamping at 255.
	chunk := make([]float64, SampleSize*2)
	for i := 0; i < SampleSize; i++ {
		v := 0.01 * math.Sin(2*math.Pi*freq*float64(i)/rate)
		chunk[i*2] = v
		chunk[i*2+1] = v
	}

	// Repeat so the temporal smoothing settles.
	for i := 0; i < 10; i++ {
		require.NoError(t, az.Process(chunk, 2))
	}

	peak, peakIdx := byte(0), -1
	for k := 1; k < BandCount; k++ {
		if az.frame[k] > peak {
			peak, peakIdx = az.frame[k], k
		}
	}

	wantBin := int(math.Round(freq * SampleSize / rate))
	assert.InDelta(t, wantBin, peakIdx, 1)
	assert.Greater(t, az.frame[peakIdx], az.frame[peakIdx+2])
	if peakIdx > 2 {
		assert.Greater(t, az.frame[peakIdx], az.frame[peakIdx-2])
	}
}
