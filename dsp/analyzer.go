// Package dsp turns raw audio chunks into texture-ready analysis frames.
//
// Some notes:
//
// https://webaudio.github.io/web-audio-api/#fft-windowing-and-smoothing-over-time
// https://dlbeer.co.nz/articles/fftvis.html
package dsp

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/dsp/window"
	"github.com/seliv/shaderviz/fft"
)

const (
	// SampleSize is the ring capacity and transform size, in mono frames.
	SampleSize = 1024

	// BandCount is the number of frequency bins exposed to the shader.
	BandCount = SampleSize / 2

	// FrameSize is the byte length of one analysis frame: BandCount
	// spectrum bytes followed by BandCount waveform bytes.
	FrameSize = BandCount * 2

	smoothingTimeConstant = 0.5
	minDecibels           = -100.0
	maxDecibels           = -30.0
)

// Sink receives a copy of every published analysis frame.
type Sink interface {
	Send(frame []byte) error
}

// Config holds analyzer parameters.
type Config struct {
	SampleRate float64         // rate at which samples arrive
	Windower   window.Function // taper applied before the transform; Blackman if nil
	Tap        Sink            // optional frame tap, may be nil
}

// Analyzer accumulates mono samples in a ring buffer and produces smoothed,
// perceptually scaled analysis frames.
//
// Process is the single writer; Frame is the single reader. A consumer
// always observes a fully-old or fully-new frame, never a partial one.
type Analyzer struct {
	cfg Config

	ring     []float64 // most recent SampleSize mono samples, newest at the tail
	windowed []float64
	fftBuf   []complex128
	plan     *fft.Plan
	smoothed []float64

	scratch [FrameSize]byte

	mu      sync.Mutex
	frame   [FrameSize]byte
	pending bool
}

// NewAnalyzer sets up an analyzer.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Windower == nil {
		cfg.Windower = window.Blackman
	}

	az := &Analyzer{
		cfg:      cfg,
		ring:     make([]float64, SampleSize),
		windowed: make([]float64, SampleSize),
		fftBuf:   make([]complex128, fft.BinCount(SampleSize)),
		smoothed: make([]float64, BandCount),
	}

	az.plan = fft.NewPlan(az.windowed, az.fftBuf)

	return az
}

// SampleRate returns the configured input rate.
func (az *Analyzer) SampleRate() float64 {
	return az.cfg.SampleRate
}

// BinFrequency returns the center frequency of a spectrum bin in Hz.
func (az *Analyzer) BinFrequency(bin int) float64 {
	return float64(bin) * az.cfg.SampleRate / SampleSize
}

// Process mixes one chunk of interleaved samples into the ring, runs the
// transform and publishes a new frame. It is pure computation and touches
// no GPU state.
func (az *Analyzer) Process(samples []float64, channels int) error {
	if channels < 1 {
		return errors.New("channel count must be positive")
	}

	az.writeRing(samples, channels)

	copy(az.windowed, az.ring)
	az.cfg.Windower(az.windowed)
	az.plan.Execute()

	// The DC term carries no phase for real input; gonum's real transform
	// already yields a purely real bin 0.
	for k := 0; k < BandCount; k++ {
		c := az.fftBuf[k]
		mag := math.Hypot(real(c), imag(c)) / SampleSize
		az.smoothed[k] = smoothingTimeConstant*az.smoothed[k] +
			(1.0-smoothingTimeConstant)*mag
	}

	const rangeScale = 255.0 / (maxDecibels - minDecibels)
	for k := 0; k < BandCount; k++ {
		db := minDecibels
		if s := az.smoothed[k]; s != 0 {
			db = 20.0 * math.Log10(s)
		}
		az.scratch[k] = clampByte(math.Round((db - minDecibels) * rangeScale))
	}

	// Only the first half of the retained time samples fit the fixed frame
	// layout; see the design notes on the accepted asymmetry.
	for k := 0; k < BandCount; k++ {
		az.scratch[BandCount+k] = clampByte(math.Round((az.ring[k] + 1.0) * 128.0))
	}

	az.mu.Lock()
	copy(az.frame[:], az.scratch[:])
	az.pending = true
	az.mu.Unlock()

	if az.cfg.Tap != nil {
		if err := az.cfg.Tap.Send(az.scratch[:]); err != nil {
			return errors.Wrap(err, "frame tap")
		}
	}

	return nil
}

// Frame copies the latest published frame into dst and clears the pending
// flag. It returns false when no new frame has been published since the
// last call, leaving dst untouched.
func (az *Analyzer) Frame(dst []byte) bool {
	az.mu.Lock()
	defer az.mu.Unlock()

	if !az.pending {
		return false
	}

	copy(dst, az.frame[:])
	az.pending = false
	return true
}

// writeRing mixes interleaved frames down to mono and advances the ring.
// A chunk of at least SampleSize frames replaces the ring outright; a
// shorter one shifts the ring left and appends at the tail.
func (az *Analyzer) writeRing(samples []float64, channels int) {
	frames := len(samples) / channels

	if frames >= SampleSize {
		offset := (frames - SampleSize) * channels
		mixDown(az.ring, samples[offset:], channels)
		return
	}

	keep := SampleSize - frames
	copy(az.ring, az.ring[frames:])
	mixDown(az.ring[keep:], samples, channels)
}

// mixDown averages interleaved channels into dst, one frame per element.
func mixDown(dst []float64, src []float64, channels int) {
	for i := range dst {
		v := 0.0
		for c := 0; c < channels; c++ {
			v += src[i*channels+c]
		}
		dst[i] = v / float64(channels)
	}
}

func clampByte(v float64) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}
