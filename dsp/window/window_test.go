package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ones(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = 1
	}
	return buf
}

func TestBlackman(t *testing.T) {
	const size = 256

	buf := ones(size)
	Blackman(buf)

	// a0 - a1 + a2 cancels exactly at phase zero.
	assert.InDelta(t, 0.0, buf[0], 1e-12)

	// Unity gain at the center of the window.
	assert.InDelta(t, 1.0, buf[size/2], 1e-12)

	// Symmetric about the center for the n/N phase convention.
	for n := 1; n < size/2; n++ {
		assert.InDelta(t, buf[n], buf[size-n], 1e-12, "n=%d", n)
	}
}

func TestHannEdges(t *testing.T) {
	buf := ones(128)
	Hann(buf)

	assert.InDelta(t, 0.0, buf[0], 1e-12)
	assert.InDelta(t, 1.0, buf[64], 1e-12)
}

func TestRectangle(t *testing.T) {
	buf := ones(16)
	Rectangle(buf)

	for _, v := range buf {
		assert.Equal(t, 1.0, v)
	}
}
