// Package window provides window functions for signal analysis
//
// See https://wikipedia.org/wiki/Window_function
package window

import "math"

// Function modifies a sample buffer in place.
type Function func(buf []float64)

// Rectangle is just do nothing
func Rectangle(buf []float64) {
	// do nothing
}

// CosSum modifies the buffer to conform to a cosine sum window following a0
func CosSum(buf []float64, a0 float64) {
	var size = len(buf)
	var a1 = 1.0 - a0
	var coef = 2.0 * math.Pi / float64(size)
	for n := 0; n < size; n++ {
		buf[n] *= (a0 - a1*math.Cos(coef*float64(n)))
	}
}

// Hamming modifies the buffer to a Hamming window
func Hamming(buf []float64) {
	CosSum(buf, 25.0/46.0)
}

// Hann modifies the buffer to a Hann window
func Hann(buf []float64) {
	CosSum(buf, 0.5)
}

// Blackman modifies the buffer to a Blackman window with alpha 0.16.
// The phase runs n/N over the buffer, oldest sample first.
func Blackman(buf []float64) {
	const alpha = 0.16

	var (
		a0 = 0.5 * (1.0 - alpha)
		a1 = 0.5
		a2 = 0.5 * alpha
	)

	var size = len(buf)
	var coef = 2.0 * math.Pi / float64(size)
	for n := 0; n < size; n++ {
		x := coef * float64(n)
		buf[n] *= a0 - a1*math.Cos(x) + a2*math.Cos(2.0*x)
	}
}

// PlanckTaper modifies the buffer to a Planck-taper window
func PlanckTaper(buf []float64, e float64) {
	var size = len(buf)
	var eN = e * float64(size)

	buf[0] *= 0
	for n := 1; n < int(eN); n++ {
		buf[n] *= 1.0 / (1.0 + math.Exp((eN/float64(n))-(eN/(eN-float64(n)))))
	}

	for n := 1; n <= size/2; n++ {
		buf[size-n] *= buf[n-1]
	}
}
