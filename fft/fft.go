// Package fft provides a reusable transform plan over gonum's real FFT.
package fft

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan holds the buffers and transform object for repeated execution.
// Input length is the transform size; Output must hold len(Input)/2+1
// coefficients.
type Plan struct {
	Input  []float64
	Output []complex128

	fft *fourier.FFT
}

// NewPlan returns a plan that transforms input into output on each Execute.
func NewPlan(input []float64, output []complex128) *Plan {
	return &Plan{
		Input:  input,
		Output: output,
	}
}

// Execute runs the transform.
func (p *Plan) Execute() {
	if p.fft == nil {
		p.fft = fourier.NewFFT(len(p.Input))
	}
	p.fft.Coefficients(p.Output, p.Input)
}

// BinCount returns the number of coefficients a transform of size n yields.
func BinCount(n int) int {
	return n/2 + 1
}
