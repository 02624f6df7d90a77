package render

import (
	"log"
	"time"

	"github.com/seliv/shaderviz/gfx"
)

const (
	probeWidth  = 32
	probeHeight = 26 * 10

	// minPrecisionBits keeps the time-wraparound period long enough even
	// on hardware whose fragment pipeline preserves very few sub-ms bits.
	// mali-400 reports 10, which would wrap the timer after ~1 second.
	minPrecisionBits = 13
)

// probeFragment renders one row band per candidate bit of the millisecond
// timer. A band lights up only while the hardware still resolves that
// bit, so counting lit/dark transitions down a column yields the usable
// precision.
const probeFragment = `
void mainImage(out vec4 fragColor, in vec2 fragCoord)
{
  float band = floor(fragCoord.y / 10.0);
  float ms = iGlobalTime * 1000.0;
  float v = fract(ms / pow(2.0, band));
  float lit = step(0.5, fract(v + float(int(band) & 1)));
  fragColor = vec4(lit, lit, lit, 1.0);
}
`

// probePrecision measures how many bits of sub-millisecond timer
// precision the fragment pipeline preserves. It renders the diagnostic
// shader once into a small offscreen target, reads back the center pixel
// column and counts dark-to-lit transitions. The result is floored to
// minPrecisionBits; a readback with no transitions therefore still yields
// a safe wrap period.
func probePrecision(b gfx.Backend, vertex gfx.Buffer) int {
	var pipe Pipeline
	if err := pipe.Load(b, probeFragment); err != nil {
		log.Printf("precision probe shader failed to compile: %v", err)
		return minPrecisionBits
	}

	tex := b.CreateTexture(probeWidth, probeHeight, gfx.TextureRGB8, nil, false)
	fb := b.CreateFramebuffer(tex)

	b.UseProgram(pipe.Effect)
	b.Uniform3f(pipe.Loc.Resolution, probeWidth, probeHeight, 0)
	b.Uniform1f(pipe.Loc.Time, float32(time.Now().UnixNano())/float32(time.Second))
	b.BindFramebuffer(fb)
	b.Viewport(probeWidth, probeHeight)
	b.DrawQuad(vertex, pipe.AttrEffect)
	b.Finish()

	pixels := b.ReadPixels(probeWidth, probeHeight)

	b.BindFramebuffer(0)
	b.UseProgram(0)
	b.DeleteFramebuffer(fb)
	b.DeleteTexture(tex)
	pipe.Release(b)

	bits := countTransitions(pixels, probeWidth, probeHeight)
	if bits < minPrecisionBits {
		bits = minPrecisionBits
	}
	return bits
}

// countTransitions walks the center column of an RGBA readback and counts
// dark-to-lit edges on the red channel.
func countTransitions(pixels []byte, w, h int) int {
	bits := 0
	prev := byte(0)
	for y := 0; y < h; y++ {
		c := pixels[4*(y*w+w/2)]
		if c != 0 && prev == 0 {
			bits++
		}
		prev = c
	}
	return bits
}

// wrapElapsed masks elapsed milliseconds down to the calibrated precision
// so shader-side time arithmetic never loses the low bits.
func wrapElapsed(ms int64, bits int) int64 {
	if bits > 0 {
		ms &= (1 << uint(bits)) - 1
	}
	return ms
}
