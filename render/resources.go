package render

import (
	"github.com/seliv/shaderviz/gfx"
)

// slot binds a resolved channel descriptor to its texture. Feedback slots
// hold no texture of their own; they bind the front offscreen texture at
// draw time.
type slot struct {
	channel Channel
	texture gfx.Texture
}

// resources owns every GPU object a loaded preset holds: the four channel
// slots, the double-buffered offscreen pair and the shared quad geometry.
//
// The offscreen target is double buffered so a feedback channel always
// samples the previous completed frame while the current one renders into
// the other texture. The one-frame lag is intended.
type resources struct {
	slots [4]slot

	offTex [2]gfx.Texture
	offFB  [2]gfx.Framebuffer
	back   int // index rendered into this frame

	fbWidth  int
	fbHeight int

	vertex gfx.Buffer
}

// fullScreenQuad is the vertex data both passes share.
var fullScreenQuad = []float32{
	-1.0, 1.0, 1.0, 1.0,
	1.0, 1.0, 1.0, 1.0,
	1.0, -1.0, 1.0, 1.0,
	-1.0, -1.0, 1.0, 1.0,
}

func (r *resources) hasOffscreen() bool {
	return r.offFB[0] != 0
}

func (r *resources) backTexture() gfx.Texture {
	return r.offTex[r.back]
}

func (r *resources) backFramebuffer() gfx.Framebuffer {
	if !r.hasOffscreen() {
		return 0
	}
	return r.offFB[r.back]
}

// frontTexture is the previous completed frame, fed back to the shader.
func (r *resources) frontTexture() gfx.Texture {
	return r.offTex[1-r.back]
}

func (r *resources) swap() {
	r.back = 1 - r.back
}

// createOffscreen allocates the pair at the given dimensions. Zero
// dimensions configure direct-to-display rendering instead.
func (r *resources) createOffscreen(b gfx.Backend, w, h int) {
	r.fbWidth, r.fbHeight = w, h
	if w == 0 || h == 0 {
		return
	}

	for i := range r.offTex {
		r.offTex[i] = b.CreateTexture(w, h, gfx.TextureRGB8, nil, false)
		r.offFB[i] = b.CreateFramebuffer(r.offTex[i])
	}
}

// releaseOffscreen frees the pair. The preset-unload contract requires
// this to run before a new pair is created.
func (r *resources) releaseOffscreen(b gfx.Backend) {
	for i := range r.offTex {
		if r.offTex[i] != 0 {
			b.DeleteTexture(r.offTex[i])
			r.offTex[i] = 0
		}
		if r.offFB[i] != 0 {
			b.DeleteFramebuffer(r.offFB[i])
			r.offFB[i] = 0
		}
	}
	r.back = 0
	r.fbWidth, r.fbHeight = 0, 0
}

// releaseTextures frees all channel textures and clears the slots.
func (r *resources) releaseTextures(b gfx.Backend) {
	for i := range r.slots {
		if r.slots[i].texture != 0 {
			b.DeleteTexture(r.slots[i].texture)
		}
		r.slots[i] = slot{}
	}
}
