// Package gfxtest provides a recording gfx.Backend for tests. It tracks
// handle lifecycles so tests can assert create/destroy parity, and it can
// be scripted to fail compiles or answer pixel readbacks.
package gfxtest

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/gfx"
)

// TextureUpload records one UpdateTexture call.
type TextureUpload struct {
	Texture gfx.Texture
	W, H    int
	Format  gfx.TextureFormat
}

// Bind records one BindTexture call.
type Bind struct {
	Unit    int
	Texture gfx.Texture
}

// Backend is a fake GPU. The zero value is ready to use.
type Backend struct {
	next uint32

	Textures     map[gfx.Texture]bool
	Framebuffers map[gfx.Framebuffer]bool
	Programs     map[gfx.Program]bool
	Buffers      map[gfx.Buffer]bool

	// FailCompile makes every CompileProgram call fail when set.
	FailCompile bool

	// Readback is returned by ReadPixels; when nil, zeros are returned.
	Readback func(w, h int) []byte

	Uploads []TextureUpload
	Binds   []Bind
	Draws   int

	boundFramebuffer gfx.Framebuffer
	currentProgram   gfx.Program
}

var _ gfx.Backend = (*Backend)(nil)

// New returns an empty fake backend.
func New() *Backend {
	return &Backend{
		Textures:     map[gfx.Texture]bool{},
		Framebuffers: map[gfx.Framebuffer]bool{},
		Programs:     map[gfx.Program]bool{},
		Buffers:      map[gfx.Buffer]bool{},
	}
}

func (b *Backend) handle() uint32 {
	b.next++
	return b.next
}

func (b *Backend) CreateTexture(w, h int, format gfx.TextureFormat, data []byte, repeat bool) gfx.Texture {
	t := gfx.Texture(b.handle())
	b.Textures[t] = true
	return t
}

func (b *Backend) UpdateTexture(t gfx.Texture, w, h int, format gfx.TextureFormat, data []byte) {
	if !b.Textures[t] {
		panic(fmt.Sprintf("gfxtest: update of unknown texture %d", t))
	}
	b.Uploads = append(b.Uploads, TextureUpload{Texture: t, W: w, H: h, Format: format})
}

func (b *Backend) DeleteTexture(t gfx.Texture) {
	delete(b.Textures, t)
}

func (b *Backend) CreateFramebuffer(t gfx.Texture) gfx.Framebuffer {
	f := gfx.Framebuffer(b.handle())
	b.Framebuffers[f] = true
	return f
}

func (b *Backend) DeleteFramebuffer(f gfx.Framebuffer) {
	delete(b.Framebuffers, f)
}

func (b *Backend) ReadPixels(w, h int) []byte {
	if b.Readback != nil {
		return b.Readback(w, h)
	}
	return make([]byte, w*h*4)
}

func (b *Backend) CompileProgram(vertexSrc, fragmentSrc string) (gfx.Program, error) {
	if b.FailCompile {
		return 0, errors.New("gfxtest: compile failed")
	}
	p := gfx.Program(b.handle())
	b.Programs[p] = true
	return p, nil
}

func (b *Backend) DeleteProgram(p gfx.Program) {
	delete(b.Programs, p)
}

func (b *Backend) UniformLocation(p gfx.Program, name string) gfx.Uniform {
	return gfx.Uniform(b.handle())
}

func (b *Backend) AttribLocation(p gfx.Program, name string) int32 {
	return 0
}

func (b *Backend) CreateVertexBuffer(data []float32) gfx.Buffer {
	v := gfx.Buffer(b.handle())
	b.Buffers[v] = true
	return v
}

func (b *Backend) DeleteVertexBuffer(buf gfx.Buffer) {
	delete(b.Buffers, buf)
}

func (b *Backend) UseProgram(p gfx.Program)          { b.currentProgram = p }
func (b *Backend) BindFramebuffer(f gfx.Framebuffer) { b.boundFramebuffer = f }
func (b *Backend) Viewport(w, h int)                 {}

func (b *Backend) BindTexture(unit int, t gfx.Texture) {
	b.Binds = append(b.Binds, Bind{Unit: unit, Texture: t})
}

func (b *Backend) Uniform1f(u gfx.Uniform, x float32)          {}
func (b *Backend) Uniform1i(u gfx.Uniform, x int32)            {}
func (b *Backend) Uniform1fv(u gfx.Uniform, v []float32)       {}
func (b *Backend) Uniform2f(u gfx.Uniform, x, y float32)       {}
func (b *Backend) Uniform3f(u gfx.Uniform, x, y, z float32)    {}
func (b *Backend) Uniform4f(u gfx.Uniform, x, y, z, w float32) {}

func (b *Backend) DrawQuad(buf gfx.Buffer, attrib int32) { b.Draws++ }
func (b *Backend) Finish()                               {}

// Live returns the number of GPU objects currently allocated.
func (b *Backend) Live() int {
	return len(b.Textures) + len(b.Framebuffers) + len(b.Programs) + len(b.Buffers)
}

// UploadsTo returns how many UpdateTexture calls hit the given texture.
func (b *Backend) UploadsTo(t gfx.Texture) int {
	n := 0
	for _, u := range b.Uploads {
		if u.Texture == t {
			n++
		}
	}
	return n
}
