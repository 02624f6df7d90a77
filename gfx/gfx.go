// Package gfx defines the narrow GPU surface the render pipeline draws
// through. Implementations live in subpackages; the pipeline itself never
// imports a GL binding so its state machine stays testable.
package gfx

// Handle types. The zero value always means "absent"; a slot holding a
// zero handle is skipped, never partially bound.
type (
	// Texture is a GPU texture handle.
	Texture uint32

	// Framebuffer is an offscreen render target handle.
	Framebuffer uint32

	// Program is a linked shader program handle.
	Program uint32

	// Buffer is a vertex buffer handle.
	Buffer uint32
)

// Uniform is a resolved uniform location. Negative means not present in
// the program; setting an absent uniform is a no-op.
type Uniform int32

// TextureFormat selects the pixel layout of a texture upload.
type TextureFormat int

// Texture formats.
const (
	TextureR8 TextureFormat = iota
	TextureRGB8
	TextureRGBA8
)

// Image is a decoded RGBA image ready for upload.
type Image struct {
	Width  int
	Height int
	Pix    []byte // 4 bytes per pixel, row-major
}

// Backend is the GPU contract. All calls happen on the render context;
// implementations need no internal locking.
type Backend interface {
	// Textures.
	CreateTexture(w, h int, format TextureFormat, data []byte, repeat bool) Texture
	UpdateTexture(t Texture, w, h int, format TextureFormat, data []byte)
	DeleteTexture(t Texture)

	// Offscreen target backed by an existing texture.
	CreateFramebuffer(t Texture) Framebuffer
	DeleteFramebuffer(f Framebuffer)

	// ReadPixels returns the RGBA contents of the bound framebuffer.
	ReadPixels(w, h int) []byte

	// Programs.
	CompileProgram(vertexSrc, fragmentSrc string) (Program, error)
	DeleteProgram(p Program)
	UniformLocation(p Program, name string) Uniform
	AttribLocation(p Program, name string) int32

	// Vertex geometry.
	CreateVertexBuffer(data []float32) Buffer
	DeleteVertexBuffer(b Buffer)

	// Draw state. BindFramebuffer(0) targets the display surface;
	// BindTexture with a zero texture clears the unit.
	UseProgram(p Program)
	BindFramebuffer(f Framebuffer)
	Viewport(w, h int)
	BindTexture(unit int, t Texture)

	Uniform1f(u Uniform, x float32)
	Uniform1i(u Uniform, x int32)
	Uniform1fv(u Uniform, v []float32)
	Uniform2f(u Uniform, x, y float32)
	Uniform3f(u Uniform, x, y, z float32)
	Uniform4f(u Uniform, x, y, z, w float32)

	// DrawQuad draws the full-screen quad in b through the given vertex
	// attribute, then disables the attribute again.
	DrawQuad(b Buffer, attrib int32)

	// Finish blocks until all issued commands complete.
	Finish()
}
