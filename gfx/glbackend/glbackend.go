// Package glbackend implements gfx.Backend on desktop OpenGL 3.3 core.
// The caller owns the context; every method must run on the thread the
// context is current on.
package glbackend

import (
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/gfx"
)

// Backend issues GL calls one-to-one for the gfx contract.
type Backend struct {
	vao uint32
}

var _ gfx.Backend = (*Backend)(nil)

// New initializes the GL function pointers for the current context.
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize OpenGL")
	}

	b := &Backend{}

	// Core profile refuses to draw without a vertex array bound.
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	return b, nil
}

func formats(f gfx.TextureFormat) (internal int32, format uint32) {
	switch f {
	case gfx.TextureR8:
		return gl.R8, gl.RED
	case gfx.TextureRGB8:
		return gl.RGB8, gl.RGB
	default:
		return gl.RGBA8, gl.RGBA
	}
}

func dataPtr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func (b *Backend) CreateTexture(w, h int, f gfx.TextureFormat, data []byte, repeat bool) gfx.Texture {
	var t uint32
	gl.ActiveTexture(gl.TEXTURE0)
	gl.GenTextures(1, &t)
	gl.BindTexture(gl.TEXTURE_2D, t)

	wrap := int32(gl.CLAMP_TO_EDGE)
	if repeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	internal, format := formats(f)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(w), int32(h), 0, format, gl.UNSIGNED_BYTE, dataPtr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return gfx.Texture(t)
}

func (b *Backend) UpdateTexture(t gfx.Texture, w, h int, f gfx.TextureFormat, data []byte) {
	internal, format := formats(f)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(w), int32(h), 0, format, gl.UNSIGNED_BYTE, dataPtr(data))
}

func (b *Backend) DeleteTexture(t gfx.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (b *Backend) CreateFramebuffer(t gfx.Texture) gfx.Framebuffer {
	var f uint32
	gl.GenFramebuffers(1, &f)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(t), 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return gfx.Framebuffer(f)
}

func (b *Backend) DeleteFramebuffer(f gfx.Framebuffer) {
	id := uint32(f)
	gl.DeleteFramebuffers(1, &id)
}

func (b *Backend) ReadPixels(w, h int) []byte {
	buf := make([]byte, w*h*4)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))
	return buf
}

func (b *Backend) CompileProgram(vertexSrc, fragmentSrc string) (gfx.Program, error) {
	vert, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, errors.Wrap(err, "vertex shader")
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, errors.Wrap(err, "fragment shader")
	}
	defer gl.DeleteShader(frag)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(prog, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(prog)
		return 0, errors.Errorf("failed to link program: %s", log)
	}

	return gfx.Program(prog), nil
}

func compileShader(src string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)

	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(shader, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(shader)
		return 0, errors.Errorf("failed to compile: %s", log)
	}

	return shader, nil
}

func infoLog(
	object uint32,
	getiv func(uint32, uint32, *int32),
	getLog func(uint32, int32, *int32, *uint8),
) string {
	var length int32
	getiv(object, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return "unknown error"
	}

	log := strings.Repeat("\x00", int(length+1))
	getLog(object, length, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (b *Backend) DeleteProgram(p gfx.Program) {
	gl.DeleteProgram(uint32(p))
}

func (b *Backend) UniformLocation(p gfx.Program, name string) gfx.Uniform {
	return gfx.Uniform(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (b *Backend) AttribLocation(p gfx.Program, name string) int32 {
	return gl.GetAttribLocation(uint32(p), gl.Str(name + "\x00"))
}

func (b *Backend) CreateVertexBuffer(data []float32) gfx.Buffer {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return gfx.Buffer(buf)
}

func (b *Backend) DeleteVertexBuffer(buf gfx.Buffer) {
	id := uint32(buf)
	gl.DeleteBuffers(1, &id)
}

func (b *Backend) UseProgram(p gfx.Program) {
	gl.UseProgram(uint32(p))
}

func (b *Backend) BindFramebuffer(f gfx.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(f))
}

func (b *Backend) Viewport(w, h int) {
	gl.Viewport(0, 0, int32(w), int32(h))
}

func (b *Backend) BindTexture(unit int, t gfx.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

func (b *Backend) Uniform1f(u gfx.Uniform, x float32) {
	if u >= 0 {
		gl.Uniform1f(int32(u), x)
	}
}

func (b *Backend) Uniform1i(u gfx.Uniform, x int32) {
	if u >= 0 {
		gl.Uniform1i(int32(u), x)
	}
}

func (b *Backend) Uniform1fv(u gfx.Uniform, v []float32) {
	if u >= 0 && len(v) > 0 {
		gl.Uniform1fv(int32(u), int32(len(v)), &v[0])
	}
}

func (b *Backend) Uniform2f(u gfx.Uniform, x, y float32) {
	if u >= 0 {
		gl.Uniform2f(int32(u), x, y)
	}
}

func (b *Backend) Uniform3f(u gfx.Uniform, x, y, z float32) {
	if u >= 0 {
		gl.Uniform3f(int32(u), x, y, z)
	}
}

func (b *Backend) Uniform4f(u gfx.Uniform, x, y, z, w float32) {
	if u >= 0 {
		gl.Uniform4f(int32(u), x, y, z, w)
	}
}

func (b *Backend) DrawQuad(buf gfx.Buffer, attrib int32) {
	if attrib < 0 {
		return
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.VertexAttribPointer(uint32(attrib), 4, gl.FLOAT, false, 16, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(uint32(attrib))
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.DisableVertexAttribArray(uint32(attrib))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (b *Backend) Finish() {
	gl.Finish()
}
