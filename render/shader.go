package render

import (
	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/gfx"
)

// Fixed plumbing shaders. Effect fragment bodies come from the asset
// store and are wrapped in fsHeader/fsFooter before compilation.

const effectVertexSource = `#version 330

in vec4 vertex;

void main(void)
{
  gl_Position = vertex;
}
`

const displayVertexSource = `#version 330

in vec4 vertex;
out vec2 vTextureCoord;

void main(void)
{
  gl_Position = vertex;
  vTextureCoord = vertex.xy * 0.5 + 0.5;
}
`

const displayFragmentSource = `#version 330

uniform sampler2D uTexture;
in vec2 vTextureCoord;
out vec4 FragColor;

void main(void)
{
  FragColor = texture(uTexture, vTextureCoord);
}
`

const fsHeader = `#version 330

uniform vec3 iResolution;
uniform float iGlobalTime;
uniform float iChannelTime[4];
uniform vec4 iMouse;
uniform vec4 iDate;
uniform float iSampleRate;
uniform vec3 iChannelResolution[4];
uniform sampler2D iChannel0;
uniform sampler2D iChannel1;
uniform sampler2D iChannel2;
uniform sampler2D iChannel3;

out vec4 FragColor;

#define iTime iGlobalTime
`

const fsFooter = `
void main(void)
{
  vec4 color = vec4(0.0, 0.0, 0.0, 1.0);
  mainImage(color, gl_FragCoord.xy);
  color.w = 1.0;
  FragColor = color;
}
`

// assembleFragment wraps an effect body in the uniform header and the
// mainImage-invoking footer.
func assembleFragment(body string) string {
	return fsHeader + body + fsFooter
}

// uniformTable holds every location the two programs expose.
type uniformTable struct {
	Resolution  gfx.Uniform
	Time        gfx.Uniform
	ChannelTime gfx.Uniform
	Date        gfx.Uniform
	SampleRate  gfx.Uniform
	Scale       gfx.Uniform
	Channels    [4]gfx.Uniform

	Texture gfx.Uniform // display program sampler
}

// Pipeline owns the two linked programs and their resolved locations.
// Both handles exist or neither does.
type Pipeline struct {
	Effect  gfx.Program
	Display gfx.Program

	Loc uniformTable

	AttrEffect  int32
	AttrDisplay int32
}

// Load compiles and links both programs and resolves the location table.
// On any failure the pipeline is left fully released.
func (p *Pipeline) Load(b gfx.Backend, effectBody string) error {
	effect, err := b.CompileProgram(effectVertexSource, assembleFragment(effectBody))
	if err != nil {
		return errors.Wrap(err, "effect program")
	}

	display, err := b.CompileProgram(displayVertexSource, displayFragmentSource)
	if err != nil {
		b.DeleteProgram(effect)
		return errors.Wrap(err, "display program")
	}

	p.Effect = effect
	p.Display = display

	p.Loc.Resolution = b.UniformLocation(effect, "iResolution")
	p.Loc.Time = b.UniformLocation(effect, "iGlobalTime")
	p.Loc.ChannelTime = b.UniformLocation(effect, "iChannelTime")
	p.Loc.Date = b.UniformLocation(effect, "iDate")
	p.Loc.SampleRate = b.UniformLocation(effect, "iSampleRate")
	p.Loc.Scale = b.UniformLocation(effect, "uScale")
	for i := range p.Loc.Channels {
		p.Loc.Channels[i] = b.UniformLocation(effect, channelName(i))
	}
	p.Loc.Texture = b.UniformLocation(display, "uTexture")

	p.AttrEffect = b.AttribLocation(effect, "vertex")
	p.AttrDisplay = b.AttribLocation(display, "vertex")

	return nil
}

// Release frees both programs. Safe to call on an unloaded pipeline.
func (p *Pipeline) Release(b gfx.Backend) {
	if p.Effect != 0 {
		b.DeleteProgram(p.Effect)
		p.Effect = 0
	}
	if p.Display != 0 {
		b.DeleteProgram(p.Display)
		p.Display = 0
	}
}

// Loaded reports whether both programs are linked.
func (p *Pipeline) Loaded() bool {
	return p.Effect != 0 && p.Display != 0
}

func channelName(i int) string {
	return "iChannel" + string(rune('0'+i))
}
