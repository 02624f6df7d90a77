// Package render drives the GPU pipeline: preset selection, resource
// lifecycles and the per-frame two-pass draw. All methods must run on the
// render context; only SubmitAudio is safe to call from the audio thread.
package render

import (
	"log"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/dsp"
	"github.com/seliv/shaderviz/gfx"
)

// AssetStore resolves and loads bundled resources. Failures are asset
// errors: the affected slot stays empty and rendering continues.
type AssetStore interface {
	// ShaderSource returns the fragment body for a shader file name.
	ShaderSource(name string) (string, error)

	// LoadImage decodes a bundled texture or an absolute image path.
	LoadImage(name string) (*gfx.Image, error)

	// Thumbnail resolves a cached album-art image for an identifier.
	Thumbnail(id string) (*gfx.Image, error)
}

// State is the pipeline lifecycle state.
type State int

// Pipeline states.
const (
	StateStopped State = iota
	StateLaunching
	StateRendering
)

// Config wires a renderer together.
type Config struct {
	Backend  gfx.Backend
	Assets   AssetStore
	Analyzer *dsp.Analyzer

	// Surface reports the output resolution, queried every frame.
	Surface func() (w, h int)

	// Presets overrides the default catalog; nil keeps DefaultPresets.
	Presets []Preset

	// Custom switches to a user shader set; preset cycling no-ops.
	Custom *ShaderSet

	// InitialPreset is the catalog index launched on Start.
	InitialPreset int

	// OnPresetChange persists the active index on every switch. May be
	// nil.
	OnPresetChange func(idx int)

	// FBScale reduces the offscreen target relative to the surface for
	// performance scaling. Zero or one renders at full resolution; a
	// negative value disables the offscreen pass entirely.
	FBScale float64
}

// Renderer composes the analyzer output, preset state and shader
// pipeline into frames.
type Renderer struct {
	cfg     Config
	backend gfx.Backend

	pipeline Pipeline
	res      resources
	presets  []Preset
	current  int

	state  State
	loaded bool

	bits   int
	probed bool

	epoch      time.Time
	sampleRate float64

	frame [dsp.FrameSize]byte

	rng *rand.Rand
}

// New returns a stopped renderer.
func New(cfg Config) *Renderer {
	presets := cfg.Presets
	if presets == nil {
		presets = DefaultPresets
	}

	return &Renderer{
		cfg:     cfg,
		backend: cfg.Backend,
		presets: presets,
		current: wrapIndex(cfg.InitialPreset, len(presets)),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start allocates the shared geometry, runs the one-time precision probe
// and launches the initial preset. A failed preset load is not an error
// here; the pipeline stays up and renders nothing until a switch
// succeeds.
func (r *Renderer) Start(channels int, sampleRate float64, bitsPerSample int, streamName string) error {
	if channels < 1 {
		return errors.New("channel count must be positive")
	}
	if r.state != StateStopped {
		return errors.New("already started")
	}

	r.sampleRate = sampleRate
	r.res.vertex = r.backend.CreateVertexBuffer(fullScreenQuad)

	if !r.probed {
		r.bits = probePrecision(r.backend, r.res.vertex)
		r.probed = true
	}

	r.launch()
	return nil
}

// Stop tears everything down: channel textures, the offscreen pair and
// the programs first, the vertex geometry last. Safe from any state.
func (r *Renderer) Stop() {
	r.teardownPreset()

	if r.res.vertex != 0 {
		r.backend.DeleteVertexBuffer(r.res.vertex)
		r.res.vertex = 0
	}

	r.state = StateStopped
	r.probed = false
}

// SubmitAudio feeds a chunk of interleaved samples to the analyzer. The
// derived frame is consumed on the next RenderFrame.
func (r *Renderer) SubmitAudio(samples []float64, channels int) error {
	if r.cfg.Analyzer == nil {
		return errors.New("no analyzer configured")
	}
	return r.cfg.Analyzer.Process(samples, channels)
}

// pass selects which of the two programs a draw uses.
type pass int

const (
	passEffect pass = iota
	passDisplay
)

// RenderFrame executes one frame: pending analysis upload, effect pass
// into the offscreen target, display pass to the surface. Draws nothing
// while no preset is loaded.
func (r *Renderer) RenderFrame() {
	if r.state != StateRendering || !r.loaded {
		return
	}

	if r.cfg.Analyzer != nil && r.cfg.Analyzer.Frame(r.frame[:]) {
		for _, s := range r.res.slots {
			if s.channel.Source == ChannelAudio && s.texture != 0 {
				r.backend.UpdateTexture(s.texture, dsp.BandCount, 2, gfx.TextureR8, r.frame[:])
			}
		}
	}

	r.drawPass(passEffect)
	if r.res.hasOffscreen() {
		r.drawPass(passDisplay)
		r.res.swap()
	}
}

// drawPass fully rebinds what it needs and unbinds on completion so no
// state leaks into the other pass.
func (r *Renderer) drawPass(p pass) {
	b := r.backend
	w, h := r.cfg.Surface()

	switch p {
	case passEffect:
		fbW, fbH := r.res.fbWidth, r.res.fbHeight
		if !r.res.hasOffscreen() {
			fbW, fbH = w, h
		}

		b.UseProgram(r.pipeline.Effect)

		t := float32(wrapElapsed(time.Since(r.epoch).Milliseconds(), r.bits)) / 1000.0
		b.Uniform3f(r.pipeline.Loc.Resolution, float32(fbW), float32(fbH), 0)
		b.Uniform1f(r.pipeline.Loc.Time, t)
		b.Uniform1fv(r.pipeline.Loc.ChannelTime, []float32{t, t, t, t})
		b.Uniform1f(r.pipeline.Loc.SampleRate, float32(r.sampleRate))
		if fbW > 0 && fbH > 0 {
			b.Uniform2f(r.pipeline.Loc.Scale, float32(w)/float32(fbW), float32(h)/float32(fbH))
		}

		year, month, day, secs := dateParts(time.Now())
		b.Uniform4f(r.pipeline.Loc.Date, year, month, day, secs)

		for i, s := range r.res.slots {
			tex := s.texture
			if s.channel.Source == ChannelFeedback {
				tex = r.res.frontTexture()
			}
			b.Uniform1i(r.pipeline.Loc.Channels[i], int32(i))
			b.BindTexture(i, tex)
		}

		b.BindFramebuffer(r.res.backFramebuffer())
		b.Viewport(fbW, fbH)
		b.DrawQuad(r.res.vertex, r.pipeline.AttrEffect)

		for i := len(r.res.slots) - 1; i >= 0; i-- {
			b.BindTexture(i, 0)
		}

	case passDisplay:
		b.UseProgram(r.pipeline.Display)
		b.BindTexture(0, r.res.backTexture())
		b.Uniform1i(r.pipeline.Loc.Texture, 0)
		b.BindFramebuffer(0)
		b.Viewport(w, h)
		b.DrawQuad(r.res.vertex, r.pipeline.AttrDisplay)
		b.BindTexture(0, 0)
	}

	b.UseProgram(0)
}

// launch tears down the active preset and brings up the selected one. On
// a configuration error the pipeline stays torn down; the failure is
// logged once and not retried.
func (r *Renderer) launch() {
	r.state = StateLaunching
	defer func() { r.state = StateRendering }()

	r.teardownPreset()

	var (
		shaderName string
		channels   [4]Channel
	)
	if r.cfg.Custom != nil {
		shaderName = r.cfg.Custom.Shader
		channels = r.cfg.Custom.channels()
	} else {
		p := r.presets[r.current]
		shaderName = p.Shader
		channels = p.Channels
	}

	body, err := r.cfg.Assets.ShaderSource(shaderName)
	if err != nil {
		log.Printf("failed to read shader %q: %v", shaderName, err)
		return
	}

	if err := r.pipeline.Load(r.backend, body); err != nil {
		log.Printf("failed to compile shaders for %q: %v", shaderName, err)
		return
	}

	w, h := r.cfg.Surface()
	switch {
	case r.cfg.FBScale < 0:
		w, h = 0, 0
	case r.cfg.FBScale > 0 && r.cfg.FBScale < 1:
		w = int(float64(w) * r.cfg.FBScale)
		h = int(float64(h) * r.cfg.FBScale)
	}
	r.res.createOffscreen(r.backend, w, h)

	for i, ch := range channels {
		r.res.slots[i].channel = ch

		switch ch.Source {
		case ChannelAudio:
			r.res.slots[i].texture = r.backend.CreateTexture(
				dsp.BandCount, 2, gfx.TextureR8, r.frame[:], false)

		case ChannelFile:
			img, err := r.cfg.Assets.LoadImage(ch.Texture)
			if err != nil {
				log.Printf("failed to load texture %q: %v", ch.Texture, err)
				continue
			}
			r.res.slots[i].texture = r.backend.CreateTexture(
				img.Width, img.Height, gfx.TextureRGBA8, img.Pix, ch.Repeat)
		}
	}

	r.loaded = true
	r.epoch = time.Now()
}

// teardownPreset releases every handle the active preset owns. The order
// is textures, offscreen pair, programs; never partial.
func (r *Renderer) teardownPreset() {
	r.res.releaseTextures(r.backend)
	r.res.releaseOffscreen(r.backend)
	r.pipeline.Release(r.backend)
	r.loaded = false
}

// NextPreset advances through the catalog.
func (r *Renderer) NextPreset() { r.SelectPreset(r.current + 1) }

// PrevPreset steps back through the catalog.
func (r *Renderer) PrevPreset() { r.SelectPreset(r.current - 1) }

// RandomPreset jumps to a random catalog entry.
func (r *Renderer) RandomPreset() {
	if r.cfg.Custom != nil || len(r.presets) == 0 {
		return
	}
	r.SelectPreset(r.rng.Intn(len(r.presets)))
}

// SelectPreset launches the preset at idx, wrapped into the catalog by
// floored modulo so any integer is valid. A no-op when a custom shader
// set is configured.
func (r *Renderer) SelectPreset(idx int) {
	if r.cfg.Custom != nil || len(r.presets) == 0 {
		return
	}

	r.current = wrapIndex(idx, len(r.presets))
	if r.state != StateStopped {
		r.launch()
	}

	if r.cfg.OnPresetChange != nil {
		r.cfg.OnPresetChange(r.current)
	}
}

// ListPresets returns the catalog names, or nothing in custom-shader
// mode.
func (r *Renderer) ListPresets() []string {
	if r.cfg.Custom != nil {
		return nil
	}

	names := make([]string, len(r.presets))
	for i, p := range r.presets {
		names[i] = p.Name
	}
	return names
}

// ActivePresetIndex returns the current catalog index, -1 in
// custom-shader mode.
func (r *Renderer) ActivePresetIndex() int {
	if r.cfg.Custom != nil {
		return -1
	}
	return r.current
}

// OnAlbumArtChanged loads a new album-art thumbnail into channel 3. When
// no thumbnail resolves, the slot keeps its previous texture and the
// error is returned.
func (r *Renderer) OnAlbumArtChanged(id string) error {
	if !r.loaded {
		return errors.New("no preset loaded")
	}

	img, err := r.cfg.Assets.Thumbnail(id)
	if err != nil {
		return errors.Wrap(err, "failed to resolve album art")
	}

	tex := r.backend.CreateTexture(img.Width, img.Height, gfx.TextureRGBA8, img.Pix, true)

	if old := r.res.slots[3].texture; old != 0 {
		r.backend.DeleteTexture(old)
	}
	r.res.slots[3] = slot{
		channel: Channel{Source: ChannelFile, Repeat: true},
		texture: tex,
	}

	return nil
}

// PrecisionBits returns the calibrated timer precision, for diagnostics.
func (r *Renderer) PrecisionBits() int {
	return r.bits
}

// CurrentState returns the lifecycle state.
func (r *Renderer) CurrentState() State {
	return r.state
}

// dateParts splits a wall-clock time the way the date uniform expects:
// year, zero-based month, day of month and seconds since midnight.
func dateParts(now time.Time) (year, month, day, secs float32) {
	y, m, d := now.Date()
	return float32(y), float32(int(m) - 1), float32(d),
		float32(now.Hour()*3600 + now.Minute()*60 + now.Second())
}
