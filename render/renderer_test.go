package render

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seliv/shaderviz/dsp"
	"github.com/seliv/shaderviz/gfx"
	"github.com/seliv/shaderviz/gfx/gfxtest"
)

// fakeAssets serves in-memory shader bodies and images.
type fakeAssets struct {
	missingShaders  bool
	missingTextures bool
	thumbErr        bool
}

const testShaderBody = `
void mainImage(out vec4 fragColor, in vec2 fragCoord)
{
  fragColor = texture(iChannel0, fragCoord / iResolution.xy);
}
`

func (f *fakeAssets) ShaderSource(name string) (string, error) {
	if f.missingShaders {
		return "", errors.New("no such shader")
	}
	return testShaderBody, nil
}

func (f *fakeAssets) LoadImage(name string) (*gfx.Image, error) {
	if f.missingTextures {
		return nil, errors.New("decode failed")
	}
	return &gfx.Image{Width: 2, Height: 2, Pix: make([]byte, 16)}, nil
}

func (f *fakeAssets) Thumbnail(id string) (*gfx.Image, error) {
	if f.thumbErr {
		return nil, errors.New("no thumbnail")
	}
	return &gfx.Image{Width: 4, Height: 4, Pix: make([]byte, 64)}, nil
}

func newTestRenderer(b *gfxtest.Backend) *Renderer {
	return New(Config{
		Backend:  b,
		Assets:   &fakeAssets{},
		Analyzer: dsp.NewAnalyzer(dsp.Config{SampleRate: 44100}),
		Surface:  func() (int, int) { return 640, 360 },
	})
}

func TestStartStopLeakFree(t *testing.T) {
	b := gfxtest.New()
	r := newTestRenderer(b)

	require.NoError(t, r.Start(2, 44100, 32, "test"))
	require.NoError(t, r.SubmitAudio(make([]float64, 2048), 2))

	for i := 0; i < 3; i++ {
		r.RenderFrame()
	}
	r.NextPreset()
	r.RenderFrame()
	require.NoError(t, r.OnAlbumArtChanged("abc"))
	r.RenderFrame()

	r.Stop()
	assert.Equal(t, 0, b.Live(), "all GPU objects released after Stop")
	assert.Equal(t, StateStopped, r.CurrentState())
}

func TestStartRejectsBadChannelCount(t *testing.T) {
	r := newTestRenderer(gfxtest.New())
	assert.Error(t, r.Start(0, 44100, 32, ""))
}

func TestSelectPresetAnyInteger(t *testing.T) {
	b := gfxtest.New()
	r := newTestRenderer(b)
	require.NoError(t, r.Start(2, 44100, 32, ""))

	size := len(DefaultPresets)
	for _, idx := range []int{-1, -size, -size - 3, 0, size, size*7 + 1, 1 << 20} {
		r.SelectPreset(idx)
		got := r.ActivePresetIndex()
		assert.GreaterOrEqual(t, got, 0, "index %d", idx)
		assert.Less(t, got, size, "index %d", idx)
	}

	r.SelectPreset(-1)
	assert.Equal(t, size-1, r.ActivePresetIndex())
}

func TestPresetCycling(t *testing.T) {
	b := gfxtest.New()
	var persisted []int
	r := New(Config{
		Backend:        b,
		Assets:         &fakeAssets{},
		Surface:        func() (int, int) { return 64, 64 },
		OnPresetChange: func(idx int) { persisted = append(persisted, idx) },
	})
	require.NoError(t, r.Start(2, 44100, 32, ""))

	r.NextPreset()
	r.NextPreset()
	r.PrevPreset()

	// Every switch persisted the new index.
	assert.Equal(t, []int{1, 0, 1}, persisted)
}

func TestCustomShaderSetDisablesCycling(t *testing.T) {
	b := gfxtest.New()
	r := New(Config{
		Backend: b,
		Assets:  &fakeAssets{},
		Surface: func() (int, int) { return 64, 64 },
		Custom: &ShaderSet{
			Shader:   "user.frag.glsl",
			Channels: [4]ShaderSetChannel{{Audio: true}},
		},
	})
	require.NoError(t, r.Start(2, 44100, 32, ""))

	assert.Equal(t, -1, r.ActivePresetIndex())
	assert.Nil(t, r.ListPresets())

	r.NextPreset()
	r.RandomPreset()
	assert.Equal(t, -1, r.ActivePresetIndex())

	r.Stop()
	assert.Equal(t, 0, b.Live())
}

func TestCompileFailureStaysTornDown(t *testing.T) {
	b := gfxtest.New()
	b.FailCompile = true
	r := newTestRenderer(b)

	require.NoError(t, r.Start(2, 44100, 32, ""))
	r.RenderFrame()
	r.RenderFrame()

	assert.Zero(t, b.Draws, "no frame drawn for a failed preset")
	assert.Equal(t, StateRendering, r.CurrentState())

	r.Stop()
	assert.Equal(t, 0, b.Live())
}

func TestMissingShaderSourceStaysTornDown(t *testing.T) {
	b := gfxtest.New()
	r := New(Config{
		Backend: b,
		Assets:  &fakeAssets{missingShaders: true},
		Surface: func() (int, int) { return 64, 64 },
	})

	require.NoError(t, r.Start(2, 44100, 32, ""))
	b.Draws = 0 // discard the precision probe's draw

	r.RenderFrame()
	assert.Zero(t, b.Draws)

	r.Stop()
	assert.Equal(t, 0, b.Live())
}

func TestMissingTextureLeavesSlotEmpty(t *testing.T) {
	b := gfxtest.New()
	r := New(Config{
		Backend: b,
		Assets:  &fakeAssets{missingTextures: true},
		Surface: func() (int, int) { return 64, 64 },
	})

	require.NoError(t, r.Start(2, 44100, 32, ""))
	b.Draws = 0

	// Rendering continues; the file-backed slots simply contribute
	// nothing.
	r.RenderFrame()
	assert.Equal(t, 2, b.Draws, "effect and display passes both ran")
	assert.Zero(t, r.res.slots[1].texture)

	r.Stop()
	assert.Equal(t, 0, b.Live())
}

func TestAudioUploadOncePerFrame(t *testing.T) {
	b := gfxtest.New()
	r := newTestRenderer(b)
	require.NoError(t, r.Start(2, 44100, 32, ""))

	audioTex := r.res.slots[0].texture
	require.NotZero(t, audioTex)

	r.RenderFrame()
	assert.Equal(t, 0, b.UploadsTo(audioTex), "nothing pending yet")

	require.NoError(t, r.SubmitAudio(make([]float64, 1024), 2))
	r.RenderFrame()
	assert.Equal(t, 1, b.UploadsTo(audioTex))

	// No new audio: the last-uploaded contents are reused.
	r.RenderFrame()
	assert.Equal(t, 1, b.UploadsTo(audioTex))
}

func TestFeedbackBindsPreviousFrame(t *testing.T) {
	b := gfxtest.New()
	r := newTestRenderer(b)
	require.NoError(t, r.Start(2, 44100, 32, ""))

	// The Album preset tags channel 3 as feedback.
	r.SelectPreset(1)

	r.RenderFrame()
	firstFront := r.res.frontTexture()

	b.Binds = nil
	r.RenderFrame()

	var bound gfx.Texture
	for _, bind := range b.Binds {
		if bind.Unit == 3 && bind.Texture != 0 {
			bound = bind.Texture
		}
	}
	assert.Equal(t, firstFront, bound, "feedback samples the completed frame")
	assert.NotEqual(t, firstFront, r.res.frontTexture(), "targets swapped after the frame")
}

func TestAlbumArtFailureKeepsSlot(t *testing.T) {
	b := gfxtest.New()
	store := &fakeAssets{}
	r := New(Config{
		Backend: b,
		Assets:  store,
		Surface: func() (int, int) { return 64, 64 },
	})
	require.NoError(t, r.Start(2, 44100, 32, ""))

	require.NoError(t, r.OnAlbumArtChanged("first"))
	prev := r.res.slots[3].texture
	require.NotZero(t, prev)

	store.thumbErr = true
	assert.Error(t, r.OnAlbumArtChanged("second"))
	assert.Equal(t, prev, r.res.slots[3].texture, "slot unchanged on failure")

	r.Stop()
	assert.Equal(t, 0, b.Live())
}

func TestPrecisionFloor(t *testing.T) {
	b := gfxtest.New()
	r := newTestRenderer(b)
	require.NoError(t, r.Start(2, 44100, 32, ""))

	// The fake readback is all zeros: no transitions, floor applies.
	assert.Equal(t, minPrecisionBits, r.PrecisionBits())
}

func TestProbeReadsTransitions(t *testing.T) {
	b := gfxtest.New()
	b.Readback = func(w, h int) []byte {
		buf := make([]byte, w*h*4)
		// 20 lit bands of 10 rows each, separated by 3 dark rows.
		for band := 0; band < 20; band++ {
			for row := 0; row < 10; row++ {
				y := band*13 + row
				if y < h {
					buf[4*(y*w+w/2)] = 255
				}
			}
		}
		return buf
	}

	r := newTestRenderer(b)
	require.NoError(t, r.Start(2, 44100, 32, ""))
	assert.Equal(t, 20, r.PrecisionBits())
}

func TestWrapElapsed(t *testing.T) {
	assert.Equal(t, int64(0), wrapElapsed(1<<13, 13))
	assert.Equal(t, int64((1<<13)-1), wrapElapsed((1<<13)-1, 13))
	assert.Equal(t, int64(123), wrapElapsed((1<<13)+123, 13))
	assert.Equal(t, int64(987654), wrapElapsed(987654, 0), "no wrap when uncalibrated")
}
