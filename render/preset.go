package render

// ChannelSource tags where one of the four shader inputs gets its content.
type ChannelSource int

// Channel sources.
const (
	ChannelNone ChannelSource = iota
	ChannelAudio
	ChannelFile
	ChannelFeedback
)

// Channel describes one shader input slot.
type Channel struct {
	Source  ChannelSource
	Texture string // bundled texture file name, ChannelFile only
	Repeat  bool   // tile instead of clamping at the edges
}

// Preset is an immutable catalog entry. Selection never mutates one; it
// only moves an index.
type Preset struct {
	Name     string
	Shader   string
	Channels [4]Channel
}

// DefaultPresets is the bundled effect catalog.
var DefaultPresets = []Preset{
	{
		Name:   "Classic",
		Shader: "classic.frag.glsl",
		Channels: [4]Channel{
			{Source: ChannelAudio},
			{Source: ChannelFile, Texture: "logo.png"},
			{Source: ChannelFile, Texture: "noise.png", Repeat: true},
			{Source: ChannelNone},
		},
	},
	{
		Name:   "Album",
		Shader: "album.frag.glsl",
		Channels: [4]Channel{
			{Source: ChannelAudio},
			{Source: ChannelFile, Texture: "logo.png"},
			{Source: ChannelFile, Texture: "noise.png", Repeat: true},
			{Source: ChannelFeedback},
		},
	},
}

// ShaderSet is a user-supplied shader configuration that replaces the
// catalog. Preset cycling is a no-op while one is active.
type ShaderSet struct {
	Shader   string
	Channels [4]ShaderSetChannel
}

// ShaderSetChannel configures one input of a user shader set.
type ShaderSetChannel struct {
	Texture string // image path; empty leaves the slot dark
	Audio   bool   // refresh from the analysis frame every frame
}

func (s ShaderSet) channels() [4]Channel {
	var out [4]Channel
	for i, ch := range s.Channels {
		switch {
		case ch.Audio:
			out[i] = Channel{Source: ChannelAudio}
		case ch.Texture != "":
			out[i] = Channel{Source: ChannelFile, Texture: ch.Texture, Repeat: true}
		default:
			out[i] = Channel{Source: ChannelNone}
		}
	}
	return out
}

// wrapIndex maps any integer, negative included, onto a valid catalog
// index.
func wrapIndex(idx, size int) int {
	if size <= 0 {
		return 0
	}
	m := idx % size
	if m < 0 {
		m += size
	}
	return m
}
