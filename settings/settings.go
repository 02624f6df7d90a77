// Package settings persists user configuration across runs: the active
// preset index and an optional user-supplied shader set.
package settings

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ChannelSettings configures one input of a user shader set.
type ChannelSettings struct {
	Texture string `yaml:"texture,omitempty"` // image path bound to the slot
	Audio   bool   `yaml:"audio,omitempty"`   // refresh from the analysis frame
}

// Settings is the persisted configuration.
type Settings struct {
	// OwnShader enables the user shader set below instead of the bundled
	// preset catalog.
	OwnShader bool `yaml:"ownshader"`

	// Shader is the fragment file the user shader set renders.
	Shader string `yaml:"shader,omitempty"`

	// LastPresetIdx is the catalog preset restored on the next launch.
	LastPresetIdx int `yaml:"lastpresetidx"`

	Channels [4]ChannelSettings `yaml:"channels"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{}
}

// Store reads and writes a settings file.
type Store struct {
	path string
}

// NewStore returns a store bound to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings file. A missing file is not an error; defaults
// are returned instead.
func (s *Store) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Defaults(), errors.Wrap(err, "failed to read settings")
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), errors.Wrap(err, "failed to parse settings")
	}
	return cfg, nil
}

// Save writes the settings atomically: a temp file in the same directory
// is renamed over the destination so a crash never leaves a torn file.
func (s *Store) Save(cfg Settings) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode settings")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp settings file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write settings")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to close settings file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to replace settings file")
	}
	return nil
}
