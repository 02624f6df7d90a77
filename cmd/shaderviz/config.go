package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/input"
)

// config collects everything the flags configure.
type config struct {
	// backend is the backend name from list-backends
	backend string
	// device is the device name from list-devices
	device string
	// file plays an audio file instead of capturing a device
	file string

	// sampleRate is the rate at which samples are read
	sampleRate float64
	// sampleSize is the number of frames per capture chunk
	sampleSize int
	// channelCount is the number of capture channels (1 or 2)
	channelCount int

	// width and height size the output window
	width  int
	height int
	// fbScale renders effects at a fraction of the window size
	fbScale float64

	// preset is the catalog index to start with (-1 restores the saved
	// one)
	preset int

	// preview draws a terminal spectrum instead of opening a window
	preview bool

	// tapAddr serves analysis frames over websocket when set
	tapAddr string

	// assetDir is the resource root; settingsPath the persisted config
	assetDir     string
	settingsPath string
	thumbDir     string
}

// newZeroConfig returns the defaults flags start from.
func newZeroConfig() config {
	confDir, _ := os.UserConfigDir()

	return config{
		sampleRate:   44100,
		sampleSize:   1024,
		channelCount: 2,
		width:        1280,
		height:       720,
		fbScale:      1.0,
		preset:       -1,
		assetDir:     "resources",
		settingsPath: filepath.Join(confDir, "shaderviz", "settings.yaml"),
	}
}

// Sanitize cleans things up.
func (cfg *config) Sanitize() error {
	if cfg.sampleRate < float64(cfg.sampleSize) {
		return errors.New("sample rate lower than sample size")
	}

	if cfg.sampleSize < 4 {
		return errors.New("sample size too small (4+ required)")
	}

	switch {
	case cfg.channelCount > 2:
		return errors.New("too many channels (2 max)")
	case cfg.channelCount < 1:
		return errors.New("too few channels (1 min)")
	}

	if cfg.width < 1 || cfg.height < 1 {
		return errors.New("window size must be positive")
	}

	if cfg.fbScale > 1.0 {
		cfg.fbScale = 1.0
	}

	if cfg.backend == "" {
		cfg.backend = input.DefaultBackend()
	}

	return nil
}
