package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/integrii/flaggy"

	"github.com/seliv/shaderviz/assets"
	"github.com/seliv/shaderviz/dsp"
	"github.com/seliv/shaderviz/gfx/glbackend"
	"github.com/seliv/shaderviz/graphic"
	"github.com/seliv/shaderviz/input"
	"github.com/seliv/shaderviz/input/file"
	"github.com/seliv/shaderviz/render"
	"github.com/seliv/shaderviz/settings"
	"github.com/seliv/shaderviz/transport"

	_ "github.com/seliv/shaderviz/input/parec"
	_ "github.com/seliv/shaderviz/input/portaudio"
)

// AppName is the app name
const AppName = "shaderviz"

// AppDesc is the app description
const AppDesc = "audio-reactive fragment shader visualizer"

var version = "unknown"

func init() {
	// GLFW and the GL context are bound to the main thread.
	runtime.LockOSThread()
}

func main() {
	log.SetFlags(0)

	cfg := newZeroConfig()

	if doFlags(&cfg) {
		return
	}

	chk(cfg.Sanitize(), "invalid config")

	store := settings.NewStore(cfg.settingsPath)
	saved, err := store.Load()
	chk(err, "failed to load settings")

	preset := cfg.preset
	if preset < 0 {
		preset = saved.LastPresetIdx
	}

	var tap *transport.Publisher
	if cfg.tapAddr != "" {
		tap = transport.NewPublisher()
		defer tap.Close()

		go func() {
			log.Printf("serving analysis frames on ws://%s", cfg.tapAddr)
			if err := http.ListenAndServe(cfg.tapAddr, tap.Handler()); err != nil {
				log.Printf("frame tap stopped: %v", err)
			}
		}()
	}

	analyzerCfg := dsp.Config{SampleRate: cfg.sampleRate}
	if tap != nil {
		analyzerCfg.Tap = tap
	}
	analyzer := dsp.NewAnalyzer(analyzerCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	session, err := openSession(&cfg)
	chk(err, "failed to open audio session")

	if cfg.preview {
		chk(runPreview(ctx, analyzer, session), "preview failed")
		return
	}

	chk(runWindow(ctx, &cfg, analyzer, session, store, &saved, preset),
		"failed to run visualizer")
}

// openSession picks file playback or a capture backend.
func openSession(cfg *config) (input.Session, error) {
	sessionCfg := input.SessionConfig{
		Channels:   cfg.channelCount,
		SampleRate: cfg.sampleRate,
		SampleSize: cfg.sampleSize,
	}

	if cfg.file != "" {
		return file.NewSession(cfg.file, sessionCfg)
	}

	backend, err := input.InitBackend(cfg.backend)
	if err != nil {
		return nil, err
	}

	device, err := input.GetDevice(backend, cfg.device)
	if err != nil {
		return nil, err
	}

	sessionCfg.Device = device
	return backend.Start(sessionCfg)
}

func runWindow(
	ctx context.Context,
	cfg *config,
	analyzer *dsp.Analyzer,
	session input.Session,
	store *settings.Store,
	saved *settings.Settings,
	preset int,
) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.width, cfg.height, AppName, nil, nil)
	if err != nil {
		return err
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	backend, err := glbackend.New()
	if err != nil {
		return err
	}

	renderer := render.New(render.Config{
		Backend:  backend,
		Assets:   assets.New(cfg.assetDir, cfg.thumbDir),
		Analyzer: analyzer,
		Surface: func() (int, int) {
			return window.GetFramebufferSize()
		},
		Custom:        customShaderSet(saved),
		InitialPreset: preset,
		OnPresetChange: func(idx int) {
			saved.LastPresetIdx = idx
			if err := store.Save(*saved); err != nil {
				log.Printf("failed to save settings: %v", err)
			}
		},
		FBScale: cfg.fbScale,
	})

	if err := renderer.Start(cfg.channelCount, cfg.sampleRate, 32, AppName); err != nil {
		return err
	}
	defer renderer.Stop()

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape, glfw.KeyQ:
			w.SetShouldClose(true)
		case glfw.KeyN, glfw.KeyRight:
			renderer.NextPreset()
		case glfw.KeyP, glfw.KeyLeft:
			renderer.PrevPreset()
		case glfw.KeyR:
			renderer.RandomPreset()
		}
	})

	go func() {
		if err := session.Start(ctx, analyzer); err != nil && ctx.Err() == nil {
			log.Printf("audio session ended: %v", err)
		}
	}()

	for !window.ShouldClose() && ctx.Err() == nil {
		renderer.RenderFrame()
		window.SwapBuffers()
		glfw.PollEvents()
	}

	return nil
}

// runPreview draws the spectrum in the terminal; no GPU required.
func runPreview(ctx context.Context, analyzer *dsp.Analyzer, session input.Session) error {
	var preview graphic.Preview
	if err := preview.Init(); err != nil {
		return err
	}
	defer preview.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := preview.PollEvents(ctx)

	go func() {
		if err := session.Start(ctx, analyzer); err != nil && ctx.Err() == nil {
			log.Printf("audio session ended: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	var frame [dsp.FrameSize]byte

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if ev == graphic.EventQuit {
				return nil
			}

		case <-ticker.C:
			if analyzer.Frame(frame[:]) {
				if err := preview.Draw(frame[:]); err != nil {
					return err
				}
			}
		}
	}
}

// customShaderSet converts persisted user-shader settings, or nil when
// the bundled catalog is active.
func customShaderSet(saved *settings.Settings) *render.ShaderSet {
	if !saved.OwnShader || saved.Shader == "" {
		return nil
	}

	set := &render.ShaderSet{Shader: saved.Shader}
	for i, ch := range saved.Channels {
		set.Channels[i] = render.ShaderSetChannel{
			Texture: ch.Texture,
			Audio:   ch.Audio,
		}
	}
	return set
}

func doFlags(cfg *config) bool {
	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = version

	listBackendsCmd := flaggy.Subcommand{
		Name:        "list-backends",
		ShortName:   "lb",
		Description: "list all supported backends",
	}
	parser.AttachSubcommand(&listBackendsCmd, 1)

	listDevicesCmd := flaggy.Subcommand{
		Name:        "list-devices",
		ShortName:   "ld",
		Description: "list all devices for a backend",
	}
	parser.AttachSubcommand(&listDevicesCmd, 1)

	listPresetsCmd := flaggy.Subcommand{
		Name:        "list-presets",
		ShortName:   "lp",
		Description: "list the bundled effect presets",
	}
	parser.AttachSubcommand(&listPresetsCmd, 1)

	parser.String(&cfg.backend, "b", "backend", "backend name")
	parser.String(&cfg.device, "d", "device", "device name")
	parser.String(&cfg.file, "f", "file", "play an audio file (wav/mp3) instead of capturing")
	parser.Float64(&cfg.sampleRate, "r", "rate", "sample rate")
	parser.Int(&cfg.sampleSize, "n", "samples", "frames per capture chunk")
	parser.Int(&cfg.channelCount, "ch", "channels", "channel count (1 or 2)")
	parser.Int(&cfg.width, "W", "width", "window width")
	parser.Int(&cfg.height, "H", "height", "window height")
	parser.Float64(&cfg.fbScale, "s", "scale", "effect resolution scale (0-1]")
	parser.Int(&cfg.preset, "i", "preset", "preset index to start with (-1 restores the last one)")
	parser.Bool(&cfg.preview, "t", "preview", "draw a terminal spectrum preview instead of a window")
	parser.String(&cfg.tapAddr, "w", "tap", "serve analysis frames over websocket on this address")
	parser.String(&cfg.assetDir, "a", "assets", "resource directory (shaders and textures)")
	parser.String(&cfg.settingsPath, "c", "config", "settings file path")
	parser.String(&cfg.thumbDir, "", "thumbnails", "album-art cache directory")

	chk(parser.Parse(), "failed to parse arguments")

	switch {
	case listBackendsCmd.Used:
		for _, backend := range input.Backends {
			fmt.Printf("- %s\n", backend.Name)
		}
		return true

	case listDevicesCmd.Used:
		if cfg.backend == "" {
			cfg.backend = input.DefaultBackend()
		}

		backend, err := input.InitBackend(cfg.backend)
		chk(err, "failed to init backend")

		devices, err := backend.Devices()
		chk(err, "failed to get devices")

		defaultDevice, _ := backend.DefaultDevice()

		fmt.Printf("all devices for %q backend. '*' marks default\n", cfg.backend)
		for idx := range devices {
			star := ' '
			if defaultDevice != nil && devices[idx].String() == defaultDevice.String() {
				star = '*'
			}
			fmt.Printf("- %v %c\n", devices[idx], star)
		}
		return true

	case listPresetsCmd.Used:
		for idx, name := range presetNames() {
			fmt.Printf("%d: %s\n", idx, name)
		}
		return true
	}

	return false
}

func presetNames() []string {
	names := make([]string, len(render.DefaultPresets))
	for i, p := range render.DefaultPresets {
		names[i] = p.Name
	}
	return names
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
