// Package portaudio captures audio through the PortAudio library.
package portaudio

import (
	"context"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"github.com/seliv/shaderviz/input"
)

func init() {
	input.RegisterBackend("portaudio", &Backend{})
}

// Backend represents the PortAudio backend. A zero-value instance is a
// valid instance.
type Backend struct {
	devices []*portaudio.DeviceInfo
}

func (b *Backend) Init() error {
	return portaudio.Initialize()
}

func (b *Backend) Close() error {
	return portaudio.Terminate()
}

func (b *Backend) Devices() ([]input.Device, error) {
	if b.devices == nil {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, err
		}
		b.devices = devices
	}

	out := make([]input.Device, 0, len(b.devices))
	for _, device := range b.devices {
		if device.MaxInputChannels > 0 {
			out = append(out, Device{device})
		}
	}

	return out, nil
}

func (b *Backend) DefaultDevice() (input.Device, error) {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get default host API")
	}

	if host.DefaultInputDevice == nil {
		return nil, errors.New("no default input device found")
	}

	return Device{host.DefaultInputDevice}, nil
}

func (b *Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	return NewSession(cfg)
}

// Device represents a PortAudio device.
type Device struct {
	*portaudio.DeviceInfo
}

// String returns the device name.
func (d Device) String() string {
	return d.Name
}

// Session is an input source that pulls from PortAudio.
type Session struct {
	cfg    input.SessionConfig
	device Device
}

// NewSession validates the device and prepares a session.
func NewSession(cfg input.SessionConfig) (*Session, error) {
	dv, ok := cfg.Device.(Device)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	return &Session{cfg: cfg, device: dv}, nil
}

// Start opens the stream and pushes one chunk per buffer read until ctx
// is canceled.
func (s *Session) Start(ctx context.Context, dst input.Consumer) error {
	buffer := make([]float32, s.cfg.SampleSize*s.cfg.Channels)
	samples := make([]float64, len(buffer))

	param := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   s.device.DeviceInfo,
			Latency:  s.device.DefaultLowInputLatency,
			Channels: s.cfg.Channels,
		},
		SampleRate:      s.cfg.SampleRate,
		FramesPerBuffer: s.cfg.SampleSize,
	}

	stream, err := portaudio.OpenStream(param, buffer)
	if err != nil {
		return errors.Wrap(err, "failed to open stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "failed to start stream")
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return errors.Wrap(err, "failed to read stream")
		}

		for i, v := range buffer {
			samples[i] = float64(v)
		}
		if err := dst.Process(samples, s.cfg.Channels); err != nil {
			return err
		}
	}
}
