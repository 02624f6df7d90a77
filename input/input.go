// Package input defines the audio capture abstraction: backends
// enumerate devices and open sessions, sessions push interleaved sample
// chunks into a Consumer.
package input

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// Consumer receives interleaved float64 samples from a running session.
// Implementations must tolerate arbitrary chunk sizes.
type Consumer interface {
	Process(samples []float64, channels int) error
}

// Device identifies one capture source of a backend.
type Device interface {
	String() string
}

// SessionConfig carries everything a backend needs to open a session.
type SessionConfig struct {
	Device     Device
	Channels   int     // channels per frame
	SampleRate float64 // frames per second
	SampleSize int     // frames per chunk pushed to the consumer
}

// Session is an open capture stream. Start blocks until the stream ends
// or ctx is canceled.
type Session interface {
	Start(ctx context.Context, dst Consumer) error
}

// Backend produces devices and sessions for one capture mechanism.
type Backend interface {
	// Init should do nothing if called more than once.
	Init() error
	Close() error

	Devices() ([]Device, error)
	DefaultDevice() (Device, error)
	Start(SessionConfig) (Session, error)
}

// NamedBackend pairs a backend with its registry name.
type NamedBackend struct {
	Name string
	Backend
}

// Backends is the global registry.
var Backends []NamedBackend

// RegisterBackend registers a backend globally. This function is not
// thread-safe, and most packages should call it on init().
func RegisterBackend(name string, b Backend) {
	Backends = append(Backends, NamedBackend{
		Name:    name,
		Backend: b,
	})
}

// GetAllBackendNames lists the registered backend names.
func GetAllBackendNames() []string {
	out := make([]string, len(Backends))
	for i, backend := range Backends {
		out[i] = backend.Name
	}
	return out
}

// DefaultBackend picks the most suitable registered backend for the
// platform, or returns an empty string when none applies.
func DefaultBackend() string {
	if runtime.GOOS == "linux" {
		if path, _ := exec.LookPath("parec"); path != "" {
			if HasBackend("parec") {
				return "parec"
			}
		}
	}

	if HasBackend("portaudio") {
		return "portaudio"
	}

	return ""
}

// FindBackend returns the named backend, or nil when it is not
// registered.
func FindBackend(name string) Backend {
	for _, backend := range Backends {
		if backend.Name == name {
			return backend.Backend
		}
	}
	return nil
}

// HasBackend reports whether a backend name is registered.
func HasBackend(name string) bool {
	return FindBackend(name) != nil
}

// InitBackend looks up and initializes a backend by name.
func InitBackend(name string) (Backend, error) {
	backend := FindBackend(name)
	if backend == nil {
		return nil, errors.Errorf("backend not found: %q; check list-backends", name)
	}

	if err := backend.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize input backend")
	}

	return backend, nil
}

// GetDevice resolves a device by display name, or the backend default
// when the name is empty.
func GetDevice(backend Backend, device string) (Device, error) {
	if device == "" {
		def, err := backend.DefaultDevice()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get default device")
		}
		return def, nil
	}

	devices, err := backend.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get devices")
	}

	for idx := range devices {
		if devices[idx].String() == device {
			return devices[idx], nil
		}
	}

	return nil, errors.Errorf("device %q not found; check list-devices", device)
}
