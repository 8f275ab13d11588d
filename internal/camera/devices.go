package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Device is one configured capture source.
type Device struct {
	Label  string
	Facing FacingMode
	Open   func(ctx context.Context) (Driver, error)
}

// NewDevice builds a device whose driver is created from spec on each acquisition.
func NewDevice(label string, facing FacingMode, spec DriverSpec) (Device, error) {
	// Validate eagerly so config mistakes surface at startup.
	probe, err := NewDriver(spec)
	if err != nil {
		return Device{}, fmt.Errorf("camera %q: %w", label, err)
	}
	_ = probe.Close()

	return Device{
		Label:  label,
		Facing: facing,
		Open: func(context.Context) (Driver, error) {
			return NewDriver(spec)
		},
	}, nil
}

// MediaDevices resolves constraints against the configured devices.
type MediaDevices struct {
	devices []Device
	log     *slog.Logger
}

// NewMediaDevices returns a device set. A nil logger uses slog.Default.
func NewMediaDevices(devices []Device, log *slog.Logger) *MediaDevices {
	if log == nil {
		log = slog.Default()
	}
	dup := make([]Device, len(devices))
	copy(dup, devices)
	return &MediaDevices{devices: dup, log: log.With("component", "camera")}
}

// Devices lists the configured devices.
func (m *MediaDevices) Devices() []Device {
	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out
}

// GetUserMedia acquires a stream satisfying c. The facing mode is a preference:
// a matching device is tried first and any other device is the fallback. The
// device is probed with one frame before the stream is handed out.
func (m *MediaDevices) GetUserMedia(ctx context.Context, c Constraints) (*Stream, error) {
	if c.Audio {
		return nil, fmt.Errorf("audio requested: %w", ErrConstraintsUnsatisfiable)
	}
	candidates := m.candidates(c.FacingMode)
	if len(candidates) == 0 {
		return nil, ErrNoDevice
	}

	var errs []error
	for _, device := range candidates {
		stream, err := m.acquire(ctx, device)
		if err == nil {
			m.log.Info("stream acquired", "device", device.Label, "facing", string(device.Facing), "stream", stream.ID)
			return stream, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		m.log.Warn("device unavailable", "device", device.Label, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (m *MediaDevices) acquire(ctx context.Context, device Device) (*Stream, error) {
	driver, err := device.Open(ctx)
	if err != nil {
		return nil, &CaptureError{Device: device.Label, Kind: classify(err), Err: err}
	}
	if _, err := driver.Grab(ctx); err != nil {
		_ = driver.Close()
		return nil, &CaptureError{Device: device.Label, Kind: classify(err), Err: err}
	}
	return newStream(device, driver), nil
}

func (m *MediaDevices) candidates(facing FacingMode) []Device {
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		if d.Facing == facing {
			out = append(out, d)
		}
	}
	for _, d := range m.devices {
		if d.Facing != facing {
			out = append(out, d)
		}
	}
	return out
}
