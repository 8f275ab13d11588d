package camera

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

var (
	// ErrPermissionDenied means the device exists but access was refused.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoDevice means no usable capture device was found.
	ErrNoDevice = errors.New("no camera device found")
	// ErrConstraintsUnsatisfiable means no device can satisfy the request.
	ErrConstraintsUnsatisfiable = errors.New("camera constraints cannot be satisfied")
	// ErrStreamEnded is returned when reading from a stopped stream.
	ErrStreamEnded = errors.New("stream has ended")
)

// CaptureError reports a failed acquisition against a specific device.
// Kind is one of the sentinel errors above when the failure could be classified.
type CaptureError struct {
	Device string
	Kind   error
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("camera %q: %v: %v", e.Device, e.Kind, e.Err)
	}
	return fmt.Sprintf("camera %q: %v", e.Device, e.Err)
}

func (e *CaptureError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// classify maps driver failures onto the sentinel errors.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, os.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, ErrNoDevice), errors.Is(err, os.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		return ErrNoDevice
	default:
		return nil
	}
}
