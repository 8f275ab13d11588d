package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // frame decoders
	_ "image/png"
	"os"
	"strings"
)

// Driver grabs still frames from one capture source.
type Driver interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}

// Driver kinds understood by NewDriver.
const (
	DriverFile = "file"
	DriverHTTP = "http"
	DriverExec = "exec"
)

// DriverSpec is the config-level description of a capture source.
type DriverSpec struct {
	Kind    string
	Source  string
	Command []string
}

// NewDriver builds a driver for spec.
func NewDriver(spec DriverSpec) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case DriverFile:
		return NewFileDriver(spec.Source)
	case DriverHTTP:
		return NewHTTPDriver(spec.Source)
	case DriverExec:
		return NewExecDriver(spec.Command)
	default:
		return nil, fmt.Errorf("unknown camera driver %q", spec.Kind)
	}
}

// FileDriver reads a snapshot file that some other process keeps rewriting,
// e.g. raspimjpeg's /dev/shm/mjpeg/cam.jpg.
type FileDriver struct {
	path string
}

// NewFileDriver returns a driver reading frames from path.
func NewFileDriver(path string) (*FileDriver, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("file driver: path is empty")
	}
	return &FileDriver{path: trimmed}, nil
}

// Grab reads and decodes the current snapshot.
func (d *FileDriver) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeFrame(data)
}

// Close is a no-op; the snapshot file is owned by the producer.
func (d *FileDriver) Close() error { return nil }

func decodeFrame(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode frame: empty snapshot")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
