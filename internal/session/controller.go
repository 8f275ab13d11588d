// Package session implements the capture workflow on top of the camera,
// capture and download packages: open, close, switch cameras, capture and
// download, with every outcome recorded in a state.Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/capture"
	"github.com/five82/shutter/internal/download"
	"github.com/five82/shutter/internal/state"
)

var (
	// ErrCameraClosed is returned by operations that need a bound stream.
	ErrCameraClosed = errors.New("camera is not open")
	// ErrNothingCaptured is returned by Download before the first capture.
	ErrNothingCaptured = errors.New("nothing captured yet")
)

const defaultToggleTimeout = 2 * time.Second

// MediaSource acquires camera streams. *camera.MediaDevices implements it.
type MediaSource interface {
	GetUserMedia(ctx context.Context, c camera.Constraints) (*camera.Stream, error)
}

var _ MediaSource = (*camera.MediaDevices)(nil)

// Options configure a Controller.
type Options struct {
	Media         MediaSource
	Store         *state.Store
	Canvas        *capture.Canvas // nil allocates a 360x360 canvas
	Saver         download.Saver
	BlobType      string // empty uses image/png
	Quality       int    // JPEG quality; zero uses the encoder default
	ToggleTimeout time.Duration
	Logger        *slog.Logger
}

// Result describes a completed capture.
type Result struct {
	ID        string
	Type      string
	Bytes     int64
	SizeLabel string
	Device    string
}

// Controller owns the bound camera stream.
type Controller struct {
	media         MediaSource
	store         *state.Store
	canvas        *capture.Canvas
	saver         download.Saver
	blobType      string
	quality       int
	toggleTimeout time.Duration
	log           *slog.Logger

	// lifecycle serialises open/close/switch so a teardown always finishes
	// before the next acquisition starts.
	lifecycle sync.Mutex
	captureMu sync.Mutex

	mu     sync.Mutex
	stream *camera.Stream
}

// New validates opts and returns a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Media == nil {
		return nil, fmt.Errorf("session requires a media source")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("session requires a state store")
	}
	canvas := opts.Canvas
	if canvas == nil {
		canvas = capture.NewCanvas(capture.DefaultWidth, capture.DefaultHeight)
	}
	blobType := opts.BlobType
	if blobType == "" {
		blobType = capture.TypePNG
	}
	toggleTimeout := opts.ToggleTimeout
	if toggleTimeout <= 0 {
		toggleTimeout = defaultToggleTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		media:         opts.Media,
		store:         opts.Store,
		canvas:        canvas,
		saver:         opts.Saver,
		blobType:      blobType,
		quality:       opts.Quality,
		toggleTimeout: toggleTimeout,
		log:           log.With("component", "session"),
	}, nil
}

// Store returns the state store the controller writes to.
func (c *Controller) Store() *state.Store {
	return c.store
}

// OpenCamera acquires a stream for the current facing preference and binds it.
// On failure the camera stays closed and the error is logged and recorded.
func (c *Controller) OpenCamera(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.openLocked(ctx)
}

// CloseCamera stops every track of the bound stream. It is a no-op when no
// stream is bound.
func (c *Controller) CloseCamera() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.closeLocked()
}

// SetFrontCamera records the preference. With the camera open it tears the
// stream down, waits for the teardown to finish, then acquires once with the
// new preference.
func (c *Controller) SetFrontCamera(ctx context.Context, front bool) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.switchLocked(ctx, front)
}

// ToggleFrontCamera flips the facing preference.
func (c *Controller) ToggleFrontCamera(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.switchLocked(ctx, !c.store.Snapshot().FrontCamera)
}

// CaptureImage draws the current frame onto the canvas, encodes it and stores
// the result. State is only touched once encoding and conversion succeed.
func (c *Controller) CaptureImage(ctx context.Context) (Result, error) {
	stream := c.currentStream()
	if stream == nil {
		return Result{}, c.fail(ErrCameraClosed, "capture rejected")
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		return Result{}, c.fail(fmt.Errorf("grab frame: %w", err), "capture failed", "device", stream.Device)
	}

	c.captureMu.Lock()
	if err := c.canvas.DrawImage(frame); err != nil {
		c.captureMu.Unlock()
		return Result{}, c.fail(err, "capture failed", "device", stream.Device)
	}
	blob, err := c.canvas.ToBlob(ctx, c.blobType, c.quality)
	c.captureMu.Unlock()
	if err != nil {
		return Result{}, c.fail(fmt.Errorf("encode capture: %w", err), "capture failed", "device", stream.Device)
	}

	dataURL, err := blob.ReadAsDataURL()
	if err != nil {
		return Result{}, c.fail(err, "capture failed", "device", stream.Device)
	}

	res := Result{
		ID:        uuid.NewString(),
		Type:      blob.Type,
		Bytes:     blob.Size(),
		SizeLabel: capture.FormatSize(blob.Size()),
		Device:    stream.Device,
	}
	c.store.SetCapture(dataURL, res.SizeLabel, res.ID)
	c.log.Info("image captured",
		"capture", res.ID,
		"device", res.Device,
		"type", res.Type,
		"bytes", res.Bytes,
		"size", res.SizeLabel,
	)
	return res, nil
}

// Download saves the latest capture as "{name}.{type}" using the name and
// type in the store at call time.
func (c *Controller) Download(ctx context.Context) (string, error) {
	snap := c.store.Snapshot()
	if !snap.HasCapture() {
		return "", c.fail(ErrNothingCaptured, "download rejected")
	}
	name := download.FileName(snap.FileName, snap.FileType)
	path, err := c.saver.Save(ctx, snap.CapturedImage, name)
	if err != nil {
		return "", c.fail(err, "download failed", "file", name)
	}
	c.store.SetSaved(path)
	c.log.Info("capture saved", "capture", snap.CaptureID, "path", path, "size", snap.CapturedImageSize)
	return path, nil
}

// SetFileName updates the download name field.
func (c *Controller) SetFileName(name string) {
	c.store.SetFileName(name)
}

// SetFileType updates the download type selector.
func (c *Controller) SetFileType(ft download.FileType) {
	c.store.SetFileType(ft)
}

// PreviewFrame grabs a frame from the bound stream for display. Failures are
// returned but not recorded in the store.
func (c *Controller) PreviewFrame(ctx context.Context) (image.Image, error) {
	stream := c.currentStream()
	if stream == nil {
		return nil, ErrCameraClosed
	}
	frame, err := stream.Frame(ctx)
	if err != nil {
		c.log.Debug("preview frame failed", "device", stream.Device, "error", err)
		return nil, err
	}
	return frame, nil
}

// Shutdown releases the camera.
func (c *Controller) Shutdown() {
	c.CloseCamera()
}

func (c *Controller) openLocked(ctx context.Context) error {
	if c.currentStream() != nil {
		return nil
	}
	front := c.store.Snapshot().FrontCamera
	constraints := camera.ConstraintsFor(front)

	stream, err := c.media.GetUserMedia(ctx, constraints)
	if err != nil {
		c.store.SetCameraOpen(false, "")
		return c.fail(fmt.Errorf("open camera: %w", err), "camera acquisition failed", "facing", string(constraints.FacingMode))
	}

	c.setStream(stream)
	c.store.SetCameraOpen(true, stream.Device)
	c.log.Info("camera opened", "device", stream.Device, "facing", string(stream.Facing), "stream", stream.ID)
	return nil
}

func (c *Controller) closeLocked() *camera.Stream {
	stream := c.detachLocked()
	if stream != nil {
		stream.Stop()
	}
	return stream
}

// detachLocked unbinds the current stream and marks the camera closed
// without stopping it.
func (c *Controller) detachLocked() *camera.Stream {
	stream := c.setStream(nil)
	if stream != nil {
		c.log.Info("camera closed", "device", stream.Device, "stream", stream.ID)
	}
	c.store.SetCameraOpen(false, "")
	return stream
}

func (c *Controller) switchLocked(ctx context.Context, front bool) error {
	c.store.SetFrontCamera(front)
	if c.currentStream() == nil {
		return nil
	}

	old := c.detachLocked()
	go old.Stop()
	if err := c.awaitTeardown(ctx, old); err != nil {
		return c.fail(fmt.Errorf("switch camera: %w", err), "camera switch failed")
	}
	return c.openLocked(ctx)
}

func (c *Controller) awaitTeardown(ctx context.Context, stream *camera.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(c.toggleTimeout)
	defer timer.Stop()

	select {
	case <-stream.Done():
		if err := stream.Err(); err != nil {
			c.log.Warn("device release reported an error", "device", stream.Device, "error", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("stream %s did not stop within %s", stream.ID, c.toggleTimeout)
	}
}

func (c *Controller) currentStream() *camera.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// setStream binds s and returns the previously bound stream.
func (c *Controller) setStream(s *camera.Stream) *camera.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.stream
	c.stream = s
	return prev
}

func (c *Controller) fail(err error, msg string, args ...any) error {
	c.store.SetError(err)
	c.log.Error(msg, append(args, "error", err)...)
	return err
}
