package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/capture"
	"github.com/five82/shutter/internal/download"
	"github.com/five82/shutter/internal/state"
)

type fakeDriver struct {
	mu     sync.Mutex
	img    image.Image
	grabs  int
	closes int
	hold   chan struct{} // when set, Close blocks until it is closed
}

func (d *fakeDriver) Grab(context.Context) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabs++
	return d.img, nil
}

func (d *fakeDriver) Close() error {
	if d.hold != nil {
		<-d.hold
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// recordingSource wraps MediaDevices and records every request along with
// whether the previously returned stream had fully stopped at request time.
type recordingSource struct {
	inner    *camera.MediaDevices
	err      error
	requests []camera.Constraints
	streams  []*camera.Stream
	stopped  []bool
}

func (r *recordingSource) GetUserMedia(ctx context.Context, c camera.Constraints) (*camera.Stream, error) {
	r.requests = append(r.requests, c)
	prevStopped := true
	if n := len(r.streams); n > 0 {
		prevStopped = !r.streams[n-1].Active()
	}
	r.stopped = append(r.stopped, prevStopped)
	if r.err != nil {
		return nil, r.err
	}
	s, err := r.inner.GetUserMedia(ctx, c)
	if err == nil {
		r.streams = append(r.streams, s)
	}
	return s, err
}

type fixture struct {
	ctrl   *Controller
	store  *state.Store
	source *recordingSource
	front  *fakeDriver
	rear   *fakeDriver
	dir    string
}

func newFixture(t *testing.T, frontPref bool) fixture {
	t.Helper()
	front := &fakeDriver{img: solid(64, 48, color.RGBA{R: 200, A: 255})}
	rear := &fakeDriver{img: solid(64, 48, color.RGBA{B: 200, A: 255})}
	md := camera.NewMediaDevices([]camera.Device{
		{Label: "front", Facing: camera.FacingUser, Open: func(context.Context) (camera.Driver, error) { return front, nil }},
		{Label: "rear", Facing: camera.FacingEnvironment, Open: func(context.Context) (camera.Driver, error) { return rear, nil }},
	}, nil)
	source := &recordingSource{inner: md}
	store := state.NewStore(state.Session{FrontCamera: frontPref, FileName: "Shutter Image", FileType: download.TypePNG})
	dir := t.TempDir()

	ctrl, err := New(Options{
		Media:  source,
		Store:  store,
		Canvas: capture.NewCanvas(360, 360),
		Saver:  download.Saver{Dir: dir},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return fixture{ctrl: ctrl, store: store, source: source, front: front, rear: rear, dir: dir}
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{Store: state.NewStore(state.Session{})}); err == nil {
		t.Fatal("New without media returned nil error")
	}
	if _, err := New(Options{Media: &recordingSource{}}); err == nil {
		t.Fatal("New without store returned nil error")
	}
}

func TestOpenCamera_BindsStreamForPreference(t *testing.T) {
	f := newFixture(t, true)

	if err := f.ctrl.OpenCamera(context.Background()); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	snap := f.store.Snapshot()
	if !snap.CameraOpen || snap.Device != "front" {
		t.Fatalf("snapshot = %#v, want open on front", snap)
	}
	if len(f.source.requests) != 1 || f.source.requests[0] != camera.ConstraintsFor(true) {
		t.Fatalf("requests = %#v, want one front request", f.source.requests)
	}

	// Opening again keeps the bound stream.
	if err := f.ctrl.OpenCamera(context.Background()); err != nil {
		t.Fatalf("second OpenCamera returned error: %v", err)
	}
	if len(f.source.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(f.source.requests))
	}
}

func TestOpenCamera_FailureLeavesCameraClosed(t *testing.T) {
	f := newFixture(t, true)
	f.source.err = camera.ErrPermissionDenied

	err := f.ctrl.OpenCamera(context.Background())
	if !errors.Is(err, camera.ErrPermissionDenied) {
		t.Fatalf("OpenCamera err = %v, want ErrPermissionDenied", err)
	}
	snap := f.store.Snapshot()
	if snap.CameraOpen {
		t.Fatal("CameraOpen = true after failed acquisition")
	}
	if !errors.Is(snap.LastError, camera.ErrPermissionDenied) {
		t.Fatalf("LastError = %v, want ErrPermissionDenied", snap.LastError)
	}
}

func TestCloseCamera_StopsTracksOnceAndIsIdempotent(t *testing.T) {
	f := newFixture(t, true)

	// Closing with nothing bound is a no-op.
	f.ctrl.CloseCamera()
	if f.store.Snapshot().CameraOpen {
		t.Fatal("CameraOpen = true after close with nothing bound")
	}

	if err := f.ctrl.OpenCamera(context.Background()); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	stream := f.source.streams[0]

	f.ctrl.CloseCamera()
	f.ctrl.CloseCamera()

	if got := f.front.closeCount(); got != 1 {
		t.Fatalf("driver closes = %d, want 1", got)
	}
	for _, track := range stream.Tracks() {
		if track.ReadyState() != camera.TrackEnded {
			t.Fatalf("track %s still %q", track.ID, track.ReadyState())
		}
	}
	if f.store.Snapshot().CameraOpen {
		t.Fatal("CameraOpen = true after close")
	}
}

func TestToggleFrontCamera_TearsDownThenReacquiresOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if err := f.ctrl.OpenCamera(ctx); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	if err := f.ctrl.ToggleFrontCamera(ctx); err != nil {
		t.Fatalf("ToggleFrontCamera returned error: %v", err)
	}

	if len(f.source.requests) != 2 {
		t.Fatalf("requests = %d, want 2 (open + one re-acquisition)", len(f.source.requests))
	}
	if f.source.requests[1] != camera.ConstraintsFor(false) {
		t.Fatalf("re-acquisition constraints = %#v, want rear", f.source.requests[1])
	}
	if !f.source.stopped[1] {
		t.Fatal("re-acquisition issued before the old stream finished stopping")
	}
	if got := f.front.closeCount(); got != 1 {
		t.Fatalf("old driver closes = %d, want exactly 1 teardown", got)
	}

	snap := f.store.Snapshot()
	if snap.FrontCamera || !snap.CameraOpen || snap.Device != "rear" {
		t.Fatalf("snapshot after toggle = %#v, want open on rear", snap)
	}
}

func TestToggleFrontCamera_TeardownTimeoutSkipsReacquisition(t *testing.T) {
	f := newFixture(t, true)
	hold := make(chan struct{})
	f.front.hold = hold
	t.Cleanup(func() { close(hold) })
	f.ctrl.toggleTimeout = 20 * time.Millisecond
	ctx := context.Background()

	if err := f.ctrl.OpenCamera(ctx); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	err := f.ctrl.ToggleFrontCamera(ctx)
	if err == nil || !strings.Contains(err.Error(), "did not stop") {
		t.Fatalf("ToggleFrontCamera error = %v, want teardown timeout", err)
	}

	if len(f.source.requests) != 1 {
		t.Fatalf("requests = %d, want only the initial open", len(f.source.requests))
	}
	snap := f.store.Snapshot()
	if snap.CameraOpen || snap.Device != "" {
		t.Fatalf("snapshot = %#v, want camera closed", snap)
	}
	if snap.FrontCamera {
		t.Fatal("FrontCamera = true, want the new preference recorded")
	}
	if snap.LastError == nil || snap.LastError.Error() != err.Error() {
		t.Fatalf("LastError = %v, want %v", snap.LastError, err)
	}
}

func TestToggleFrontCamera_CancelledContextSkipsReacquisition(t *testing.T) {
	f := newFixture(t, true)

	if err := f.ctrl.OpenCamera(context.Background()); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.ctrl.ToggleFrontCamera(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ToggleFrontCamera error = %v, want context.Canceled", err)
	}
	if len(f.source.requests) != 1 {
		t.Fatalf("requests = %d, want only the initial open", len(f.source.requests))
	}
	snap := f.store.Snapshot()
	if snap.CameraOpen {
		t.Fatal("CameraOpen = true after a cancelled switch")
	}
	if !errors.Is(snap.LastError, context.Canceled) {
		t.Fatalf("LastError = %v, want context.Canceled", snap.LastError)
	}

	// The old stream is still released.
	select {
	case <-f.source.streams[0].Done():
	case <-time.After(time.Second):
		t.Fatal("old stream was not stopped")
	}
	if got := f.front.closeCount(); got != 1 {
		t.Fatalf("old driver closes = %d, want 1", got)
	}
}

func TestSetFrontCamera_WhileClosedOnlyRecordsPreference(t *testing.T) {
	f := newFixture(t, true)

	if err := f.ctrl.SetFrontCamera(context.Background(), false); err != nil {
		t.Fatalf("SetFrontCamera returned error: %v", err)
	}
	if len(f.source.requests) != 0 {
		t.Fatalf("requests = %d, want 0 while closed", len(f.source.requests))
	}
	if f.store.Snapshot().FrontCamera {
		t.Fatal("FrontCamera = true, want false")
	}

	if err := f.ctrl.OpenCamera(context.Background()); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	if f.source.requests[0].FacingMode != camera.FacingEnvironment {
		t.Fatalf("open used %q, want environment", f.source.requests[0].FacingMode)
	}
}

func TestCaptureImage_SetsImageAndMatchingSize(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.ctrl.CaptureImage(ctx); !errors.Is(err, ErrCameraClosed) {
		t.Fatalf("CaptureImage while closed err = %v, want ErrCameraClosed", err)
	}
	if f.store.Snapshot().HasCapture() {
		t.Fatal("capture recorded while camera closed")
	}

	if err := f.ctrl.OpenCamera(ctx); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	res, err := f.ctrl.CaptureImage(ctx)
	if err != nil {
		t.Fatalf("CaptureImage returned error: %v", err)
	}

	snap := f.store.Snapshot()
	if !snap.HasCapture() || snap.CapturedImageSize == "" {
		t.Fatalf("snapshot = %#v, want capture and size set", snap)
	}
	_, data, err := capture.ParseDataURL(snap.CapturedImage)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if int64(len(data)) != res.Bytes {
		t.Fatalf("data url bytes = %d, want %d", len(data), res.Bytes)
	}
	if want := capture.FormatSize(int64(len(data))); snap.CapturedImageSize != want {
		t.Fatalf("CapturedImageSize = %q, want %q", snap.CapturedImageSize, want)
	}
	if snap.CaptureID != res.ID || res.Type != capture.TypePNG || res.Device != "front" {
		t.Fatalf("result = %#v, snapshot id %q", res, snap.CaptureID)
	}
}

func TestDownload_UsesNameAndTypeAtCallTime(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.ctrl.Download(ctx); !errors.Is(err, ErrNothingCaptured) {
		t.Fatalf("Download before capture err = %v, want ErrNothingCaptured", err)
	}

	if err := f.ctrl.OpenCamera(ctx); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	if _, err := f.ctrl.CaptureImage(ctx); err != nil {
		t.Fatalf("CaptureImage returned error: %v", err)
	}

	f.ctrl.SetFileName("holiday")
	f.ctrl.SetFileType(download.TypeJPG)

	path, err := f.ctrl.Download(ctx)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if path != filepath.Join(f.dir, "holiday.jpg") {
		t.Fatalf("path = %q, want holiday.jpg in %s", path, f.dir)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	_, want, _ := capture.ParseDataURL(f.store.Snapshot().CapturedImage)
	if string(written) != string(want) {
		t.Fatal("downloaded bytes differ from captured blob")
	}
	if got := f.store.Snapshot().LastSaved; got != path {
		t.Fatalf("LastSaved = %q, want %q", got, path)
	}
}

func TestPreviewFrame(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.ctrl.PreviewFrame(ctx); !errors.Is(err, ErrCameraClosed) {
		t.Fatalf("PreviewFrame while closed err = %v, want ErrCameraClosed", err)
	}
	if err := f.ctrl.OpenCamera(ctx); err != nil {
		t.Fatalf("OpenCamera returned error: %v", err)
	}
	img, err := f.ctrl.PreviewFrame(ctx)
	if err != nil {
		t.Fatalf("PreviewFrame returned error: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Fatalf("preview width = %d, want 64", img.Bounds().Dx())
	}
	if f.store.Snapshot().LastError != nil {
		t.Fatal("preview should not record errors in the store")
	}

	f.ctrl.Shutdown()
	if f.store.Snapshot().CameraOpen {
		t.Fatal("CameraOpen = true after Shutdown")
	}
	if !strings.Contains(ErrCameraClosed.Error(), "not open") {
		t.Fatalf("ErrCameraClosed = %q", ErrCameraClosed)
	}
}
