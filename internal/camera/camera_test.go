package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeDriver struct {
	mu     sync.Mutex
	img    image.Image
	err    error
	grabs  int
	closes int
}

func (d *fakeDriver) Grab(context.Context) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabs++
	if d.err != nil {
		return nil, d.err
	}
	return d.img, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	d.closes++
	d.mu.Unlock()
	return nil
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func fakeDevice(label string, facing FacingMode, driver *fakeDriver) Device {
	return Device{
		Label:  label,
		Facing: facing,
		Open: func(context.Context) (Driver, error) {
			return driver, nil
		},
	}
}

func TestConstraintsFor(t *testing.T) {
	if got := ConstraintsFor(true); got.FacingMode != FacingUser || got.Audio {
		t.Fatalf("ConstraintsFor(true) = %#v, want user/no audio", got)
	}
	if got := ConstraintsFor(false); got.FacingMode != FacingEnvironment || got.Audio {
		t.Fatalf("ConstraintsFor(false) = %#v, want environment/no audio", got)
	}
}

func TestParseFacingMode(t *testing.T) {
	cases := []struct {
		in      string
		want    FacingMode
		wantErr bool
	}{
		{"user", FacingUser, false},
		{" Front ", FacingUser, false},
		{"environment", FacingEnvironment, false},
		{"rear", FacingEnvironment, false},
		{"back", FacingEnvironment, false},
		{"sideways", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFacingMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseFacingMode(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseFacingMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetUserMedia_PrefersMatchingFacingMode(t *testing.T) {
	front := &fakeDriver{img: solidImage(4, 4, color.White)}
	rear := &fakeDriver{img: solidImage(4, 4, color.Black)}
	md := NewMediaDevices([]Device{
		fakeDevice("rear", FacingEnvironment, rear),
		fakeDevice("front", FacingUser, front),
	}, nil)

	stream, err := md.GetUserMedia(context.Background(), ConstraintsFor(true))
	if err != nil {
		t.Fatalf("GetUserMedia returned error: %v", err)
	}
	if stream.Device != "front" || stream.Facing != FacingUser {
		t.Fatalf("stream bound to %q/%q, want front/user", stream.Device, stream.Facing)
	}
	if front.grabs != 1 {
		t.Fatalf("front probe grabs = %d, want 1", front.grabs)
	}
	if rear.grabs != 0 {
		t.Fatalf("rear grabs = %d, want 0", rear.grabs)
	}
	if len(stream.Tracks()) != 1 || stream.Tracks()[0].Kind != "video" {
		t.Fatalf("tracks = %#v, want one video track", stream.Tracks())
	}
}

func TestGetUserMedia_FallsBackToOtherFacingMode(t *testing.T) {
	rear := &fakeDriver{img: solidImage(2, 2, color.Black)}
	md := NewMediaDevices([]Device{fakeDevice("rear", FacingEnvironment, rear)}, nil)

	stream, err := md.GetUserMedia(context.Background(), ConstraintsFor(true))
	if err != nil {
		t.Fatalf("GetUserMedia returned error: %v", err)
	}
	if stream.Device != "rear" {
		t.Fatalf("stream device = %q, want rear", stream.Device)
	}
}

func TestGetUserMedia_Errors(t *testing.T) {
	ctx := context.Background()

	empty := NewMediaDevices(nil, nil)
	if _, err := empty.GetUserMedia(ctx, ConstraintsFor(true)); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("no devices err = %v, want ErrNoDevice", err)
	}

	ok := NewMediaDevices([]Device{fakeDevice("a", FacingUser, &fakeDriver{img: solidImage(1, 1, color.White)})}, nil)
	if _, err := ok.GetUserMedia(ctx, Constraints{FacingMode: FacingUser, Audio: true}); !errors.Is(err, ErrConstraintsUnsatisfiable) {
		t.Fatalf("audio err = %v, want ErrConstraintsUnsatisfiable", err)
	}

	denied := &fakeDriver{err: os.ErrPermission}
	md := NewMediaDevices([]Device{fakeDevice("locked", FacingUser, denied)}, nil)
	_, err := md.GetUserMedia(ctx, ConstraintsFor(true))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("denied err = %v, want ErrPermissionDenied", err)
	}
	var capErr *CaptureError
	if !errors.As(err, &capErr) || capErr.Device != "locked" {
		t.Fatalf("err = %v, want *CaptureError for device locked", err)
	}
	if denied.closes != 1 {
		t.Fatalf("failed probe closes = %d, want 1", denied.closes)
	}
}

func TestStream_StopIsIdempotentAndClosesDone(t *testing.T) {
	driver := &fakeDriver{img: solidImage(1, 1, color.White)}
	md := NewMediaDevices([]Device{fakeDevice("cam", FacingUser, driver)}, nil)
	stream, err := md.GetUserMedia(context.Background(), ConstraintsFor(true))
	if err != nil {
		t.Fatalf("GetUserMedia returned error: %v", err)
	}
	if !stream.Active() {
		t.Fatal("new stream should be active")
	}

	stream.Stop()
	stream.Stop()

	select {
	case <-stream.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed after Stop")
	}
	if driver.closes != 1 {
		t.Fatalf("driver closes = %d, want 1", driver.closes)
	}
	for _, track := range stream.Tracks() {
		if track.ReadyState() != TrackEnded {
			t.Fatalf("track %s state = %q, want ended", track.ID, track.ReadyState())
		}
	}
	if _, err := stream.Frame(context.Background()); !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("Frame after stop err = %v, want ErrStreamEnded", err)
	}
}

func TestFileDriver_ReadsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cam.png")
	if err := os.WriteFile(path, pngBytes(t, solidImage(8, 6, color.White)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d, err := NewFileDriver(path)
	if err != nil {
		t.Fatalf("NewFileDriver returned error: %v", err)
	}
	img, err := d.Grab(context.Background())
	if err != nil {
		t.Fatalf("Grab returned error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("bounds = %v, want 8x6", b)
	}
}

func TestFileDriver_MissingFileIsNoDevice(t *testing.T) {
	spec := DriverSpec{Kind: DriverFile, Source: filepath.Join(t.TempDir(), "missing.jpg")}
	device, err := NewDevice("ghost", FacingUser, spec)
	if err != nil {
		t.Fatalf("NewDevice returned error: %v", err)
	}
	md := NewMediaDevices([]Device{device}, nil)
	if _, err := md.GetUserMedia(context.Background(), ConstraintsFor(true)); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
}

func TestHTTPDriver_StatusMapping(t *testing.T) {
	frame := pngBytes(t, solidImage(3, 3, color.Black))
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/snapshot":
			gotUserAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(frame)
		case "/locked":
			w.WriteHeader(http.StatusForbidden)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	d, err := NewHTTPDriver(server.URL + "/snapshot")
	if err != nil {
		t.Fatalf("NewHTTPDriver returned error: %v", err)
	}
	img, err := d.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab returned error: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Fatalf("width = %d, want 3", img.Bounds().Dx())
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}

	cases := []struct {
		path string
		want error
	}{
		{"/locked", ErrPermissionDenied},
		{"/missing", ErrNoDevice},
	}
	for _, tc := range cases {
		d, err := NewHTTPDriver(server.URL + tc.path)
		if err != nil {
			t.Fatalf("NewHTTPDriver(%s) returned error: %v", tc.path, err)
		}
		if _, err := d.Grab(ctx); !errors.Is(err, tc.want) {
			t.Fatalf("Grab(%s) err = %v, want %v", tc.path, err, tc.want)
		}
	}

	d, _ = NewHTTPDriver(server.URL + "/broken")
	if _, err := d.Grab(ctx); err == nil || classify(err) != nil {
		t.Fatalf("Grab(/broken) err = %v, want unclassified error", err)
	}
}

func TestParseSnapshotURL(t *testing.T) {
	u, err := parseSnapshotURL("  127.0.0.1:8080/?action=snapshot#x ")
	if err != nil {
		t.Fatalf("parseSnapshotURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "127.0.0.1:8080" || u.RawQuery != "action=snapshot" || u.Fragment != "" {
		t.Fatalf("url = %q, want normalized http snapshot url", u.String())
	}
	if _, err := parseSnapshotURL(" "); err == nil {
		t.Fatal("parseSnapshotURL(blank) returned nil error")
	}
}

func TestExecDriver_MissingBinaryIsNoDevice(t *testing.T) {
	d, err := NewExecDriver([]string{"shutter-definitely-not-a-real-binary"})
	if err != nil {
		t.Fatalf("NewExecDriver returned error: %v", err)
	}
	_, err = d.Grab(context.Background())
	if classify(err) != ErrNoDevice {
		t.Fatalf("classify(%v) = %v, want ErrNoDevice", err, classify(err))
	}
	if _, err := NewExecDriver(nil); err == nil {
		t.Fatal("NewExecDriver(nil) returned nil error")
	}
}

func TestNewDriver_UnknownKind(t *testing.T) {
	if _, err := NewDriver(DriverSpec{Kind: "v4l9"}); err == nil {
		t.Fatal("NewDriver returned nil error for unknown kind")
	}
}
