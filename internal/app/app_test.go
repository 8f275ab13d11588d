package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/capture"
	"github.com/five82/shutter/internal/prefs"
)

func writeFixture(t *testing.T) (configPath, prefsPath, downloads string) {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	framePath := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(framePath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	downloads = filepath.Join(dir, "downloads")
	configPath = filepath.Join(dir, "config.toml")
	prefsPath = filepath.Join(dir, "prefs.toml")
	content := fmt.Sprintf(`download_dir = %q
log_file = %q
log_level = "debug"

[[camera]]
label = "desk"
facing = "front"
source = %q

[[camera]]
label = "yard"
facing = "rear"
source = %q
`, downloads, filepath.Join(dir, "shutter.log"), framePath, filepath.Join(dir, "missing.png"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, prefsPath, downloads
}

func TestSnapSavesCapture(t *testing.T) {
	configPath, prefsPath, downloads := writeFixture(t)

	res, err := Snap(context.Background(), SnapOptions{
		Options: Options{ConfigPath: configPath, PrefsPath: prefsPath},
		Name:    "desk shot",
		Type:    "jpg",
	})
	if err != nil {
		t.Fatalf("Snap: %v", err)
	}

	want := filepath.Join(downloads, "desk shot.jpg")
	if res.Path != want {
		t.Fatalf("path = %q, want %q", res.Path, want)
	}
	if res.Device != "desk" {
		t.Fatalf("device = %q, want desk", res.Device)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		t.Fatalf("stat saved file: %v", err)
	}
	if info.Size() != res.Bytes {
		t.Fatalf("saved %d bytes, result reports %d", info.Size(), res.Bytes)
	}
	if res.Size != capture.FormatSize(res.Bytes) {
		t.Fatalf("size label = %q", res.Size)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if cfg.Width != capture.DefaultWidth || cfg.Height != capture.DefaultHeight {
		t.Fatalf("saved image is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSnapUsesStoredPrefs(t *testing.T) {
	configPath, prefsPath, downloads := writeFixture(t)
	stored := prefs.Defaults()
	stored.FileName = "from prefs"
	stored.FileType = "png"
	if err := prefs.Save(prefsPath, stored); err != nil {
		t.Fatalf("save prefs: %v", err)
	}

	res, err := Snap(context.Background(), SnapOptions{
		Options: Options{ConfigPath: configPath, PrefsPath: prefsPath},
	})
	if err != nil {
		t.Fatalf("Snap: %v", err)
	}
	if want := filepath.Join(downloads, "from prefs.png"); res.Path != want {
		t.Fatalf("path = %q, want %q", res.Path, want)
	}
}

func TestSnapRearFallsBackToFront(t *testing.T) {
	configPath, prefsPath, _ := writeFixture(t)
	rear := false

	res, err := Snap(context.Background(), SnapOptions{
		Options: Options{ConfigPath: configPath, PrefsPath: prefsPath, Front: &rear},
	})
	if err != nil {
		t.Fatalf("Snap: %v", err)
	}
	// yard has no frame on disk, so acquisition falls back to desk.
	if res.Device != "desk" {
		t.Fatalf("device = %q, want desk", res.Device)
	}
}

func TestSnapFailsWithoutUsableCamera(t *testing.T) {
	configPath, prefsPath, _ := writeFixture(t)
	dir := filepath.Dir(configPath)
	if err := os.Remove(filepath.Join(dir, "frame.png")); err != nil {
		t.Fatalf("remove frame: %v", err)
	}

	_, err := Snap(context.Background(), SnapOptions{
		Options: Options{ConfigPath: configPath, PrefsPath: prefsPath},
	})
	var capErr *camera.CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CaptureError, got %T: %v", err, err)
	}
	if !errors.Is(err, camera.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
}

func TestSnapRejectsUnknownType(t *testing.T) {
	configPath, prefsPath, _ := writeFixture(t)

	_, err := Snap(context.Background(), SnapOptions{
		Options: Options{ConfigPath: configPath, PrefsPath: prefsPath},
		Type:    "gif",
	})
	if err == nil {
		t.Fatal("expected error for gif")
	}
}

func TestSetupReportsConfigErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("preview_fps = 99\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := setup(Options{ConfigPath: path, PrefsPath: filepath.Join(dir, "prefs.toml")}, "")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}
