package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/capture"
)

// Config holds the settings shutter reads at startup.
type Config struct {
	DownloadDir   string
	LogFile       string
	LogLevel      string
	LogFormat     string
	CanvasWidth   int
	CanvasHeight  int
	BlobType      string
	JPEGQuality   int
	PreviewFPS    int
	ToggleTimeout time.Duration
	Cameras       []Camera
}

// Camera is one [[camera]] table.
type Camera struct {
	Label   string
	Facing  camera.FacingMode
	Driver  string
	Source  string
	Command []string
}

const (
	defaultConfigPath    = "~/.config/shutter/config.toml"
	defaultDownloadDir   = "~/Pictures"
	defaultLogFile       = "~/.local/state/shutter/shutter.log"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultPreviewFPS    = 4
	defaultToggleTimeout = 2 * time.Second
	maxPreviewFPS        = 30
	maxCanvasSide        = 4096
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DownloadDir:   mustExpand(defaultDownloadDir),
		LogFile:       mustExpand(defaultLogFile),
		LogLevel:      defaultLogLevel,
		LogFormat:     defaultLogFormat,
		CanvasWidth:   capture.DefaultWidth,
		CanvasHeight:  capture.DefaultHeight,
		BlobType:      capture.TypePNG,
		JPEGQuality:   capture.DefaultJPEGQuality,
		PreviewFPS:    defaultPreviewFPS,
		ToggleTimeout: defaultToggleTimeout,
		Cameras:       defaultCameras(),
	}
}

func defaultCameras() []Camera {
	return []Camera{
		{
			Label:   "front",
			Facing:  camera.FacingUser,
			Driver:  camera.DriverExec,
			Command: []string{"ffmpeg", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-"},
		},
		{
			Label:  "rear",
			Facing: camera.FacingEnvironment,
			Driver: camera.DriverFile,
			Source: "/dev/shm/mjpeg/cam.jpg",
		},
	}
}

type rawConfig struct {
	DownloadDir   string      `toml:"download_dir"`
	LogFile       string      `toml:"log_file"`
	LogLevel      string      `toml:"log_level"`
	LogFormat     string      `toml:"log_format"`
	CanvasWidth   int         `toml:"canvas_width"`
	CanvasHeight  int         `toml:"canvas_height"`
	BlobType      string      `toml:"blob_type"`
	JPEGQuality   int         `toml:"jpeg_quality"`
	PreviewFPS    int         `toml:"preview_fps"`
	ToggleTimeout string      `toml:"toggle_timeout"`
	Cameras       []rawCamera `toml:"camera"`
}

type rawCamera struct {
	Label   string   `toml:"label"`
	Facing  string   `toml:"facing"`
	Driver  string   `toml:"driver"`
	Source  string   `toml:"source"`
	Command []string `toml:"command"`
}

// Load locates and parses the shutter config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := raw.resolve()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (raw rawConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.DownloadDir); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return Config{}, fmt.Errorf("download_dir: %w", err)
		}
		cfg.DownloadDir = expanded
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		expanded, err := expandPath(v)
		if err != nil {
			return Config{}, fmt.Errorf("log_file: %w", err)
		}
		cfg.LogFile = expanded
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		switch v {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = v
		default:
			return Config{}, fmt.Errorf("log_level %q is not one of debug, info, warn, error", raw.LogLevel)
		}
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogFormat)); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("log_format %q must be text or json", raw.LogFormat)
		}
		cfg.LogFormat = v
	}

	if raw.CanvasWidth != 0 {
		cfg.CanvasWidth = raw.CanvasWidth
	}
	if raw.CanvasHeight != 0 {
		cfg.CanvasHeight = raw.CanvasHeight
	}
	if cfg.CanvasWidth < 1 || cfg.CanvasWidth > maxCanvasSide || cfg.CanvasHeight < 1 || cfg.CanvasHeight > maxCanvasSide {
		return Config{}, fmt.Errorf("canvas size %dx%d out of range 1..%d", cfg.CanvasWidth, cfg.CanvasHeight, maxCanvasSide)
	}

	if v := strings.ToLower(strings.TrimSpace(raw.BlobType)); v != "" {
		switch v {
		case capture.TypePNG:
			cfg.BlobType = capture.TypePNG
		case capture.TypeJPEG, "image/jpg":
			cfg.BlobType = capture.TypeJPEG
		default:
			return Config{}, fmt.Errorf("blob_type %q must be image/png or image/jpeg", raw.BlobType)
		}
	}
	if raw.JPEGQuality != 0 {
		if raw.JPEGQuality < 1 || raw.JPEGQuality > 100 {
			return Config{}, fmt.Errorf("jpeg_quality %d out of range 1..100", raw.JPEGQuality)
		}
		cfg.JPEGQuality = raw.JPEGQuality
	}
	if raw.PreviewFPS != 0 {
		if raw.PreviewFPS < 1 || raw.PreviewFPS > maxPreviewFPS {
			return Config{}, fmt.Errorf("preview_fps %d out of range 1..%d", raw.PreviewFPS, maxPreviewFPS)
		}
		cfg.PreviewFPS = raw.PreviewFPS
	}
	if v := strings.TrimSpace(raw.ToggleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("toggle_timeout: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("toggle_timeout must be positive")
		}
		cfg.ToggleTimeout = d
	}

	if len(raw.Cameras) > 0 {
		cameras, err := resolveCameras(raw.Cameras)
		if err != nil {
			return Config{}, err
		}
		cfg.Cameras = cameras
	}
	return cfg, nil
}

func resolveCameras(raw []rawCamera) ([]Camera, error) {
	seen := make(map[string]struct{}, len(raw))
	cameras := make([]Camera, 0, len(raw))
	for i, rc := range raw {
		label := strings.TrimSpace(rc.Label)
		if label == "" {
			label = fmt.Sprintf("camera%d", i+1)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("camera %q defined twice", label)
		}
		seen[label] = struct{}{}

		facing := camera.FacingUser
		if strings.TrimSpace(rc.Facing) != "" {
			parsed, err := camera.ParseFacingMode(rc.Facing)
			if err != nil {
				return nil, fmt.Errorf("camera %q: %w", label, err)
			}
			facing = parsed
		}

		driver := strings.ToLower(strings.TrimSpace(rc.Driver))
		if driver == "" {
			driver = camera.DriverFile
		}
		cam := Camera{
			Label:  label,
			Facing: facing,
			Driver: driver,
			Source: strings.TrimSpace(rc.Source),
		}
		if len(rc.Command) > 0 {
			cam.Command = append([]string(nil), rc.Command...)
		}
		if driver == camera.DriverFile && cam.Source != "" {
			expanded, err := expandPath(cam.Source)
			if err != nil {
				return nil, fmt.Errorf("camera %q: %w", label, err)
			}
			cam.Source = expanded
		}
		if _, err := camera.NewDriver(cam.Spec()); err != nil {
			return nil, fmt.Errorf("camera %q: %w", label, err)
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

// Spec returns the driver spec for c.
func (c Camera) Spec() camera.DriverSpec {
	return camera.DriverSpec{Kind: c.Driver, Source: c.Source, Command: c.Command}
}

// Devices builds the camera devices described by the config.
func (c Config) Devices() ([]camera.Device, error) {
	devices := make([]camera.Device, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		dev, err := camera.NewDevice(cam.Label, cam.Facing, cam.Spec())
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// PreviewInterval is the delay between preview frames.
func (c Config) PreviewInterval() time.Duration {
	fps := c.PreviewFPS
	if fps <= 0 {
		fps = defaultPreviewFPS
	}
	return time.Second / time.Duration(fps)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
