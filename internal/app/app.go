package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/five82/shutter/internal/camera"
	"github.com/five82/shutter/internal/capture"
	"github.com/five82/shutter/internal/config"
	"github.com/five82/shutter/internal/download"
	"github.com/five82/shutter/internal/logging"
	"github.com/five82/shutter/internal/prefs"
	"github.com/five82/shutter/internal/session"
	"github.com/five82/shutter/internal/state"
	"github.com/five82/shutter/internal/ui"
	"github.com/five82/shutter/internal/version"
)

// Options configure the shutter application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/shutter/prefs.toml
	Front      *bool  // overrides the stored front-camera preference
}

// SnapOptions configure a headless capture.
type SnapOptions struct {
	Options
	Name string // empty uses the stored file name
	Type string // png or jpg; empty uses the stored type
	Dir  string // empty uses download_dir
}

// SnapResult describes a saved headless capture.
type SnapResult struct {
	Path   string
	Size   string
	Bytes  int64
	Device string
}

type runtime struct {
	cfg       config.Config
	prefs     prefs.Prefs
	prefsPath string
	log       *slog.Logger
	logCloser io.Closer
	ctrl      *session.Controller
}

// Run boots the shutter TUI until the user quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := setup(opts, "")
	if err != nil {
		return err
	}
	defer rt.close()

	uiOpts := ui.Options{
		Context:    ctx,
		Controller: rt.ctrl,
		Config:     &rt.cfg,
		Prefs:      rt.prefs,
		PrefsPath:  rt.prefsPath,
		Logger:     rt.log,
	}
	return ui.Run(uiOpts)
}

// Snap opens the camera, captures one image, saves it and closes the camera.
func Snap(ctx context.Context, opts SnapOptions) (SnapResult, error) {
	rt, err := setup(opts.Options, opts.Dir)
	if err != nil {
		return SnapResult{}, err
	}
	defer rt.close()

	if name := strings.TrimSpace(opts.Name); name != "" {
		rt.ctrl.SetFileName(name)
	}
	if opts.Type != "" {
		ft, err := download.ParseFileType(opts.Type)
		if err != nil {
			return SnapResult{}, err
		}
		rt.ctrl.SetFileType(ft)
	}

	if err := rt.ctrl.OpenCamera(ctx); err != nil {
		return SnapResult{}, err
	}
	defer rt.ctrl.CloseCamera()

	res, err := rt.ctrl.CaptureImage(ctx)
	if err != nil {
		return SnapResult{}, err
	}
	path, err := rt.ctrl.Download(ctx)
	if err != nil {
		return SnapResult{}, err
	}
	return SnapResult{Path: path, Size: res.SizeLabel, Bytes: res.Bytes, Device: res.Device}, nil
}

func setup(opts Options, downloadDir string) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	if opts.Front != nil {
		userPrefs = userPrefs.WithFront(*opts.Front)
	}

	logger, closer, err := logging.Init(logging.Options{
		Path:   cfg.LogFile,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	devices, err := cfg.Devices()
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("configure cameras: %w", err)
	}
	if len(devices) == 0 {
		_ = closer.Close()
		return nil, errors.New("configure cameras: no [[camera]] entries")
	}

	store := state.NewStore(state.Session{
		FrontCamera: userPrefs.Front(),
		FileName:    userPrefs.FileName,
		FileType:    userPrefs.Type(),
	})

	ctrl, err := session.New(session.Options{
		Media:         camera.NewMediaDevices(devices, logger),
		Store:         store,
		Canvas:        capture.NewCanvas(cfg.CanvasWidth, cfg.CanvasHeight),
		Saver:         download.Saver{Dir: cfg.DownloadDir},
		BlobType:      cfg.BlobType,
		Quality:       cfg.JPEGQuality,
		ToggleTimeout: cfg.ToggleTimeout,
		Logger:        logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init session: %w", err)
	}

	labels := make([]string, 0, len(devices))
	for _, d := range devices {
		labels = append(labels, d.Label+"/"+d.Facing.Label())
	}
	logger.Info("shutter starting",
		"version", version.GetInfo(),
		"cameras", strings.Join(labels, ","),
		"download_dir", cfg.DownloadDir,
		"blob_type", cfg.BlobType,
	)

	return &runtime{
		cfg:       cfg,
		prefs:     userPrefs,
		prefsPath: opts.PrefsPath,
		log:       logger,
		logCloser: closer,
		ctrl:      ctrl,
	}, nil
}

func (rt *runtime) close() {
	rt.ctrl.Shutdown()
	rt.log.Info("shutter stopped")
	_ = rt.logCloser.Close()
}
