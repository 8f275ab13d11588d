// Package prefs handles shutter user preferences persistence.
// Preferences are stored in ~/.config/shutter/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/shutter/internal/download"
)

// Prefs holds user preferences for shutter.
type Prefs struct {
	Theme       string `toml:"theme"`
	FrontCamera *bool  `toml:"front_camera,omitempty"`
	FileName    string `toml:"file_name"`
	FileType    string `toml:"file_type"`
}

const (
	defaultPrefsPath = "~/.config/shutter/prefs.toml"
	defaultTheme     = "Nightfox"
	// DefaultFileName seeds the download name field.
	DefaultFileName = "Shutter Image"
)

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	front := true
	return Prefs{
		Theme:       defaultTheme,
		FrontCamera: &front,
		FileName:    DefaultFileName,
		FileType:    string(download.TypePNG),
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Front reports the stored front-camera preference, defaulting to true.
func (p Prefs) Front() bool {
	if p.FrontCamera == nil {
		return true
	}
	return *p.FrontCamera
}

// Type returns the stored file type, falling back to png for unknown values.
func (p Prefs) Type() download.FileType {
	ft, err := download.ParseFileType(p.FileType)
	if err != nil {
		return download.TypePNG
	}
	return ft
}

// WithFront returns a copy of p with the front-camera flag set.
func (p Prefs) WithFront(front bool) Prefs {
	p.FrontCamera = &front
	return p
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Defaults(), nil // Graceful degradation
	}

	var prefs Prefs
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Defaults(), nil // Graceful degradation
	}

	def := Defaults()
	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = def.Theme
	}
	if prefs.FrontCamera == nil {
		prefs.FrontCamera = def.FrontCamera
	}
	if strings.TrimSpace(prefs.FileName) == "" {
		prefs.FileName = def.FileName
	}
	prefs.FileType = string(prefs.Type())

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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
