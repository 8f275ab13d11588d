// Package download saves captured images to disk the way a browser download
// does: the user-chosen name, the selected extension, no silent overwrites.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/shutter/internal/capture"
)

// FileType is the extension selected for the download.
type FileType string

const (
	TypePNG FileType = "png"
	TypeJPG FileType = "jpg"
)

var fileTypeOrder = []FileType{TypePNG, TypeJPG}

// FileTypes returns the selectable file types in display order.
func FileTypes() []FileType {
	out := make([]FileType, len(fileTypeOrder))
	copy(out, fileTypeOrder)
	return out
}

// ParseFileType accepts png, jpg and the jpeg alias.
func ParseFileType(value string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")) {
	case "png":
		return TypePNG, nil
	case "jpg", "jpeg":
		return TypeJPG, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", value)
	}
}

// Next returns the following file type in the selector, wrapping around.
func (t FileType) Next() FileType {
	for i, ft := range fileTypeOrder {
		if ft == t {
			return fileTypeOrder[(i+1)%len(fileTypeOrder)]
		}
	}
	return fileTypeOrder[0]
}

// FileName composes the download name as "{name}.{type}".
func FileName(name string, fileType FileType) string {
	return name + "." + string(fileType)
}

// maxCollisionSuffix bounds the " (n)" search.
const maxCollisionSuffix = 1000

// Saver writes downloads into Dir.
type Saver struct {
	Dir string
}

// Save decodes dataURL and writes it as fileName inside the download
// directory. An existing file is never replaced; " (1)", " (2)"... are tried
// instead. It returns the path written.
func (s Saver) Save(ctx context.Context, dataURL, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, data, err := capture.ParseDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode capture: %w", err)
	}

	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	base := sanitizeFileName(fileName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		path := filepath.Join(dir, candidate)
		err := writeExclusive(path, data)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", fmt.Errorf("write download: %w", err)
	}
	return "", fmt.Errorf("write download: too many files named %q", base)
}

func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

// sanitizeFileName keeps the name inside the download directory and gives
// nameless files a stem.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "\x00", "")
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if strings.Trim(cleaned, ".") == "" {
		return "download"
	}
	if strings.TrimSuffix(cleaned, filepath.Ext(cleaned)) == "" {
		return "download" + cleaned
	}
	return cleaned
}
