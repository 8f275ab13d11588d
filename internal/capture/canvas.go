// Package capture turns a camera frame into an encoded image: a fixed-size
// offscreen canvas, blob export, data URL conversion and size formatting.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/draw"
)

// Default canvas dimensions.
const (
	DefaultWidth  = 360
	DefaultHeight = 360
)

// Blob MIME types supported by ToBlob.
const (
	TypePNG  = "image/png"
	TypeJPEG = "image/jpeg"
)

// DefaultJPEGQuality matches the usual browser default for toBlob.
const DefaultJPEGQuality = 92

// Canvas is an offscreen RGBA raster of fixed size.
type Canvas struct {
	mu  sync.Mutex
	rgb *image.RGBA
}

// NewCanvas allocates a canvas; non-positive dimensions fall back to 360x360.
func NewCanvas(width, height int) *Canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Canvas{rgb: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.rgb.Bounds().Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.rgb.Bounds().Dy() }

// DrawImage scales the whole of src onto the whole canvas. Aspect ratio is
// not preserved.
func (c *Canvas) DrawImage(src image.Image) error {
	if src == nil || src.Bounds().Empty() {
		return fmt.Errorf("draw image: empty source")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.BiLinear.Scale(c.rgb, c.rgb.Bounds(), src, src.Bounds(), draw.Src, nil)
	return nil
}

// ToBlob encodes the canvas. Unsupported types fall back to PNG; quality is
// only used for JPEG and is clamped to 1..100.
func (c *Canvas) ToBlob(ctx context.Context, mimeType string, quality int) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	snapshot := image.NewRGBA(c.rgb.Bounds())
	copy(snapshot.Pix, c.rgb.Pix)
	c.mu.Unlock()

	var buf bytes.Buffer
	switch normalizeType(mimeType) {
	case TypeJPEG:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, snapshot, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return NewBlob(TypeJPEG, buf.Bytes()), nil
	default:
		if err := png.Encode(&buf, snapshot); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return NewBlob(TypePNG, buf.Bytes()), nil
	}
}

func normalizeType(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case TypeJPEG, "image/jpg":
		return TypeJPEG
	default:
		return TypePNG
	}
}
