package ui

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/five82/shutter/internal/capture"
)

// upperHalf is drawn with the top pixel as foreground and the bottom pixel
// as background, so each cell carries two pixel rows.
const upperHalf = "▀"

// renderHalfBlocks draws img scaled to fit cols x rows terminal cells.
func renderHalfBlocks(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	src := img.Bounds()
	if src.Empty() {
		return ""
	}

	w, h := fitSize(src.Dx(), src.Dy(), cols, rows*2)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	var b strings.Builder
	for y := 0; y < h; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < w; x++ {
			top := dst.RGBAAt(x, y)
			bottom := top
			if y+1 < h {
				bottom = dst.RGBAAt(x, y+1)
			}
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render(upperHalf))
		}
	}
	return b.String()
}

// renderDataURL decodes a captured data URL and draws it.
func renderDataURL(dataURL string, cols, rows int) (string, error) {
	_, data, err := capture.ParseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode capture: %w", err)
	}
	return renderHalfBlocks(img, cols, rows), nil
}

// fitSize scales w x h to fit inside maxW x maxH keeping the aspect ratio.
func fitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	fw := int(float64(w) * scale)
	fh := int(float64(h) * scale)
	return maxInt(fw, 1), maxInt(fh, 1)
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
