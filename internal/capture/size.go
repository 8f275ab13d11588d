package capture

import (
	"math"
	"strconv"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize formats bytes with two decimals.
func FormatSize(bytes int64) string {
	return FormatFileSize(bytes, 2)
}

// FormatFileSize renders bytes in the largest power-of-1024 unit not above
// the value (capped at TB), rounded to decimals places with trailing zeros
// dropped: 1536 -> "1.5 KB".
func FormatFileSize(bytes int64, decimals int) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	scale := math.Pow(10, float64(decimals))
	rounded := math.Round(value*scale) / scale
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}
