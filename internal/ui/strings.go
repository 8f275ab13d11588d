package ui

import "strings"

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle shortens a path by removing characters from the middle,
// keeping the directory prefix and the file name's extension.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}

	ellipsis := []rune("…")
	if limit <= len(ellipsis)+2 {
		return string(runes[:limit])
	}

	lastDot := strings.LastIndex(value, ".")
	lastSlash := strings.LastIndexAny(value, `/\`)
	if lastDot > lastSlash && lastDot > 0 {
		ext := []rune(value[lastDot:])
		base := []rune(value[:lastDot])
		baseLimit := limit - len(ext) - len(ellipsis)
		if len(ext) < 10 && len(ext) < limit/2 && baseLimit > 1 {
			prefix := baseLimit / 2
			suffix := baseLimit - prefix
			return string(base[:prefix]) + string(ellipsis) + string(base[len(base)-suffix:]) + string(ext)
		}
	}

	keep := limit - len(ellipsis)
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + string(ellipsis) + string(runes[len(runes)-suffix:])
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
