// Package logtail reads and parses the tail of shutter's log file for the
// in-app log view.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the window rather than the file size. A missing file yields no
// lines and no error.
//
// Parse understands the slog text handler's key=value format:
//
//	time=2026-10-19T09:14:02.511+02:00 level=INFO msg="camera opened" component=session device=front
//
// Lines that do not parse are kept verbatim so nothing written to the file
// disappears from the view. Filter narrows entries by minimum level and a
// case-insensitive substring.
package logtail
