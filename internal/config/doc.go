// Package config loads shutter's TOML configuration.
//
// # Configuration Discovery
//
// Load reads the given path, or ~/.config/shutter/config.toml when the path
// is empty. A missing file is not an error: Default is returned so shutter
// works without any setup. Empty fields keep their defaults; invalid values
// are rejected.
//
// # TOML Format
//
//	download_dir = "~/Pictures"
//	log_file = "~/.local/state/shutter/shutter.log"
//	log_level = "info"
//	canvas_width = 360
//	canvas_height = 360
//	blob_type = "image/png"
//	jpeg_quality = 92
//	preview_fps = 4
//	toggle_timeout = "2s"
//
//	[[camera]]
//	label = "rear"
//	facing = "environment"
//	driver = "file"
//	source = "/dev/shm/mjpeg/cam.jpg"
//
//	[[camera]]
//	label = "front"
//	facing = "user"
//	driver = "exec"
//	command = ["ffmpeg", "-f", "v4l2", "-i", "/dev/video0", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-"]
//
// Camera drivers are validated while loading, so a typo in a [[camera]]
// table fails at startup rather than on the first open. Paths accept a
// leading tilde.
package config
