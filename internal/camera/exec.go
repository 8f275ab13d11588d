package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"
)

// ExecDriver runs a command that writes one encoded frame to stdout, e.g.
//
//	ffmpeg -loglevel error -f v4l2 -i /dev/video0 -frames:v 1 -f image2pipe -vcodec png -
type ExecDriver struct {
	name string
	args []string
}

// NewExecDriver builds a driver around command (argv form).
func NewExecDriver(command []string) (*ExecDriver, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, fmt.Errorf("exec driver: command is empty")
	}
	args := make([]string, len(command)-1)
	copy(args, command[1:])
	return &ExecDriver{name: command[0], args: args}, nil
}

// Grab runs the command once and decodes its output.
func (d *ExecDriver) Grab(ctx context.Context) (image.Image, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.name, d.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", d.name, err, lastLine(msg))
		}
		return nil, fmt.Errorf("run %s: %w", d.name, err)
	}
	return decodeFrame(stdout.Bytes())
}

// Close is a no-op; each grab owns its process.
func (d *ExecDriver) Close() error { return nil }

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
