// Package camera provides the media-device layer for Shutter.
//
// # Overview
//
// A MediaDevices value holds the configured capture devices. GetUserMedia
// resolves a Constraints value (facing-mode preference, audio flag) to one
// device, probes it with a single frame, and returns a live Stream carrying one
// video Track. Frames are pulled on demand with Stream.Frame; there is no
// background capture loop.
//
// # Drivers
//
//   - file: reads a snapshot file rewritten by another process (raspimjpeg,
//     mjpg-streamer output_file, motion)
//   - http: fetches a still from a snapshot URL
//   - exec: runs a command that prints one encoded frame (ffmpeg, libcamera-still)
//
// A fresh driver is opened for every acquisition and closed when the stream's
// last track stops.
//
// # Teardown
//
// Track.Stop is idempotent. Stream.Stop stops every track; Stream.Done is
// closed once the last track has ended and the driver has been released, so
// callers can wait for teardown before issuing a new request.
//
// # Errors
//
// Acquisition failures are *CaptureError values that wrap one of
// ErrPermissionDenied, ErrNoDevice or ErrConstraintsUnsatisfiable when the
// cause can be classified. Use errors.Is against the sentinels.
package camera
