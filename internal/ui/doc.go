// Package ui provides the Bubble Tea terminal interface for shutter.
//
// # Architecture Overview
//
// Model follows the Elm architecture: Update handles messages on the program
// goroutine, and every camera call (open, close, switch, capture, download,
// preview grab) runs inside a tea.Cmd whose result comes back as a message.
// Nothing in Update blocks on the camera.
//
// The session state lives in a state.Store owned by the controller. The model
// keeps a snapshot and refreshes it through waitForChange, which blocks on
// the store's change channel and re-arms itself after every snapshotMsg.
//
// # Views
//
//   - Camera view: live preview on the left, the last capture with the
//     download form (name, type, download action) on the right. Narrow
//     terminals stack the panes.
//   - Log view: the tail of shutter's own log file, parsed by logtail, with
//     follow mode, a minimum level and a substring filter.
//
// # Preview Rendering
//
// Frames are scaled with golang.org/x/image/draw and drawn with upper
// half-block characters: the foreground color paints the top pixel and the
// background color the bottom one, giving two pixel rows per terminal row.
// Rendering happens inside the preview command, so a slow driver only delays
// the next frame.
//
// # Keyboard Shortcuts
//
//   - o / x: open / close the camera
//   - space, c: capture
//   - f: toggle the front-camera preference (re-opens the camera if open)
//   - n: edit the file name, t: cycle png/jpg, d: download
//   - y: copy the capture's data URL to the clipboard
//   - l: log view, T: cycle theme, ?: help, e / ctrl+c: quit
//
// Theme, front-camera flag, file name and file type are saved to the prefs
// file whenever they change.
package ui
