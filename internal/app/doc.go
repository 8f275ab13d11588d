// Package app is shutter's composition root.
//
// setup loads the config and preferences, installs the slog logger, builds
// the configured camera devices and wires them into a session.Controller
// backed by a fresh state.Store. Run hands the controller to the Bubble Tea
// UI; Snap drives the same controller headlessly through one
// open, capture, download and close cycle.
//
// Preferences only seed the store. The UI writes changes back to the prefs
// file as the user makes them.
//
// The camera is always released on the way out, whatever path the program
// takes to exit.
package app
