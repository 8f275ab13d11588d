// Package state holds the session state shared by the controller and the UI.
//
// # Overview
//
// Session is an explicit UI-state struct: camera-open flag, front-camera
// preference, the latest capture (data URL plus formatted size), and the
// download name and type. Store guards it with a sync.RWMutex and hands out
// copies through Snapshot.
//
// # Change Notification
//
// Every mutating method signals on the Changes channel after releasing the
// lock. The channel has capacity one and sends never block, so bursts of
// updates collapse into a single pending signal. The UI waits on Changes,
// takes a fresh Snapshot and re-renders:
//
//	Controller (tea.Cmd goroutine)      UI (Bubble Tea loop)
//	┌───────────────────────┐           ┌──────────────────────┐
//	│ store.SetCameraOpen() │──signal──→│ <-store.Changes()    │
//	│ store.SetCapture()    │           │ store.Snapshot()     │
//	└───────────────────────┘           │ View()               │
//	                                    └──────────────────────┘
//
// # Invariants
//
//   - CapturedImageSize is non-empty iff CapturedImage is non-empty; both are
//     written by SetCapture in a single update
//   - Snapshot never exposes the stored error instance
package state
