package state

import (
	"sync"
	"time"

	"github.com/five82/shutter/internal/download"
)

// Session is the UI state for one interactive session.
type Session struct {
	CameraOpen  bool
	FrontCamera bool
	Device      string // label of the bound device, empty when closed

	CapturedImage     string // data URL of the latest capture
	CapturedImageSize string // formatted size of the latest capture
	CaptureID         string
	CapturedAt        time.Time

	FileName string
	FileType download.FileType

	LastSaved string
	LastError error
	UpdatedAt time.Time
}

// HasCapture reports whether an image has been captured.
func (s Session) HasCapture() bool {
	return s.CapturedImage != ""
}

// Store guards the session and signals every change.
type Store struct {
	mu      sync.RWMutex
	session Session
	changes chan struct{}
}

// NewStore returns a store seeded with initial.
func NewStore(initial Session) *Store {
	initial.UpdatedAt = time.Now()
	return &Store{
		session: initial,
		changes: make(chan struct{}, 1),
	}
}

// Changes delivers a signal after each mutation. Signals coalesce: a reader
// that falls behind sees one pending signal, not one per change.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session
}

// SetCameraOpen records whether a stream is bound and to which device.
func (s *Store) SetCameraOpen(open bool, device string) {
	s.update(func(sess *Session) {
		sess.CameraOpen = open
		sess.Device = ""
		if open {
			sess.Device = device
			sess.LastError = nil
		}
	})
}

// SetFrontCamera records the facing preference.
func (s *Store) SetFrontCamera(front bool) {
	s.update(func(sess *Session) { sess.FrontCamera = front })
}

// SetCapture replaces the captured image and its size together.
func (s *Store) SetCapture(dataURL, size, id string) {
	s.update(func(sess *Session) {
		if dataURL == "" || size == "" {
			sess.CapturedImage = ""
			sess.CapturedImageSize = ""
			sess.CaptureID = ""
			sess.CapturedAt = time.Time{}
			return
		}
		sess.CapturedImage = dataURL
		sess.CapturedImageSize = size
		sess.CaptureID = id
		sess.CapturedAt = time.Now()
		sess.LastError = nil
	})
}

// SetFileName records the download name field.
func (s *Store) SetFileName(name string) {
	s.update(func(sess *Session) { sess.FileName = name })
}

// SetFileType records the download type selector.
func (s *Store) SetFileType(ft download.FileType) {
	s.update(func(sess *Session) { sess.FileType = ft })
}

// SetSaved records the path of the last download.
func (s *Store) SetSaved(path string) {
	s.update(func(sess *Session) {
		sess.LastSaved = path
		sess.LastError = nil
	})
}

// SetError records the most recent failure; nil clears it.
func (s *Store) SetError(err error) {
	s.update(func(sess *Session) { sess.LastError = err })
}

func (s *Store) update(mutate func(*Session)) {
	s.mu.Lock()
	mutate(&s.session)
	s.session.UpdatedAt = time.Now()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
