package camera

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
)

// TrackState mirrors MediaStreamTrack.readyState.
type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// Track is one media track of a stream. Only video tracks are produced.
type Track struct {
	ID    string
	Kind  string
	Label string

	mu      sync.Mutex
	state   TrackState
	once    sync.Once
	onEnded func()
}

func newTrack(label string, onEnded func()) *Track {
	return &Track{
		ID:      uuid.NewString(),
		Kind:    "video",
		Label:   label,
		state:   TrackLive,
		onEnded: onEnded,
	}
}

// Stop ends the track. Calling it again has no effect.
func (t *Track) Stop() {
	t.once.Do(func() {
		t.mu.Lock()
		t.state = TrackEnded
		t.mu.Unlock()
		if t.onEnded != nil {
			t.onEnded()
		}
	})
}

// ReadyState reports whether the track is live or ended.
func (t *Track) ReadyState() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stream is a live camera stream bound to one device.
type Stream struct {
	ID     string
	Device string
	Facing FacingMode

	driver Driver
	tracks []*Track

	mu       sync.Mutex
	ended    int
	closeErr error
	done     chan struct{}
}

func newStream(device Device, driver Driver) *Stream {
	s := &Stream{
		ID:     uuid.NewString(),
		Device: device.Label,
		Facing: device.Facing,
		driver: driver,
		done:   make(chan struct{}),
	}
	s.tracks = []*Track{newTrack(device.Label, s.trackEnded)}
	return s
}

// Tracks returns the stream's tracks.
func (s *Stream) Tracks() []*Track {
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Active reports whether any track is still live.
func (s *Stream) Active() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Frame grabs the current frame from the bound device.
func (s *Stream) Frame(ctx context.Context) (image.Image, error) {
	if !s.Active() {
		return nil, ErrStreamEnded
	}
	return s.driver.Grab(ctx)
}

// Stop stops every track. Done is closed once teardown has finished.
func (s *Stream) Stop() {
	for _, track := range s.tracks {
		track.Stop()
	}
}

// Done is closed after every track has ended and the device is released.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error from releasing the device, if any, after Done.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

func (s *Stream) trackEnded() {
	s.mu.Lock()
	s.ended++
	last := s.ended == len(s.tracks)
	s.mu.Unlock()
	if !last {
		return
	}

	err := s.driver.Close()
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
	close(s.done)
}
