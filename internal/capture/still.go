package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// StillSource serves fixed images as camera streams, one per facing. It backs
// the compose command and tests.
type StillSource struct {
	mu     sync.Mutex
	frames map[Facing][]image.Image
	zoom   *ZoomRange
	opened int
}

// NewStillSource returns a source with no frames.
func NewStillSource() *StillSource {
	return &StillSource{frames: make(map[Facing][]image.Image)}
}

// AddFrames queues frames for a facing. Each Frame call on a stream returns
// the next queued image; the last one repeats.
func (s *StillSource) AddFrames(f Facing, frames ...image.Image) *StillSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[f] = append(s.frames[f], frames...)
	return s
}

// WithHardwareZoom makes opened streams report a hardware zoom range.
func (s *StillSource) WithHardwareZoom(r ZoomRange) *StillSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = &r
	return s
}

// Opened returns how many streams were opened.
func (s *StillSource) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Open returns a stream over the frames queued for c.Facing.
func (s *StillSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := s.frames[c.Facing]
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no %s frames", ErrCameraNotFound, c.Facing)
	}
	s.opened++
	st := &stillStream{frames: frames}
	if s.zoom != nil {
		st.zoom, st.hasZoom = *s.zoom, true
	}
	return st, nil
}

type stillStream struct {
	mu      sync.Mutex
	frames  []image.Image
	next    int
	zoom    ZoomRange
	hasZoom bool
	applied float64
	stopped bool
}

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("stream stopped")
	}
	img := s.frames[s.next]
	if s.next < len(s.frames)-1 {
		s.next++
	}
	return img, nil
}

func (s *stillStream) ZoomCapability() (ZoomRange, bool) { return s.zoom, s.hasZoom }

func (s *stillStream) ApplyZoom(ctx context.Context, zoom float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasZoom {
		return fmt.Errorf("zoom not supported")
	}
	s.applied = zoom
	return nil
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
