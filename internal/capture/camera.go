package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
)

// Facing selects the front or back camera.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Toggle returns the other facing.
func (f Facing) Toggle() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Mirrored reports whether frames from this facing are mirrored on capture.
func (f Facing) Mirrored() bool { return f == FacingUser }

// Requested capture resolution.
const (
	IdealWidth  = 1920
	IdealHeight = 1080
)

// Constraints describe the stream to open.
type Constraints struct {
	Facing      Facing
	IdealWidth  int
	IdealHeight int
}

// ZoomRange is a hardware zoom capability.
type ZoomRange struct {
	Min, Max float64
}

// Stream is an open camera stream.
type Stream interface {
	// Frame returns the current video frame. A frame with empty bounds means
	// the stream is not producing pixels yet.
	Frame(ctx context.Context) (image.Image, error)
	// ZoomCapability reports the hardware zoom range, if any.
	ZoomCapability() (ZoomRange, bool)
	// ApplyZoom sets the hardware zoom.
	ApplyZoom(ctx context.Context, zoom float64) error
	// Stop releases every track of the stream.
	Stop()
}

// StreamSource opens camera streams.
type StreamSource interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// ErrorKind classifies camera failures.
type ErrorKind int

const (
	ErrorKindOther ErrorKind = iota
	ErrorKindPermission
	ErrorKindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindPermission:
		return "permission denied"
	case ErrorKindNotFound:
		return "not found"
	default:
		return "other"
	}
}

// Sentinels a StreamSource may wrap to classify its failure.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrCameraNotFound   = errors.New("camera not found")
)

// CameraError is returned when a stream cannot be opened.
type CameraError struct {
	Kind   ErrorKind
	Facing Facing
	Err    error
}

func (e *CameraError) Error() string {
	return fmt.Sprintf("Camera error: %s camera (%s): %v", e.Facing, e.Kind, e.Err)
}

func (e *CameraError) Unwrap() error { return e.Err }

func newCameraError(f Facing, err error) *CameraError {
	kind := ErrorKindOther
	switch {
	case errors.Is(err, ErrPermissionDenied):
		kind = ErrorKindPermission
	case errors.Is(err, ErrCameraNotFound):
		kind = ErrorKindNotFound
	}
	return &CameraError{Kind: kind, Facing: f, Err: err}
}

// Camera owns at most one open stream and the zoom state for it.
type Camera struct {
	source StreamSource
	facing Facing
	stream Stream
	zoom   *ZoomControl
}

// NewCamera returns a stopped camera. Call Start to open a stream.
func NewCamera(source StreamSource, facing Facing) *Camera {
	if facing == "" {
		facing = FacingUser
	}
	return &Camera{source: source, facing: facing, zoom: newZoomControl(nil)}
}

// Facing returns the current facing.
func (c *Camera) Facing() Facing { return c.facing }

// Stream returns the open stream or nil.
func (c *Camera) Stream() Stream { return c.stream }

// Zoom returns the zoom control of the current stream.
func (c *Camera) Zoom() *ZoomControl { return c.zoom }

// Start stops any open stream and opens a new one for the current facing.
// On failure the camera is left without a stream and the error is a
// *CameraError.
func (c *Camera) Start(ctx context.Context) error {
	c.stop()

	constraints := Constraints{Facing: c.facing, IdealWidth: IdealWidth, IdealHeight: IdealHeight}
	stream, err := c.source.Open(ctx, constraints)
	if err != nil {
		cerr := newCameraError(c.facing, err)
		log.Error().Err(err).Str("facing", string(c.facing)).Str("kind", cerr.Kind.String()).Msg("Failed to open camera")
		return cerr
	}

	c.stream = stream
	c.zoom = newZoomControl(stream)
	c.zoom.value = c.zoom.clamp(1)

	log.Debug().
		Str("facing", string(c.facing)).
		Bool("hardware_zoom", c.zoom.Hardware()).
		Msg("Camera started")
	return nil
}

// Toggle switches between front and back camera. The new stream starts at
// zoom 1.
func (c *Camera) Toggle(ctx context.Context) error {
	c.facing = c.facing.Toggle()
	c.zoom = newZoomControl(nil)
	return c.Start(ctx)
}

// Close stops the stream.
func (c *Camera) Close() {
	c.stop()
}

func (c *Camera) stop() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}
