package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/handoff"
)

// Booth is the camera capture stage. Each Capture fills the next half of the
// strip; the second one also overlays the frame and writes the strip to the
// hand-off slot. A Booth is not safe for concurrent use.
type Booth struct {
	camera *Camera
	strip  *Strip
	frame  image.Image
	slot   handoff.Slot

	finalized bool
}

// NewBooth returns a booth drawing from camera, overlaying frame and writing
// to slot.
func NewBooth(camera *Camera, frame image.Image, slot handoff.Slot) *Booth {
	return &Booth{
		camera: camera,
		strip:  NewStrip(),
		frame:  frame,
		slot:   slot,
	}
}

// Camera returns the booth's camera.
func (b *Booth) Camera() *Camera { return b.camera }

// Strip returns the strip being composed.
func (b *Booth) Strip() *Strip { return b.strip }

// Stage returns the strip stage.
func (b *Booth) Stage() int { return b.strip.Stage() }

// Capture grabs the current camera frame into the next half. It returns
// ErrStripComplete once both halves are filled and ErrFrameNotReady, without
// advancing, if the frame has no pixels.
func (b *Booth) Capture(ctx context.Context) error {
	if b.strip.Stage() > StageBottom {
		return ErrStripComplete
	}
	stream := b.camera.Stream()
	if stream == nil {
		return ErrNoStream
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		return fmt.Errorf("failed to read camera frame: %w", err)
	}
	if frame == nil || frame.Bounds().Empty() {
		log.Warn().Int("stage", b.strip.Stage()).Msg("Video not ready")
		return ErrFrameNotReady
	}

	fb := frame.Bounds()
	crop := CenterCrop(fb.Dx(), fb.Dy(), b.camera.Zoom().SoftwareFactor())
	facing := b.camera.Facing()
	b.strip.DrawCrop(frame, crop, facing.Mirrored())

	stage := b.strip.Advance()
	log.Info().
		Int("stage", stage).
		Str("facing", string(facing)).
		Int("frame_width", fb.Dx()).
		Int("frame_height", fb.Dy()).
		Float64("zoom", b.camera.Zoom().Value()).
		Msg("Photo captured")

	if stage == StageDone {
		return b.finalize(ctx)
	}
	return nil
}

// finalize overlays the frame and stores the strip. It runs once.
func (b *Booth) finalize(ctx context.Context) error {
	if b.finalized {
		return nil
	}
	b.finalized = true
	b.camera.Close()

	b.strip.OverlayFrame(b.frame)
	url, err := b.strip.DataURL()
	if err != nil {
		return err
	}
	if err := b.slot.Put(ctx, handoff.KeyPhotoStrip, url); err != nil {
		return fmt.Errorf("failed to store photo strip: %w", err)
	}
	log.Info().Int("data_url_bytes", len(url)).Msg("Photo strip finalized")
	return nil
}

// Close releases the camera.
func (b *Booth) Close() {
	b.camera.Close()
}
