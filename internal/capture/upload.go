package capture

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/sticker"
)

// Upload placement limits.
const (
	MinUploadScale = 0.1
	MaxUploadScale = 5.0

	buttonZoomFactor = 1.2
	wheelZoomFactor  = 1.1
)

// Placement is where the pending image sits in the current half: its
// top-left corner relative to the half, and its scale.
type Placement struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Uploader is the upload variant of the capture stage. The user loads an
// image per half, pans and zooms it, then confirms. It is not safe for
// concurrent use.
type Uploader struct {
	strip *Strip
	frame image.Image
	slot  handoff.Slot

	img       image.Image
	place     Placement
	dragging  bool
	dragStart sticker.Point
	lastPinch float64
}

// NewUploader returns an uploader overlaying frame and writing to slot.
func NewUploader(frame image.Image, slot handoff.Slot) *Uploader {
	return &Uploader{strip: NewStrip(), frame: frame, slot: slot}
}

// Strip returns the strip being composed.
func (u *Uploader) Strip() *Strip { return u.strip }

// Stage returns the strip stage.
func (u *Uploader) Stage() int { return u.strip.Stage() }

// Pending reports whether an image is loaded and not yet confirmed.
func (u *Uploader) Pending() bool { return u.img != nil }

// Placement returns the pending image's placement.
func (u *Uploader) Placement() Placement { return u.place }

// Load places img at its original size, centred in the current half.
func (u *Uploader) Load(img image.Image) error {
	if u.strip.Complete() {
		return ErrStripComplete
	}
	b := img.Bounds()
	u.img = img
	u.place = Placement{
		X:     (CanvasWidth - float64(b.Dx())) / 2,
		Y:     (HalfHeight - float64(b.Dy())) / 2,
		Scale: 1,
	}
	u.redraw()
	return nil
}

// SetPlacement moves the pending image. The scale is clamped.
func (u *Uploader) SetPlacement(p Placement) {
	if u.img == nil {
		return
	}
	p.Scale = clampScale(p.Scale)
	u.place = p
	u.redraw()
}

// ZoomIn scales the image by 1.2 about the centre of the half.
func (u *Uploader) ZoomIn() {
	u.zoomAbout(CanvasWidth/2.0, HalfHeight/2.0, u.place.Scale*buttonZoomFactor)
}

// ZoomOut scales the image by 1/1.2 about the centre of the half.
func (u *Uploader) ZoomOut() {
	u.zoomAbout(CanvasWidth/2.0, HalfHeight/2.0, u.place.Scale/buttonZoomFactor)
}

// Wheel zooms toward the canvas point (x, y). A negative deltaY zooms in.
// Wheel events outside the current half are ignored.
func (u *Uploader) Wheel(x, y, deltaY float64) {
	local, ok := u.local(sticker.Point{X: x, Y: y})
	if !ok {
		return
	}
	scale := u.place.Scale / wheelZoomFactor
	if deltaY < 0 {
		scale = u.place.Scale * wheelZoomFactor
	}
	u.zoomAbout(local.X, local.Y, scale)
}

// PointerDown starts a drag inside the current half, or a pinch for two
// touches.
func (u *Uploader) PointerDown(ev sticker.PointerEvent) {
	if u.img == nil || u.strip.Complete() {
		return
	}
	if t, ok := ev.(sticker.Touch); ok && len(t.Points) == 2 {
		u.lastPinch = distance(t.Points[0], t.Points[1])
		u.dragging = false
		return
	}
	if ev.TouchCount() > 1 {
		return
	}
	p, ok := ev.Primary()
	if !ok {
		return
	}
	if local, in := u.local(p); in {
		u.dragging = true
		u.dragStart = sticker.Point{X: local.X - u.place.X, Y: local.Y - u.place.Y}
	}
}

// PointerMove pans while dragging and zooms about the pinch midpoint for two
// touches.
func (u *Uploader) PointerMove(ev sticker.PointerEvent) {
	if u.img == nil || u.strip.Complete() {
		return
	}
	if t, ok := ev.(sticker.Touch); ok && len(t.Points) == 2 {
		d := distance(t.Points[0], t.Points[1])
		if u.lastPinch > 0 {
			mid := sticker.Point{X: (t.Points[0].X + t.Points[1].X) / 2, Y: (t.Points[0].Y + t.Points[1].Y) / 2}
			yOff := float64(u.strip.HalfRect().Min.Y)
			u.zoomAbout(mid.X, mid.Y-yOff, u.place.Scale*d/u.lastPinch)
		}
		u.lastPinch = d
		return
	}
	if !u.dragging || ev.TouchCount() > 1 {
		return
	}
	p, ok := ev.Primary()
	if !ok {
		return
	}
	yOff := float64(u.strip.HalfRect().Min.Y)
	u.place.X = p.X - u.dragStart.X
	u.place.Y = p.Y - yOff - u.dragStart.Y
	u.redraw()
}

// PointerUp ends the pinch when fewer than two touches remain and the drag
// when none remain.
func (u *Uploader) PointerUp(ev sticker.PointerEvent) {
	n := ev.TouchCount()
	if n < 2 {
		u.lastPinch = 0
	}
	if n == 0 {
		u.dragging = false
	}
}

// Confirm fixes the pending image into its half and advances the stage. The
// second confirmation overlays the frame.
func (u *Uploader) Confirm() error {
	if u.img == nil {
		return ErrNoImage
	}
	u.img = nil
	u.place = Placement{Scale: 1}
	u.dragging = false

	stage := u.strip.Advance()
	log.Info().Int("stage", stage).Msg("Uploaded photo confirmed")
	if stage == StageDone {
		u.strip.OverlayFrame(u.frame)
	}
	return nil
}

// Ready confirms a pending image, or, with nothing pending, writes the strip
// to the slot. It reports whether the strip was handed off.
func (u *Uploader) Ready(ctx context.Context) (bool, error) {
	if u.img != nil && !u.strip.Complete() {
		return false, u.Confirm()
	}
	url, err := u.strip.DataURL()
	if err != nil {
		return false, err
	}
	if err := u.slot.Put(ctx, handoff.KeyPhotoStrip, url); err != nil {
		return false, fmt.Errorf("failed to store photo strip: %w", err)
	}
	return true, nil
}

func (u *Uploader) zoomAbout(cx, cy, scale float64) {
	if u.img == nil || u.strip.Complete() {
		return
	}
	old := u.place.Scale
	scale = clampScale(scale)
	u.place.X = cx - (cx-u.place.X)*(scale/old)
	u.place.Y = cy - (cy-u.place.Y)*(scale/old)
	u.place.Scale = scale
	u.redraw()
}

// local converts a canvas point to half-relative coordinates and reports
// whether it lies in the current half.
func (u *Uploader) local(p sticker.Point) (sticker.Point, bool) {
	hr := u.strip.HalfRect()
	y0 := float64(hr.Min.Y)
	in := p.Y >= y0 && p.Y < y0+HalfHeight
	return sticker.Point{X: p.X, Y: p.Y - y0}, in
}

func (u *Uploader) redraw() {
	if u.img == nil {
		return
	}
	u.strip.ClearHalf()
	u.strip.DrawPlaced(u.img, u.place.X, u.place.Y, u.place.Scale)
}

func clampScale(s float64) float64 {
	return math.Max(MinUploadScale, math.Min(MaxUploadScale, s))
}

func distance(a, b sticker.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
