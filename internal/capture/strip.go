// Package capture composes the two-photo strip: camera or uploaded frames
// are cropped to the strip's aspect ratio, drawn into the top then bottom
// half, and finally covered by the frame overlay and handed to the
// decoration stage.
package capture

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/fpang/photobooth/internal/handoff"
)

// Strip geometry in pixels.
const (
	CanvasWidth  = 1176
	CanvasHeight = 1470
	HalfHeight   = CanvasHeight / 2
)

// Stages of a strip.
const (
	StageTop    = 0
	StageBottom = 1
	StageDone   = 2
)

var (
	// ErrStripComplete is returned when both halves are already filled.
	ErrStripComplete = errors.New("photo strip already complete")
	// ErrFrameNotReady is returned for a frame with no pixels.
	ErrFrameNotReady = errors.New("video not ready")
	// ErrNoImage is returned when confirming with nothing loaded.
	ErrNoImage = errors.New("no image loaded")
	// ErrNoStream is returned when capturing without an open camera.
	ErrNoStream = errors.New("camera not started")
)

// Strip is the strip canvas plus its stage counter. The stage only moves
// forward.
type Strip struct {
	canvas *image.RGBA
	stage  int
}

// NewStrip returns a transparent strip at StageTop.
func NewStrip() *Strip {
	return &Strip{canvas: image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))}
}

// Stage returns 0 (top), 1 (bottom) or 2 (done).
func (s *Strip) Stage() int { return s.stage }

// Complete reports whether both halves are filled.
func (s *Strip) Complete() bool { return s.stage >= StageDone }

// Image returns the canvas.
func (s *Strip) Image() *image.RGBA { return s.canvas }

// HalfRect returns the rectangle of the half for the current stage.
func (s *Strip) HalfRect() image.Rectangle {
	y := 0
	if s.stage != StageTop {
		y = HalfHeight
	}
	return image.Rect(0, y, CanvasWidth, y+HalfHeight)
}

// Advance moves to the next stage and returns it.
func (s *Strip) Advance() int {
	if s.stage < StageDone {
		s.stage++
	}
	return s.stage
}

// half returns the current half as a sub-image sharing the canvas pixels, so
// draws into it cannot spill into the other half.
func (s *Strip) half() draw.Image {
	return s.canvas.SubImage(s.HalfRect()).(*image.RGBA)
}

// ClearHalf makes the current half transparent.
func (s *Strip) ClearHalf() {
	draw.Draw(s.canvas, s.HalfRect(), image.Transparent, image.Point{}, draw.Src)
}

// DrawCrop scales the crop of src to fill the current half, mirrored
// horizontally when mirror is set.
func (s *Strip) DrawCrop(src image.Image, crop Rect, mirror bool) {
	hr := s.HalfRect()
	sb := src.Bounds()

	kx := float64(hr.Dx()) / crop.W
	ky := float64(hr.Dy()) / crop.H
	ox := float64(sb.Min.X) + crop.X
	oy := float64(sb.Min.Y) + crop.Y

	m := f64.Aff3{
		kx, 0, float64(hr.Min.X) - ox*kx,
		0, ky, float64(hr.Min.Y) - oy*ky,
	}
	if mirror {
		m[0] = -kx
		m[2] = float64(hr.Max.X) + ox*kx
	}

	draw.CatmullRom.Transform(s.half(), m, src, crop.Bounds(sb), draw.Src, nil)
}

// DrawPlaced draws img with its top-left at (x, y) relative to the current
// half, scaled by scale and clipped to the half.
func (s *Strip) DrawPlaced(img image.Image, x, y, scale float64) {
	hr := s.HalfRect()
	sb := img.Bounds()
	m := f64.Aff3{
		scale, 0, float64(hr.Min.X) + x - float64(sb.Min.X)*scale,
		0, scale, float64(hr.Min.Y) + y - float64(sb.Min.Y)*scale,
	}
	draw.BiLinear.Transform(s.half(), m, img, sb, draw.Over, nil)
}

// OverlayFrame draws frame over the whole canvas, scaled to fit.
func (s *Strip) OverlayFrame(frame image.Image) {
	if frame == nil {
		return
	}
	fb := frame.Bounds()
	cb := s.canvas.Bounds()
	if fb.Dx() == cb.Dx() && fb.Dy() == cb.Dy() {
		draw.Draw(s.canvas, cb, frame, fb.Min, draw.Over)
		return
	}
	draw.CatmullRom.Scale(s.canvas, cb, frame, fb, draw.Over, nil)
}

// DataURL returns the canvas as a PNG data URL.
func (s *Strip) DataURL() (string, error) {
	return handoff.EncodePNG(s.canvas)
}
