package capture

import (
	"image"
	"math"
)

// TargetAspect is the width/height ratio of one strip half.
const TargetAspect = float64(CanvasWidth) / float64(HalfHeight)

// Rect is a source rectangle in fractional pixels, relative to the frame's
// top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Bounds returns the integer rectangle covering r inside a frame with
// bounds fb.
func (r Rect) Bounds(fb image.Rectangle) image.Rectangle {
	x0 := fb.Min.X + int(math.Floor(r.X))
	y0 := fb.Min.Y + int(math.Floor(r.Y))
	x1 := fb.Min.X + int(math.Ceil(r.X+r.W))
	y1 := fb.Min.Y + int(math.Ceil(r.Y+r.H))
	return image.Rect(x0, y0, x1, y1).Intersect(fb)
}

// CenterCrop returns the largest centred region of a w x h frame with the
// strip half's aspect ratio. A wider frame loses its sides, a taller one its
// top and bottom. With zoom > 1 the region shrinks by 1/zoom about its
// centre.
func CenterCrop(w, h int, zoom float64) Rect {
	fw, fh := float64(w), float64(h)

	var r Rect
	if fw/fh > TargetAspect {
		r.H = fh
		r.W = fh * TargetAspect
		r.X = (fw - r.W) / 2
	} else {
		r.W = fw
		r.H = fw / TargetAspect
		r.Y = (fh - r.H) / 2
	}

	if zoom > 1 {
		nw, nh := r.W/zoom, r.H/zoom
		r.X += (r.W - nw) / 2
		r.Y += (r.H - nh) / 2
		r.W, r.H = nw, nh
	}
	return r
}
