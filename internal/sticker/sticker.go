// Package sticker implements the decoration engine of the photobooth: an
// ordered scene of transformable sticker images, rotated hit testing,
// selection with bring-to-front, drag, two-finger pinch (resize + rotate),
// double-tap and keyboard deletion, and keyboard nudges.
//
// The engine is single-threaded. A Controller owns one Scene and must only be
// driven from one goroutine at a time; every mutating handler finishes by
// asking its Renderer for a full redraw.
package sticker

import (
	"image"
	"math"
)

// Point is a position in canvas pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sticker is a user-placed decorative image. X and Y are the top-left corner
// of the un-rotated box; Rotation is in degrees, clockwise on screen, about the
// box centre.
type Sticker struct {
	Name     string      `json:"name"`
	Image    image.Image `json:"-"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`

	// Dragging is set while a pointer drag owns this sticker.
	Dragging bool `json:"-"`
}

// Center returns the centre of the sticker's box.
func (s *Sticker) Center() Point {
	return Point{X: s.X + s.Width/2, Y: s.Y + s.Height/2}
}

// Contains reports whether p lies inside the sticker's rotated box. The point
// is rotated back into the sticker's local frame about its centre and then
// tested against the half extents, so the answer always reflects the current
// geometry.
func (s *Sticker) Contains(p Point) bool {
	c := s.Center()
	dx := p.X - c.X
	dy := p.Y - c.Y

	if s.Rotation != 0 {
		rad := -s.Rotation * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		dx, dy = dx*cos-dy*sin, dx*sin+dy*cos
	}

	return math.Abs(dx) <= s.Width/2 && math.Abs(dy) <= s.Height/2
}

// ToCanvas maps a point in the sticker's local frame (origin at the centre,
// axes aligned with the un-rotated box) to canvas coordinates.
func (s *Sticker) ToCanvas(local Point) Point {
	c := s.Center()
	rad := s.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Point{
		X: c.X + local.X*cos - local.Y*sin,
		Y: c.Y + local.X*sin + local.Y*cos,
	}
}

// Scale multiplies width and height by f, keeping the top-left corner.
func (s *Sticker) Scale(f float64) {
	s.Width *= f
	s.Height *= f
}

// Rotate adds deg degrees to the rotation. The value is not normalised.
func (s *Sticker) Rotate(deg float64) {
	s.Rotation += deg
}
