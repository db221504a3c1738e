package sticker

import "math"

// GestureState is the two-finger gesture state: Idle or Pinching.
type GestureState interface {
	gestureState()
}

// Idle means no pinch is in progress.
type Idle struct{}

func (Idle) gestureState() {}

// Pinching holds what was recorded when two fingers came down on a selected
// sticker. PrevAngle is updated on every move so rotation accumulates the
// per-frame angle delta.
type Pinching struct {
	InitialDistance float64
	PrevAngle       float64
	InitialWidth    float64
	InitialHeight   float64
}

func (*Pinching) gestureState() {}

// touchDistance is the distance between the first two touches.
func touchDistance(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	dx := pts[0].X - pts[1].X
	dy := pts[0].Y - pts[1].Y
	return math.Sqrt(dx*dx + dy*dy)
}

// touchAngle is the angle in degrees of the vector from the first touch to
// the second.
func touchAngle(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	dx := pts[1].X - pts[0].X
	dy := pts[1].Y - pts[0].Y
	return math.Atan2(dy, dx) * 180 / math.Pi
}
