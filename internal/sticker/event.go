package sticker

// PointerEvent is a pointer input. It is either a Mouse or a Touch; the
// controller dispatches on the concrete type.
type PointerEvent interface {
	// Primary is the point used for hit testing and dragging.
	Primary() (Point, bool)
	// TouchCount is the number of active touches, 0 for a mouse.
	TouchCount() int

	pointerEvent()
}

// Mouse is a mouse event at a canvas position.
type Mouse struct {
	X, Y float64
}

// Primary returns the mouse position.
func (m Mouse) Primary() (Point, bool) { return Point{X: m.X, Y: m.Y}, true }

// TouchCount is always 0 for a mouse.
func (Mouse) TouchCount() int { return 0 }

func (Mouse) pointerEvent() {}

// Touch carries the touches that are active after the event. For an end
// event this is the set of fingers still on the surface.
type Touch struct {
	Points []Point
}

// Primary returns the first touch, if any.
func (t Touch) Primary() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[0], true
}

// TouchCount returns len(Points).
func (t Touch) TouchCount() int { return len(t.Points) }

func (Touch) pointerEvent() {}

// Key names understood by Controller.KeyDown. They match DOM KeyboardEvent.key.
const (
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)
