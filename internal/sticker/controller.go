package sticker

import (
	"image"
	"time"

	"github.com/rs/zerolog/log"
)

// Tuning for gestures and keyboard nudges.
const (
	DoubleTapWindow = 300 * time.Millisecond
	RotateStep      = 5.0
	ScaleUpStep     = 1.1
	ScaleDownStep   = 0.9

	// A new sticker is shown at 1/NewStickerDivisor of its image size.
	NewStickerDivisor = 1.5

	deletePrompt = "Delete this sticker?"
)

// Renderer repaints the whole scene. The controller calls it synchronously at
// the end of every handler that changed something.
type Renderer interface {
	Render(scene *Scene)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(scene *Scene)

// Render calls f(scene).
func (f RenderFunc) Render(scene *Scene) { f(scene) }

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f(prompt).
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for double-tap detection.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithConfirmer sets the double-tap delete confirmation.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirm = cf }
}

// WithRenderer sets the renderer called after every mutation.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// Controller is the decoration stage's event state: the scene, the drag
// offset, the gesture state and the last tap time. It is not safe for
// concurrent use.
type Controller struct {
	width, height float64

	scene      *Scene
	gesture    GestureState
	dragOffset Point
	lastTap    time.Time

	now      func() time.Time
	confirm  Confirmer
	renderer Renderer
}

// NewController returns a controller for a width x height canvas. Without a
// confirmer, double-tap deletes are always approved.
func NewController(width, height int, opts ...Option) *Controller {
	c := &Controller{
		width:   float64(width),
		height:  float64(height),
		scene:   NewScene(),
		gesture: Idle{},
		now:     time.Now,
		confirm: ConfirmFunc(func(string) bool { return true }),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scene returns the controller's scene.
func (c *Controller) Scene() *Scene { return c.scene }

// Gesture returns the current two-finger gesture state.
func (c *Controller) Gesture() GestureState { return c.gesture }

// Size returns the canvas dimensions.
func (c *Controller) Size() (int, int) { return int(c.width), int(c.height) }

// Redraw asks the renderer for a full repaint.
func (c *Controller) Redraw() {
	if c.renderer != nil {
		c.renderer.Render(c.scene)
	}
}

// AddSticker places img at 1/1.5 of its size around the canvas centre, on top
// of every other sticker, and selects it.
func (c *Controller) AddSticker(name string, img image.Image) *Sticker {
	b := img.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())

	s := &Sticker{
		Name:   name,
		Image:  img,
		X:      c.width/2 - iw/3,
		Y:      c.height/2 - ih/3,
		Width:  iw / NewStickerDivisor,
		Height: ih / NewStickerDivisor,
	}
	c.scene.Add(s)
	c.scene.SetSelected(s)

	log.Debug().Str("sticker", name).Int("count", c.scene.Len()).Msg("Sticker added")
	c.Redraw()
	return s
}

// Reset removes every sticker.
func (c *Controller) Reset() {
	c.scene.Reset()
	c.gesture = Idle{}
	c.Redraw()
}

// PointerDown handles mousedown and touchstart.
func (c *Controller) PointerDown(ev PointerEvent) {
	p, ok := ev.Primary()
	if !ok {
		return
	}

	switch e := ev.(type) {
	case Touch:
		n := len(e.Points)
		if n != 1 {
			c.endDrag()
		}

		if n == 1 {
			now := c.now()
			if now.Sub(c.lastTap) < DoubleTapWindow {
				c.doubleTap(p)
				c.lastTap = time.Time{}
				return
			}
			c.lastTap = now
		}

		if n == 2 && c.scene.Selected() != nil {
			c.startPinch(e.Points)
			return
		}

		if n == 1 {
			c.selectAt(p)
		}

	case Mouse:
		c.selectAt(p)
	}
}

// PointerMove handles mousemove and touchmove.
func (c *Controller) PointerMove(ev PointerEvent) {
	sel := c.scene.Selected()

	if t, ok := ev.(Touch); ok && len(t.Points) == 2 && sel != nil {
		if pinch, ok := c.gesture.(*Pinching); ok && pinch.InitialDistance > 0 {
			ratio := touchDistance(t.Points) / pinch.InitialDistance
			sel.Width = pinch.InitialWidth * ratio
			sel.Height = pinch.InitialHeight * ratio

			angle := touchAngle(t.Points)
			sel.Rotate(angle - pinch.PrevAngle)
			pinch.PrevAngle = angle
		}
		c.Redraw()
		return
	}

	if sel == nil || !sel.Dragging {
		return
	}
	p, ok := ev.Primary()
	if !ok {
		return
	}
	sel.X = p.X - c.dragOffset.X
	sel.Y = p.Y - c.dragOffset.Y
	c.Redraw()
}

// PointerUp handles mouseup, mouseleave, touchend and touchcancel. For touch
// events the remaining touches decide whether a pinch survives.
func (c *Controller) PointerUp(ev PointerEvent) {
	c.endDrag()
	if ev.TouchCount() < 2 {
		c.gesture = Idle{}
	}
}

// KeyDown applies keyboard shortcuts to the selected sticker. It reports
// whether the key was handled.
func (c *Controller) KeyDown(key string) bool {
	sel := c.scene.Selected()
	if sel == nil {
		return false
	}

	switch key {
	case KeyDelete, KeyBackspace:
		c.scene.Remove(sel)
		c.scene.ClearSelection()
		log.Debug().Str("sticker", sel.Name).Msg("Sticker deleted from keyboard")
	case KeyArrowLeft:
		sel.Rotate(-RotateStep)
	case KeyArrowRight:
		sel.Rotate(RotateStep)
	case "+", "=":
		sel.Scale(ScaleUpStep)
	case "-", "_":
		sel.Scale(ScaleDownStep)
	default:
		return false
	}

	c.Redraw()
	return true
}

func (c *Controller) selectAt(p Point) {
	if _, s := c.scene.HitTest(p); s != nil {
		c.scene.Select(s)
		s.Dragging = true
		c.dragOffset = Point{X: p.X - s.X, Y: p.Y - s.Y}
		c.Redraw()
		return
	}
	c.scene.ClearSelection()
	c.Redraw()
}

func (c *Controller) doubleTap(p Point) {
	_, s := c.scene.HitTest(p)
	if s == nil {
		return
	}
	if !c.confirm.Confirm(deletePrompt) {
		log.Debug().Str("sticker", s.Name).Msg("Sticker delete declined")
		return
	}
	c.scene.Remove(s)
	c.scene.ClearSelection()
	log.Debug().Str("sticker", s.Name).Msg("Sticker deleted by double tap")
	c.Redraw()
}

func (c *Controller) startPinch(pts []Point) {
	sel := c.scene.Selected()
	c.gesture = &Pinching{
		InitialDistance: touchDistance(pts),
		PrevAngle:       touchAngle(pts),
		InitialWidth:    sel.Width,
		InitialHeight:   sel.Height,
	}
}

func (c *Controller) endDrag() {
	if sel := c.scene.Selected(); sel != nil {
		sel.Dragging = false
	}
}
