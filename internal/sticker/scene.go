package sticker

// Scene is the paint-ordered sticker list plus the current selection. Later
// entries paint on top. The selected sticker, when non-nil, is always an
// element of the list.
type Scene struct {
	stickers []*Sticker
	selected *Sticker
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// Stickers returns the stickers in paint order. The slice is a copy; the
// stickers themselves are shared.
func (sc *Scene) Stickers() []*Sticker {
	out := make([]*Sticker, len(sc.stickers))
	copy(out, sc.stickers)
	return out
}

// Len returns the number of stickers.
func (sc *Scene) Len() int { return len(sc.stickers) }

// Selected returns the selected sticker or nil.
func (sc *Scene) Selected() *Sticker { return sc.selected }

// Add appends s on top of the paint order.
func (sc *Scene) Add(s *Sticker) {
	sc.stickers = append(sc.stickers, s)
}

// HitTest returns the index and sticker of the visually topmost sticker
// containing p, scanning from the end of the list. It returns -1, nil when
// nothing is hit.
func (sc *Scene) HitTest(p Point) (int, *Sticker) {
	for i := len(sc.stickers) - 1; i >= 0; i-- {
		if sc.stickers[i].Contains(p) {
			return i, sc.stickers[i]
		}
	}
	return -1, nil
}

// Select marks s as selected and moves it to the end of the list. It returns
// false and leaves the scene untouched if s is not in the scene.
func (sc *Scene) Select(s *Sticker) bool {
	i := sc.indexOf(s)
	if i < 0 {
		return false
	}
	sc.stickers = append(sc.stickers[:i], sc.stickers[i+1:]...)
	sc.stickers = append(sc.stickers, s)
	sc.selected = s
	return true
}

// SetSelected marks s as selected without changing paint order. Used for
// freshly added stickers, which are already on top.
func (sc *Scene) SetSelected(s *Sticker) {
	if s == nil || sc.indexOf(s) >= 0 {
		sc.selected = s
	}
}

// ClearSelection drops the selection.
func (sc *Scene) ClearSelection() {
	sc.selected = nil
}

// Remove deletes s from the list. If s was selected the selection is cleared.
// It reports whether s was found.
func (sc *Scene) Remove(s *Sticker) bool {
	i := sc.indexOf(s)
	if i < 0 {
		return false
	}
	sc.stickers = append(sc.stickers[:i], sc.stickers[i+1:]...)
	if sc.selected == s {
		sc.selected = nil
	}
	return true
}

// Reset removes every sticker and clears the selection.
func (sc *Scene) Reset() {
	sc.stickers = nil
	sc.selected = nil
}

func (sc *Scene) indexOf(s *Sticker) int {
	for i, v := range sc.stickers {
		if v == s {
			return i
		}
	}
	return -1
}
