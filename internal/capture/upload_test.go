package capture

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/sticker"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestUploader_LoadCentersAtOriginalSize(t *testing.T) {
	u := NewUploader(nil, handoff.NewMemorySlot())
	if err := u.Load(splitFrame(200, 100)); err != nil {
		t.Fatal(err)
	}
	p := u.Placement()
	if !near(p.X, 488) || !near(p.Y, 317.5) || p.Scale != 1 {
		t.Errorf("placement = %+v, want {488 317.5 1}", p)
	}
	if got := u.Strip().Image().RGBAAt(500, 350); !sameColor(got, red) {
		t.Errorf("loaded image not drawn: %v", got)
	}
}

func TestUploader_ButtonZoomAboutCenter(t *testing.T) {
	u := NewUploader(nil, handoff.NewMemorySlot())
	u.Load(splitFrame(200, 100))

	u.ZoomIn()
	p := u.Placement()
	if !near(p.Scale, 1.2) || !near(p.X, 588-100*1.2) {
		t.Errorf("after ZoomIn placement = %+v", p)
	}

	for i := 0; i < 30; i++ {
		u.ZoomIn()
	}
	if u.Placement().Scale != MaxUploadScale {
		t.Errorf("scale = %v, want clamped to %v", u.Placement().Scale, MaxUploadScale)
	}
	for i := 0; i < 60; i++ {
		u.ZoomOut()
	}
	if u.Placement().Scale != MinUploadScale {
		t.Errorf("scale = %v, want clamped to %v", u.Placement().Scale, MinUploadScale)
	}
}

func TestUploader_WheelOnlyInCurrentHalf(t *testing.T) {
	u := NewUploader(nil, handoff.NewMemorySlot())
	u.Load(splitFrame(200, 100))

	u.Wheel(100, HalfHeight+100, -1)
	if u.Placement().Scale != 1 {
		t.Fatalf("wheel in the other half changed scale to %v", u.Placement().Scale)
	}

	u.Wheel(488, 317.5, -1)
	p := u.Placement()
	if !near(p.Scale, 1.1) || !near(p.X, 488) || !near(p.Y, 317.5) {
		t.Errorf("zoom toward the image corner should pin it: %+v", p)
	}
}

func TestUploader_DragAndPinch(t *testing.T) {
	u := NewUploader(nil, handoff.NewMemorySlot())
	u.Load(splitFrame(200, 100))

	u.PointerDown(sticker.Mouse{X: 500, Y: 320})
	u.PointerMove(sticker.Mouse{X: 510, Y: 330})
	u.PointerUp(sticker.Mouse{})
	p := u.Placement()
	if !near(p.X, 498) || !near(p.Y, 327.5) {
		t.Errorf("after drag placement = %+v", p)
	}

	u.PointerMove(sticker.Mouse{X: 900, Y: 700})
	if !near(u.Placement().X, 498) {
		t.Error("move after release should not drag")
	}

	u.PointerDown(sticker.Touch{Points: []sticker.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}})
	u.PointerMove(sticker.Touch{Points: []sticker.Point{{X: 0, Y: 0}, {X: 200, Y: 0}}})
	if !near(u.Placement().Scale, 2) {
		t.Errorf("pinch scale = %v, want 2", u.Placement().Scale)
	}
}

func TestUploader_DragStartsOnlyInCurrentHalf(t *testing.T) {
	u := NewUploader(nil, handoff.NewMemorySlot())
	u.Load(splitFrame(200, 100))

	u.PointerDown(sticker.Mouse{X: 500, Y: HalfHeight + 20})
	u.PointerMove(sticker.Mouse{X: 600, Y: HalfHeight + 40})
	if !near(u.Placement().X, 488) {
		t.Errorf("drag started outside the half: %+v", u.Placement())
	}
}

func TestUploader_ConfirmAndReady(t *testing.T) {
	ctx := context.Background()
	slot := handoff.NewMemorySlot()
	u := NewUploader(cornerFrame(), slot)

	if err := u.Confirm(); !errors.Is(err, ErrNoImage) {
		t.Fatalf("Confirm with nothing loaded = %v, want ErrNoImage", err)
	}

	u.Load(splitFrame(200, 100))
	done, err := u.Ready(ctx)
	if err != nil || done {
		t.Fatalf("Ready with a pending image = (%v, %v), want confirm only", done, err)
	}
	if u.Stage() != StageBottom || u.Pending() {
		t.Fatalf("stage = %d pending = %v", u.Stage(), u.Pending())
	}

	u.Load(splitFrame(200, 100))
	if err := u.Confirm(); err != nil {
		t.Fatal(err)
	}
	if u.Stage() != StageDone {
		t.Fatalf("stage = %d, want 2", u.Stage())
	}
	if got := u.Strip().Image().RGBAAt(5, 5); !sameColor(got, green) {
		t.Errorf("frame not overlaid: %v", got)
	}
	if err := u.Load(splitFrame(10, 10)); !errors.Is(err, ErrStripComplete) {
		t.Errorf("Load after completion = %v, want ErrStripComplete", err)
	}

	done, err = u.Ready(ctx)
	if err != nil || !done {
		t.Fatalf("Ready = (%v, %v), want handed off", done, err)
	}
	if _, ok, _ := slot.Take(ctx, handoff.KeyPhotoStrip); !ok {
		t.Error("strip not written to slot")
	}
}
