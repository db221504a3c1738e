package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/fpang/photobooth/internal/sticker"
)

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func patterned(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8(x ^ y), A: 0xff})
		}
	}
	return img
}

// near allows for rounding in the resampling and rasterizing paths.
func near(a, b color.RGBA) bool {
	d := func(x, y uint8) bool { return x-y < 3 || y-x < 3 }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

func TestRender_NoStickersIsPixelIdentical(t *testing.T) {
	base := patterned(60, 40)

	// Round-trip through PNG, the same way the composite travels between stages.
	var buf bytes.Buffer
	if err := png.Encode(&buf, base); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	r := New(60, 40, decoded)
	r.Render(sticker.NewScene())

	out := r.Image()
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			if got, want := out.RGBAAt(x, y), base.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRender_ScalesBaseToCanvas(t *testing.T) {
	r := New(40, 40, solid(10, 10, red))
	r.Render(nil)

	got := r.Image().RGBAAt(20, 20)
	if got.R < 0xf0 || got.G > 0x10 || got.A < 0xf0 {
		t.Errorf("center pixel = %v, want red", got)
	}
}

func TestRender_PaintsSticker(t *testing.T) {
	sc := sticker.NewScene()
	sc.Add(&sticker.Sticker{Name: "dot", Image: solid(10, 10, red), X: 20, Y: 10, Width: 20, Height: 20})

	r := New(100, 100, solid(100, 100, white))
	r.Render(sc)

	if got := r.Image().RGBAAt(30, 20); !near(got, red) {
		t.Errorf("inside sticker = %v, want red", got)
	}
	if got := r.Image().RGBAAt(5, 5); got != white {
		t.Errorf("outside sticker = %v, want white", got)
	}
}

func TestRender_RotatesAboutCenter(t *testing.T) {
	sc := sticker.NewScene()
	sc.Add(&sticker.Sticker{Name: "bar", Image: solid(40, 10, red), X: 30, Y: 45, Width: 40, Height: 10, Rotation: 90})

	r := New(100, 100, solid(100, 100, white))
	r.Render(sc)

	if got := r.Image().RGBAAt(50, 35); !near(got, red) {
		t.Errorf("rotated bar should cover (50,35), got %v", got)
	}
	if got := r.Image().RGBAAt(35, 50); got != white {
		t.Errorf("rotated bar should leave (35,50) clear, got %v", got)
	}
}

func TestRender_SelectionDecoration(t *testing.T) {
	sc := sticker.NewScene()
	s := &sticker.Sticker{Name: "dot", Image: solid(4, 4, red), X: 40, Y: 60, Width: 20, Height: 20}
	sc.Add(s)

	r := New(100, 100, solid(100, 100, white))
	r.Render(sc)
	if got := r.Image().RGBAAt(50, 30); got != white {
		t.Fatalf("unselected sticker should have no knob, got %v", got)
	}

	sc.Select(s)
	r.Render(sc)

	checks := []struct {
		name string
		x, y int
	}{
		{"knob center", 50, 30},
		{"top-left handle", 40, 60},
		{"bottom-right handle", 59, 79},
	}
	for _, c := range checks {
		if got := r.Image().RGBAAt(c.x, c.y); !near(got, SelectionColor) {
			t.Errorf("%s (%d,%d) = %v, want %v", c.name, c.x, c.y, got, SelectionColor)
		}
	}

	// Decoration stays within its bounds.
	bounds := SelectionBounds(s)
	out := r.Image()
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if image.Pt(x, y).In(bounds) {
				continue
			}
			if got := out.RGBAAt(x, y); got != white {
				t.Fatalf("pixel (%d,%d) outside selection bounds = %v", x, y, got)
			}
		}
	}
}

func TestStickerTransform(t *testing.T) {
	s := &sticker.Sticker{Image: solid(10, 5, red), X: 100, Y: 200, Width: 40, Height: 20}

	m := stickerTransform(s)
	apply := func(u, v float64) (float64, float64) {
		return m[0]*u + m[1]*v + m[2], m[3]*u + m[4]*v + m[5]
	}

	x, y := apply(0, 0)
	if math.Abs(x-100) > 1e-9 || math.Abs(y-200) > 1e-9 {
		t.Errorf("origin maps to (%v,%v), want (100,200)", x, y)
	}
	x, y = apply(10, 5)
	if math.Abs(x-140) > 1e-9 || math.Abs(y-220) > 1e-9 {
		t.Errorf("far corner maps to (%v,%v), want (140,220)", x, y)
	}

	s.Rotation = 180
	m = stickerTransform(s)
	x, y = apply(0, 0)
	if math.Abs(x-140) > 1e-9 || math.Abs(y-220) > 1e-9 {
		t.Errorf("half turn origin maps to (%v,%v), want (140,220)", x, y)
	}
}

func TestPNG(t *testing.T) {
	r := New(8, 8, solid(8, 8, red))
	r.Render(nil)

	data, err := r.PNG()
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("width = %d, want 8", img.Bounds().Dx())
	}
}
