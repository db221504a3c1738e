package handoff

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

func slots(t *testing.T) map[string]Slot {
	fs, err := NewFileSlot(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSlot: %v", err)
	}
	return map[string]Slot{
		"memory": NewMemorySlot(),
		"file":   fs,
	}
}

func TestSlot_TakeConsumesOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range slots(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Put(ctx, KeyPhotoStrip, "first"); err != nil {
				t.Fatal(err)
			}
			if err := s.Put(ctx, KeyPhotoStrip, "second"); err != nil {
				t.Fatal(err)
			}

			v, ok, err := s.Take(ctx, KeyPhotoStrip)
			if err != nil || !ok || v != "second" {
				t.Fatalf("Take = (%q, %v, %v), want (second, true, nil)", v, ok, err)
			}
			if _, ok, _ := s.Take(ctx, KeyPhotoStrip); ok {
				t.Error("second Take should find nothing")
			}
		})
	}
}

func TestSlot_GetDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	for name, s := range slots(t) {
		t.Run(name, func(t *testing.T) {
			if got := FramePath(ctx, s); got != DefaultFramePath {
				t.Errorf("FramePath = %q, want default", got)
			}
			if err := s.Put(ctx, KeySelectedFrame, "Assets/frames/blue.png"); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 2; i++ {
				if got := FramePath(ctx, s); got != "Assets/frames/blue.png" {
					t.Errorf("FramePath #%d = %q", i, got)
				}
			}
		})
	}
}

func TestFileSlot_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Put(ctx, KeyPhotoStrip, "data:image/png;base64,AAAA"); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileSlot(dir)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := b.Take(ctx, KeyPhotoStrip)
	if err != nil || !ok || v != "data:image/png;base64,AAAA" {
		t.Errorf("Take after reopen = (%q, %v, %v)", v, ok, err)
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	url, err := EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	if url[:len(pngDataURLPrefix)] != pngDataURLPrefix {
		t.Fatalf("unexpected prefix: %q", url[:30])
	}

	got, err := Decode(url)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := got.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("pixel = (%d,%d,%d,%d)", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []string{
		"",
		"hello",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,notbase64",
		"data:image/png;base64,@@@",
		"data:image/png;base64,aGVsbG8=",
	}
	for _, in := range tests {
		if _, err := Decode(in); !errors.Is(err, ErrInvalidDataURL) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidDataURL", in, err)
		}
	}
}
