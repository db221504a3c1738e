package decorate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/fpang/photobooth/internal/capture"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/metrics"
	"github.com/fpang/photobooth/internal/share"
	"github.com/fpang/photobooth/internal/sticker"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeLoader map[string]image.Image

func (f fakeLoader) Sticker(name string) (image.Image, error) {
	if img, ok := f[name]; ok {
		return img, nil
	}
	return nil, errors.New("missing " + name)
}

func allStickers() fakeLoader {
	l := fakeLoader{}
	for _, n := range sticker.Names() {
		l[n] = solid(150, 150, color.RGBA{R: 0xff, A: 0xff})
	}
	return l
}

func newStage(t *testing.T) *Stage {
	t.Helper()
	return New(solid(capture.CanvasWidth, capture.CanvasHeight, color.RGBA{B: 0xff, A: 0xff}), allStickers())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	slot := handoff.NewMemorySlot()

	if _, err := Open(ctx, slot, allStickers()); !errors.Is(err, ErrNoPhoto) {
		t.Fatalf("Open on empty slot = %v, want ErrNoPhoto", err)
	}

	url, err := handoff.EncodePNG(solid(capture.CanvasWidth, capture.CanvasHeight, color.RGBA{G: 0xff, A: 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	slot.Put(ctx, handoff.KeyPhotoStrip, url)

	st, err := Open(ctx, slot, allStickers())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := st.Image().RGBAAt(10, 10); got.G != 0xff || got.B != 0 {
		t.Errorf("base not rendered: %v", got)
	}
	if _, err := Open(ctx, slot, allStickers()); !errors.Is(err, ErrNoPhoto) {
		t.Errorf("second Open = %v, want ErrNoPhoto (slot is consumed once)", err)
	}
}

func TestStage_PressCycles(t *testing.T) {
	st := newStage(t)
	var names []string
	for i := 0; i < 3; i++ {
		s, err := st.Press(sticker.ButtonSeaweed)
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "seaweed1,seaweed2,seaweed1" {
		t.Errorf("names = %v", names)
	}
	if _, err := st.Press("shark"); err == nil {
		t.Error("unknown button should fail")
	}
}

func TestStage_Replay(t *testing.T) {
	st := newStage(t)
	script, err := ParseScript(strings.NewReader(`{"steps": [
		{"op": "add", "sticker": "fish"},
		{"op": "down", "x": 588, "y": 735},
		{"op": "move", "x": 688, "y": 735},
		{"op": "up"},
		{"op": "key", "key": "ArrowRight"},
		{"op": "button", "button": "bubble"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Replay(script); err != nil {
		t.Fatal(err)
	}

	stickers := st.Scene().Stickers()
	if len(stickers) != 2 {
		t.Fatalf("len = %d, want 2", len(stickers))
	}
	fish := stickers[0]
	if fish.X != 638 || fish.Y != 685 || fish.Rotation != 5 {
		t.Errorf("fish = %+v, want dragged to x=638 and rotated 5", fish)
	}
	if stickers[1].Name != "bubble1" || st.Scene().Selected() != stickers[1] {
		t.Errorf("bubble not added on top and selected")
	}
}

func TestStage_ReplayDoubleTap(t *testing.T) {
	st := newStage(t)
	no := false
	tap := []sticker.Point{{X: 588, Y: 735}}
	script := &Script{Steps: []Step{
		{Op: OpAdd, Sticker: "octopus"},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap},
		{Op: OpUp, Pointer: PointerTouch},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap, Confirm: &no},
	}}
	if err := st.Replay(script); err != nil {
		t.Fatal(err)
	}
	if st.Scene().Len() != 1 {
		t.Fatalf("declined double tap removed the sticker")
	}

	script = &Script{Steps: []Step{
		{Op: OpWait, MS: 1000},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap},
		{Op: OpUp, Pointer: PointerTouch},
		{Op: OpWait, MS: 100},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap},
	}}
	if err := st.Replay(script); err != nil {
		t.Fatal(err)
	}
	if st.Scene().Len() != 0 || st.Scene().Selected() != nil {
		t.Errorf("confirmed double tap: len = %d selected = %v", st.Scene().Len(), st.Scene().Selected())
	}
}

func TestStage_SlowTapsAreNotDoubleTap(t *testing.T) {
	st := New(nil, allStickers(), WithConfirmer(sticker.ConfirmFunc(func(string) bool {
		t.Fatal("confirm should not be asked")
		return false
	})))
	tap := []sticker.Point{{X: 588, Y: 735}}
	err := st.Replay(&Script{Steps: []Step{
		{Op: OpAdd, Sticker: "fish"},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap},
		{Op: OpUp, Pointer: PointerTouch},
		{Op: OpWait, MS: 300},
		{Op: OpDown, Pointer: PointerTouch, Touches: tap},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if st.Scene().Len() != 1 {
		t.Error("sticker removed")
	}
}

func TestParseScript_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown op", `{"steps":[{"op":"jump"}]}`},
		{"unknown sticker", `{"steps":[{"op":"add","sticker":"shark"}]}`},
		{"unknown button", `{"steps":[{"op":"button","button":"shark"}]}`},
		{"unknown pointer", `{"steps":[{"op":"down","pointer":"pen"}]}`},
		{"empty key", `{"steps":[{"op":"key"}]}`},
		{"negative wait", `{"steps":[{"op":"wait","ms":-1}]}`},
		{"unknown field", `{"steps":[{"op":"reset","color":"red"}]}`},
		{"not json", `steps`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScript(strings.NewReader(tt.body)); err == nil {
				t.Errorf("ParseScript(%s) succeeded", tt.body)
			}
		})
	}
}

func TestStage_ExportPNGDeselects(t *testing.T) {
	st := newStage(t)
	if _, err := st.Add("fish"); err != nil {
		t.Fatal(err)
	}
	if st.Scene().Selected() == nil {
		t.Fatal("new sticker should be selected")
	}

	var buf bytes.Buffer
	if err := st.ExportPNG(&buf); err != nil {
		t.Fatal(err)
	}
	if st.Scene().Selected() != nil {
		t.Error("export left a selection")
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != capture.CanvasWidth || b.Dy() != capture.CanvasHeight {
		t.Errorf("bounds = %v", b)
	}
	if r, _, _, _ := img.At(588, 735).RGBA(); r>>8 != 0xff {
		t.Error("sticker missing from export")
	}
}

func TestStage_ExportPDF(t *testing.T) {
	st := newStage(t)
	var buf bytes.Buffer
	if err := st.Export(&buf, FormatPDF); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestFitSheet(t *testing.T) {
	x, y, w, h := fitSheet(capture.CanvasWidth, capture.CanvasHeight)
	if w != 180 || h != 225 || x != 15 || y != 36 {
		t.Errorf("fitSheet = (%v, %v, %v, %v)", x, y, w, h)
	}
	_, _, w, h = fitSheet(100, 1000)
	if h != 267 || w != 26.7 {
		t.Errorf("tall fit = %v x %v", w, h)
	}
}

func TestStage_ExportBundle(t *testing.T) {
	st := newStage(t)
	st.Add("axolotl")

	var buf bytes.Buffer
	if err := st.Export(&buf, FormatBundle); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	zr.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())

	files := map[string][]byte{}
	for _, f := range zr.File {
		if f.Method != zipMethodZstd {
			t.Errorf("%s method = %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name], _ = io.ReadAll(rc)
		rc.Close()
	}
	if _, err := png.Decode(bytes.NewReader(files[ExportFilename])); err != nil {
		t.Errorf("bundle PNG: %v", err)
	}
	var doc SceneDocument
	if err := json.Unmarshal(files["scene.json"], &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Stickers) != 1 || doc.Stickers[0].Name != "axolotl" || doc.Width != capture.CanvasWidth {
		t.Errorf("scene = %+v", doc)
	}
}

func TestStage_ExportUnknownFormat(t *testing.T) {
	if err := newStage(t).Export(io.Discard, "gif"); err == nil {
		t.Error("expected error")
	}
}

type fakeSharer struct{ got []byte }

func (f *fakeSharer) Share(_ context.Context, data []byte) (*share.Result, error) {
	f.got = data
	return &share.Result{ID: "photo_1"}, nil
}

func TestStage_Share(t *testing.T) {
	st := newStage(t)
	st.Add("fish")
	f := &fakeSharer{}
	res, err := st.Share(context.Background(), f)
	if err != nil || res.ID != "photo_1" {
		t.Fatalf("Share = %+v, %v", res, err)
	}
	if _, err := png.Decode(bytes.NewReader(f.got)); err != nil {
		t.Errorf("shared bytes are not PNG: %v", err)
	}
	if st.Scene().Selected() != nil {
		t.Error("share left a selection")
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAssets(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, filepath.FromSlash(sticker.AssetPath("fish"))), solid(30, 20, color.RGBA{A: 0xff}))
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 10"><rect width="40" height="10" fill="#f00"/></svg>`
	svgPath := filepath.Join(root, filepath.FromSlash(sticker.StickerDir), "octopus.svg")
	if err := os.WriteFile(svgPath, []byte(svg), 0o644); err != nil {
		t.Fatal(err)
	}
	a := NewAssets(root)

	img, err := a.Sticker("fish")
	if err != nil || img.Bounds().Dx() != 30 {
		t.Fatalf("Sticker(fish) = %v, %v", img, err)
	}
	img, err = a.Sticker("octopus")
	if err != nil || img.Bounds().Dx() != 40 || img.Bounds().Dy() != 10 {
		t.Fatalf("SVG fallback = %v, %v", img, err)
	}
	if _, err := a.Sticker("axolotl"); err == nil {
		t.Error("missing asset should fail")
	}
	if _, err := a.Sticker("shark"); err == nil {
		t.Error("unknown sticker should fail")
	}
	if _, err := a.Open("../../etc/passwd"); !errors.Is(err, ErrAssetPath) {
		t.Errorf("escaping path = %v, want ErrAssetPath", err)
	}

	os.RemoveAll(filepath.Join(root, "Assets"))
	if _, err := a.Sticker("fish"); err != nil {
		t.Errorf("cached sticker: %v", err)
	}
}
