package render

import (
	"image"
	"image/color"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"

	"github.com/fpang/photobooth/internal/sticker"
)

// Selection decoration geometry, in sticker-local pixels.
const (
	OutlineWidth = 3.0
	HandleSize   = 20.0
	StalkWidth   = 2.0
	StalkLength  = 22.0
	KnobOffset   = 30.0
	KnobRadius   = 8.0
)

// SelectionColor is #555555.
var SelectionColor = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}

var outlineDash = []float64{10, 5}

// drawSelection draws the dashed outline, the corner handles, the stalk and
// the rotation knob in the sticker's rotated frame.
func drawSelection(dst draw.Image, s *sticker.Sticker) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, b)

	hw, hh := s.Width/2, s.Height/2

	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetColor(SelectionColor)
	dasher.SetStroke(fixedWidth(OutlineWidth), fixedWidth(4),
		rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, outlineDash, 0)
	addPolygon(dasher, s, []sticker.Point{
		{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh},
	})
	dasher.Draw()
	dasher.Clear()

	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(SelectionColor)
	half := HandleSize / 2
	for _, corner := range []sticker.Point{
		{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: -hw, Y: hh}, {X: hw, Y: hh},
	} {
		addPolygon(filler, s, []sticker.Point{
			{X: corner.X - half, Y: corner.Y - half},
			{X: corner.X + half, Y: corner.Y - half},
			{X: corner.X + half, Y: corner.Y + half},
			{X: corner.X - half, Y: corner.Y + half},
		})
	}

	knob := s.ToCanvas(sticker.Point{X: 0, Y: -hh - KnobOffset})
	rasterx.AddCircle(knob.X, knob.Y, KnobRadius, filler)
	filler.Draw()
	filler.Clear()

	stalk := rasterx.NewStroker(w, h, scanner)
	stalk.SetColor(SelectionColor)
	stalk.SetStroke(fixedWidth(StalkWidth), fixedWidth(4),
		rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter)
	from := s.ToCanvas(sticker.Point{X: 0, Y: -hh})
	to := s.ToCanvas(sticker.Point{X: 0, Y: -hh - StalkLength})
	stalk.Start(rasterx.ToFixedP(from.X, from.Y))
	stalk.Line(rasterx.ToFixedP(to.X, to.Y))
	stalk.Stop(false)
	stalk.Draw()
	stalk.Clear()
}

// addPolygon adds a closed polygon given in sticker-local coordinates.
func addPolygon(a rasterx.Adder, s *sticker.Sticker, local []sticker.Point) {
	for i, lp := range local {
		p := s.ToCanvas(lp)
		fp := rasterx.ToFixedP(p.X, p.Y)
		if i == 0 {
			a.Start(fp)
			continue
		}
		a.Line(fp)
	}
	a.Stop(true)
}

func fixedWidth(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

// SelectionBounds returns the integer bounding box of everything drawSelection
// may touch for s.
func SelectionBounds(s *sticker.Sticker) image.Rectangle {
	hw, hh := s.Width/2, s.Height/2
	pad := HandleSize/2 + OutlineWidth
	pts := []sticker.Point{
		{X: -hw - pad, Y: -hh - KnobOffset - KnobRadius - pad},
		{X: hw + pad, Y: -hh - KnobOffset - KnobRadius - pad},
		{X: hw + pad, Y: hh + pad},
		{X: -hw - pad, Y: hh + pad},
	}
	r := image.Rectangle{}
	for i, lp := range pts {
		p := s.ToCanvas(lp)
		pr := image.Rect(int(p.X)-1, int(p.Y)-1, int(p.X)+2, int(p.Y)+2)
		if i == 0 {
			r = pr
			continue
		}
		r = r.Union(pr)
	}
	return r
}
