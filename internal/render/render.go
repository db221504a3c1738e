// Package render paints a sticker scene over the photo strip composite.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/fpang/photobooth/internal/sticker"
)

// Renderer owns the output canvas and the base composite. It implements
// sticker.Renderer and is not safe for concurrent use.
type Renderer struct {
	canvas *image.RGBA
	base   image.Image
}

// New returns a renderer with a transparent width x height canvas.
func New(width, height int, base image.Image) *Renderer {
	return &Renderer{
		canvas: image.NewRGBA(image.Rect(0, 0, width, height)),
		base:   base,
	}
}

// SetBase replaces the composite drawn under the stickers.
func (r *Renderer) SetBase(base image.Image) {
	r.base = base
}

// Image returns the canvas. It is overwritten by the next Render.
func (r *Renderer) Image() *image.RGBA {
	return r.canvas
}

// Render clears the canvas, draws the base scaled to the canvas, then every
// sticker in paint order. The selected sticker gets its selection
// decoration drawn on top of its image.
func (r *Renderer) Render(scene *sticker.Scene) {
	bounds := r.canvas.Bounds()
	draw.Draw(r.canvas, bounds, image.Transparent, image.Point{}, draw.Src)

	if r.base != nil {
		bb := r.base.Bounds()
		if bb.Dx() == bounds.Dx() && bb.Dy() == bounds.Dy() {
			draw.Draw(r.canvas, bounds, r.base, bb.Min, draw.Src)
		} else {
			draw.CatmullRom.Scale(r.canvas, bounds, r.base, bb, draw.Src, nil)
		}
	}

	if scene == nil {
		return
	}

	selected := scene.Selected()
	for _, s := range scene.Stickers() {
		paintSticker(r.canvas, s)
		if s == selected {
			drawSelection(r.canvas, s)
		}
	}
}

// EncodePNG writes the canvas as PNG.
func (r *Renderer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.canvas); err != nil {
		return fmt.Errorf("failed to encode canvas: %w", err)
	}
	return nil
}

// PNG returns the canvas encoded as PNG.
func (r *Renderer) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stickerTransform maps source image pixels of s onto the canvas: scale to
// the sticker box, centre on the origin, rotate, then translate to the box
// centre.
func stickerTransform(s *sticker.Sticker) f64.Aff3 {
	sb := s.Image.Bounds()
	sx := s.Width / float64(sb.Dx())
	sy := s.Height / float64(sb.Dy())

	rad := s.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	c := s.Center()

	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	tx := c.X - cos*s.Width/2 + sin*s.Height/2
	ty := c.Y - sin*s.Width/2 - cos*s.Height/2

	minX, minY := float64(sb.Min.X), float64(sb.Min.Y)
	return f64.Aff3{
		a, b, tx - a*minX - b*minY,
		d, e, ty - d*minX - e*minY,
	}
}

func paintSticker(dst draw.Image, s *sticker.Sticker) {
	if s.Image == nil {
		return
	}
	sb := s.Image.Bounds()
	if sb.Empty() || s.Width <= 0 || s.Height <= 0 {
		log.Debug().Str("sticker", s.Name).Msg("Skipping empty sticker")
		return
	}
	draw.BiLinear.Transform(dst, stickerTransform(s), s.Image, sb, draw.Over, nil)
}
