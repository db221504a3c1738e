package filehandler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultSVGSize is the raster size for an SVG without a usable viewBox.
const DefaultSVGSize = 256

// MaxImageBytes caps how much of one image file is read.
const MaxImageBytes = 32 << 20

// LoadImage decodes the image at path. SVG files are rasterised at their
// viewBox size.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return DecodeImage(f, filepath.Ext(path))
}

// DecodeImage decodes r. ext selects SVG rasterisation; any other value
// sniffs the raster format.
func DecodeImage(r io.Reader, ext string) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	if IsSVG(ext) {
		return RasterizeSVG(bytes.NewReader(data), 0, 0)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// RasterizeSVG draws an SVG into a w x h RGBA image. A zero w or h takes the
// viewBox size.
func RasterizeSVG(r io.Reader, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	if w <= 0 || h <= 0 {
		w, h = int(icon.ViewBox.W), int(icon.ViewBox.H)
		if w <= 0 || h <= 0 {
			w, h = DefaultSVGSize, DefaultSVGSize
		}
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
