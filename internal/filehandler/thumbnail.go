package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the thumbnail bound for shared photos.
const DefaultThumbnailMaxDimension = 400

// Thumbnail scales img to fit maxDimension on its longer side, keeping the
// aspect ratio. Images already within the bound are returned as is.
func Thumbnail(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := calculateThumbnailDimensions(b.Dx(), b.Dy(), maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// ThumbnailPNG decodes data, scales it and encodes the result as PNG.
func ThumbnailPNG(data []byte, maxDimension int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(img, maxDimension)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width > height {
		return maxDimension, max(1, int(float64(height)*float64(maxDimension)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxDimension)/float64(height))), maxDimension
}
