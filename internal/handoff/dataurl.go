package handoff

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	// Decoders for data URLs produced by other clients.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

const pngDataURLPrefix = "data:image/png;base64,"

// ErrInvalidDataURL is returned for strings that are not base64 image data URLs.
var ErrInvalidDataURL = errors.New("invalid image data URL")

// EncodePNG returns img as a PNG data URL.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBytes returns the payload and media type of a base64 data URL.
func DecodeBytes(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	mediaType, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mediaType, "image/") {
		return nil, "", ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, mediaType, nil
}

// Decode decodes an image data URL.
func Decode(dataURL string) (image.Image, error) {
	data, _, err := DecodeBytes(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return img, nil
}
