// Package filehandler loads the image files the photobooth reads from disk:
// uploads, frames and sticker assets. Raster formats decode through the
// image registry (JPEG, PNG, GIF, WebP, BMP); SVG stickers are rasterised
// with oksvg. EXIF is read with imagemeta for upload logging.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions maps the extensions the photobooth reads to MIME
// types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
}

// ImageFile is an image on disk.
type ImageFile struct {
	Path     string
	MIMEType string
	Size     int64
	Metadata *ImageMetadata
}

// LoadImageFile stats path and reads its EXIF summary. Missing EXIF is not
// an error.
func LoadImageFile(filePath string) (*ImageFile, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", filePath)
	}

	f := &ImageFile{Path: filePath, MIMEType: mimeType, Size: info.Size()}
	if ext == ".jpg" || ext == ".jpeg" {
		meta, err := ExtractImageMetadataFile(filePath)
		if err != nil {
			log.Debug().Err(err).Str("path", filePath).Msg("No EXIF metadata")
		} else {
			f.Metadata = meta
		}
	}
	return f, nil
}

// GetMIMEType returns the MIME type for a lower-case extension.
func GetMIMEType(ext string) (string, error) {
	if mime, ok := SupportedImageExtensions[ext]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage reports whether ext is a supported image extension.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsSVG reports whether ext names an SVG file.
func IsSVG(ext string) bool {
	return strings.EqualFold(ext, ".svg")
}
