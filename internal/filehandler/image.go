package filehandler

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata is the EXIF summary logged for uploaded photos.
type ImageMetadata struct {
	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractImageMetadata reads EXIF from r. Only the metadata blocks are read,
// not the pixel data.
func ExtractImageMetadata(r io.ReadSeeker) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	m := &ImageMetadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}
	// DateTimeOriginal > CreateDate > ModifyDate
	for _, t := range []time.Time{exifData.DateTimeOriginal(), exifData.CreateDate(), exifData.ModifyDate()} {
		if !t.IsZero() {
			m.DateTaken, m.HasDate = t, true
			break
		}
	}
	return m, nil
}

// ExtractImageMetadataFile is ExtractImageMetadata on a file.
func ExtractImageMetadataFile(filePath string) (*ImageMetadata, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := ExtractImageMetadata(f)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", filePath).
		Bool("has_date", m.HasDate).
		Str("camera", m.Camera()).
		Msg("Image metadata extracted")
	return m, nil
}

// Camera returns "make model", or "" when neither is known.
func (m *ImageMetadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Summary is a one-line description for logs and CLI output.
func (m *ImageMetadata) Summary() string {
	var parts []string
	if c := m.Camera(); c != "" {
		parts = append(parts, c)
	}
	if m.HasDate {
		parts = append(parts, m.DateTaken.Format("2006-01-02 15:04"))
	}
	if len(parts) == 0 {
		return "no camera metadata"
	}
	return strings.Join(parts, ", ")
}
