// Package decorate is the decoration page: it takes the composite out of the
// hand-off slot, lets a sticker.Controller edit the scene over it, and
// exports or shares the result.
package decorate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/capture"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/metrics"
	"github.com/fpang/photobooth/internal/render"
	"github.com/fpang/photobooth/internal/share"
	"github.com/fpang/photobooth/internal/sticker"
)

// ErrNoPhoto is returned by Open when the slot holds no composite.
var ErrNoPhoto = errors.New("No photo found!")

// Export file names.
const (
	ExportFilename = "fish-photobooth.png"
	PDFFilename    = "fish-photobooth.pdf"
	BundleFilename = "fish-photobooth.zip"
	sceneFilename  = "scene.json"
)

// Export formats.
const (
	FormatPNG    = "png"
	FormatPDF    = "pdf"
	FormatBundle = "zip"
)

// zipMethodZstd is the ZIP method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

// A4 portrait sheet for the print export, in millimetres.
const (
	sheetWidth  = 210.0
	sheetHeight = 297.0
	sheetMargin = 15.0
)

// replayEpoch seeds the stage clock. It only has to be far from the zero
// time so the first tap is never taken for a double tap.
var replayEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Sharer stores a finished PNG and returns its link.
type Sharer interface {
	Share(ctx context.Context, data []byte) (*share.Result, error)
}

var _ Sharer = (*share.Service)(nil)

// Option configures a Stage.
type Option func(*Stage)

// WithConfirmer sets who answers the double-tap delete prompt when a step
// carries no answer of its own. The default approves every delete.
func WithConfirmer(c sticker.Confirmer) Option {
	return func(s *Stage) { s.confirm = c }
}

// Stage is one decoration session. It is not safe for concurrent use.
type Stage struct {
	ctrl     *sticker.Controller
	renderer *render.Renderer
	catalog  *sticker.Catalog
	loader   StickerLoader

	clock   time.Time
	confirm sticker.Confirmer
	answer  *bool
}

// Open consumes the composite from slot and starts a stage over it. The slot
// entry is cleared even when decoding fails.
func Open(ctx context.Context, slot handoff.Slot, loader StickerLoader, opts ...Option) (*Stage, error) {
	dataURL, ok, err := slot.Take(ctx, handoff.KeyPhotoStrip)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo strip: %w", err)
	}
	if !ok {
		return nil, ErrNoPhoto
	}
	base, err := handoff.Decode(dataURL)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo strip: %w", err)
	}
	return New(base, loader, opts...), nil
}

// New starts a stage over base, which is scaled to the strip size.
func New(base image.Image, loader StickerLoader, opts ...Option) *Stage {
	s := &Stage{
		renderer: render.New(capture.CanvasWidth, capture.CanvasHeight, base),
		catalog:  sticker.NewCatalog(),
		loader:   loader,
		clock:    replayEpoch,
		confirm:  sticker.ConfirmFunc(func(string) bool { return true }),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctrl = sticker.NewController(capture.CanvasWidth, capture.CanvasHeight,
		sticker.WithRenderer(s.renderer),
		sticker.WithClock(func() time.Time { return s.clock }),
		sticker.WithConfirmer(sticker.ConfirmFunc(s.confirmDelete)),
	)
	s.ctrl.Redraw()
	return s
}

// Controller returns the sticker controller driving the scene.
func (s *Stage) Controller() *sticker.Controller { return s.ctrl }

// Scene returns the sticker scene.
func (s *Stage) Scene() *sticker.Scene { return s.ctrl.Scene() }

// Image returns the last rendered canvas.
func (s *Stage) Image() *image.RGBA { return s.renderer.Image() }

// Render repaints the canvas.
func (s *Stage) Render() { s.ctrl.Redraw() }

// Press handles a sticker button, cycling through its variants.
func (s *Stage) Press(b sticker.Button) (*sticker.Sticker, error) {
	name, err := s.catalog.Next(b)
	if err != nil {
		return nil, err
	}
	return s.Add(name)
}

// Add places the named sticker on top of the scene and selects it.
func (s *Stage) Add(name string) (*sticker.Sticker, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("no sticker loader for %q", name)
	}
	img, err := s.loader.Sticker(name)
	if err != nil {
		return nil, err
	}
	return s.ctrl.AddSticker(name, img), nil
}

// Replay drives the controller through script in order and stops at the
// first failing step.
func (s *Stage) Replay(script *Script) error {
	if script == nil {
		return nil
	}
	for i, step := range script.Steps {
		if err := s.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	log.Debug().
		Int("steps", len(script.Steps)).
		Int("stickers", s.Scene().Len()).
		Msg("Script replayed")
	return nil
}

func (s *Stage) apply(step Step) error {
	s.answer = step.Confirm
	defer func() { s.answer = nil }()

	switch step.Op {
	case OpAdd:
		_, err := s.Add(step.Sticker)
		return err
	case OpButton:
		_, err := s.Press(step.Button)
		return err
	case OpReset:
		s.ctrl.Reset()
		return nil
	case OpWait:
		s.clock = s.clock.Add(step.wait())
		return nil
	case OpKey:
		s.ctrl.KeyDown(step.Key)
		return nil
	}

	ev, err := step.event()
	if err != nil {
		return err
	}
	switch step.Op {
	case OpDown:
		s.ctrl.PointerDown(ev)
	case OpMove:
		s.ctrl.PointerMove(ev)
	case OpUp:
		s.ctrl.PointerUp(ev)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func (s *Stage) confirmDelete(prompt string) bool {
	if s.answer != nil {
		return *s.answer
	}
	return s.confirm.Confirm(prompt)
}

// finish clears the selection and repaints so the selection outline never
// reaches an export.
func (s *Stage) finish() *image.RGBA {
	s.Scene().ClearSelection()
	s.ctrl.Redraw()
	return s.renderer.Image()
}

// PNG renders the final image and encodes it.
func (s *Stage) PNG() ([]byte, error) {
	start := time.Now()
	s.finish()
	data, err := s.renderer.PNG()
	if err != nil {
		return nil, err
	}
	metrics.New(metrics.Namespace).Since(metrics.RenderLatencyMs, start).Flush()
	return data, nil
}

// ExportPNG writes the final image as PNG, the download format.
func (s *Stage) ExportPNG(w io.Writer) error {
	data, err := s.PNG()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	s.recordExport(FormatPNG, len(data))
	return nil
}

// ExportPDF writes an A4 print sheet with the final image centred inside the
// margins.
func (s *Stage) ExportPDF(w io.Writer) error {
	data, err := s.PNG()
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Fish Photobooth", true)
	pdf.SetCreator("photobooth", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("strip", opts, bytes.NewReader(data))
	x, y, iw, ih := fitSheet(capture.CanvasWidth, capture.CanvasHeight)
	pdf.ImageOptions("strip", x, y, iw, ih, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	s.recordExport(FormatPDF, buf.Len())
	return nil
}

// fitSheet returns the largest w x h box with the image's aspect ratio that
// fits the printable area, centred on the sheet.
func fitSheet(pw, ph int) (x, y, w, h float64) {
	maxW, maxH := sheetWidth-2*sheetMargin, sheetHeight-2*sheetMargin
	w = maxW
	h = w * float64(ph) / float64(pw)
	if h > maxH {
		h = maxH
		w = h * float64(pw) / float64(ph)
	}
	return (sheetWidth - w) / 2, (sheetHeight - h) / 2, w, h
}

// SceneDocument is the scene.json entry of a bundle.
type SceneDocument struct {
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Stickers   []*sticker.Sticker `json:"stickers"`
	ExportedAt time.Time          `json:"exportedAt"`
}

// ExportBundle writes a zip holding the final PNG and the scene as JSON.
// Entries are Zstandard compressed.
func (s *Stage) ExportBundle(w io.Writer) error {
	data, err := s.PNG()
	if err != nil {
		return err
	}
	scene, err := json.MarshalIndent(SceneDocument{
		Width:      capture.CanvasWidth,
		Height:     capture.CanvasHeight,
		Stickers:   s.Scene().Stickers(),
		ExportedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scene: %w", err)
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))

	for _, entry := range []struct {
		name string
		body []byte
	}{
		{ExportFilename, data},
		{sceneFilename, scene},
	} {
		header := &zip.FileHeader{Name: entry.name, Method: zipMethodZstd}
		header.SetModTime(time.Now())
		ew, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create ZIP entry for %s: %w", entry.name, err)
		}
		if _, err := ew.Write(entry.body); err != nil {
			return fmt.Errorf("write to ZIP for %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close ZIP writer: %w", err)
	}
	s.recordExport(FormatBundle, int(cw.n))
	return nil
}

// Export writes the final image in format (png, pdf or zip).
func (s *Stage) Export(w io.Writer, format string) error {
	switch format {
	case "", FormatPNG:
		return s.ExportPNG(w)
	case FormatPDF:
		return s.ExportPDF(w)
	case FormatBundle:
		return s.ExportBundle(w)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// Share renders the final image and hands it to sharer.
func (s *Stage) Share(ctx context.Context, sharer Sharer) (*share.Result, error) {
	data, err := s.PNG()
	if err != nil {
		return nil, err
	}
	return sharer.Share(ctx, data)
}

func (s *Stage) recordExport(format string, size int) {
	metrics.New(metrics.Namespace).
		Dimension("Format", format).
		Count(metrics.DecorateExport).
		Property("stickers", s.Scene().Len()).
		Property("bytes", size).
		Flush()
	log.Info().
		Str("format", format).
		Int("stickers", s.Scene().Len()).
		Int("bytes", size).
		Msg("Decoration exported")
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
