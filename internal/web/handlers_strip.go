package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/capture"
	"github.com/fpang/photobooth/internal/decorate"
	"github.com/fpang/photobooth/internal/filehandler"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/metrics"
	"github.com/fpang/photobooth/internal/sticker"
)

type stickerEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type buttonEntry struct {
	Button   sticker.Button `json:"button"`
	Stickers []stickerEntry `json:"stickers"`
}

// GET /api/stickers
func (s *Server) handleStickers(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	var out []buttonEntry
	for _, b := range sticker.Buttons() {
		e := buttonEntry{Button: b}
		for _, name := range sticker.Variants(b) {
			e.Stickers = append(e.Stickers, stickerEntry{Name: name, Path: sticker.AssetPath(name)})
		}
		out = append(out, e)
	}
	respondJSON(w, http.StatusOK, out)
}

// GET  /api/strip  -> consume the composite as PNG
// POST /api/strip  -> multipart top, bottom [, facing, zoom, frame]
func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.takeStrip(w, r)
	case http.MethodPost:
		s.composeStrip(w, r)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) takeStrip(w http.ResponseWriter, r *http.Request) {
	dataURL, ok, err := s.slot.Take(r.Context(), handoff.KeyPhotoStrip)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read photo strip")
		httpError(w, http.StatusInternalServerError, "failed to read photo strip")
		return
	}
	if !ok {
		httpError(w, http.StatusNotFound, decorate.ErrNoPhoto.Error())
		return
	}
	data, _, err := handoff.DecodeBytes(dataURL)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "stored photo strip is corrupt")
		return
	}
	respondPNG(w, data, "no-store")
}

func (s *Server) composeStrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	top, bottom, ok := s.readHalves(w, r)
	if !ok {
		return
	}

	facing := capture.Facing(r.FormValue("facing"))
	switch facing {
	case "":
		facing = capture.FacingUser
	case capture.FacingUser, capture.FacingEnvironment:
	default:
		httpError(w, http.StatusBadRequest, "facing must be user or environment")
		return
	}
	zoom := 1.0
	if v := r.FormValue("zoom"); v != "" {
		z, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid zoom")
			return
		}
		zoom = z
	}
	if err := s.selectFrame(ctx, r.FormValue("frame")); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	cam := capture.NewCamera(capture.NewStillSource().AddFrames(facing, top, bottom), facing)
	if err := cam.Start(ctx); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	booth := capture.NewBooth(cam, s.frame(ctx), s.slot)
	defer booth.Close()
	cam.Zoom().Set(ctx, zoom)

	for i := 0; i < 2; i++ {
		if err := booth.Capture(ctx); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, capture.ErrFrameNotReady) {
				status = http.StatusBadRequest
			}
			httpError(w, status, err.Error())
			return
		}
	}

	metrics.New(metrics.Namespace).Dimension("Source", "camera").Count(metrics.StripComposed).Flush()
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"stage":  booth.Stage(),
		"facing": facing,
		"zoom":   cam.Zoom().Value(),
	})
}

// POST /api/strip/upload -> multipart top, bottom [, topPlacement, bottomPlacement, frame]
func (s *Server) handleStripUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	top, bottom, ok := s.readHalves(w, r)
	if !ok {
		return
	}
	if err := s.selectFrame(ctx, r.FormValue("frame")); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := capture.NewUploader(s.frame(ctx), s.slot)
	halves := []struct {
		img   image.Image
		field string
	}{
		{top, "topPlacement"},
		{bottom, "bottomPlacement"},
	}
	for _, h := range halves {
		if err := u.Load(h.img); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		if v := r.FormValue(h.field); v != "" {
			var p capture.Placement
			if err := json.Unmarshal([]byte(v), &p); err != nil {
				httpError(w, http.StatusBadRequest, "invalid "+h.field)
				return
			}
			u.SetPlacement(p)
		}
		if err := u.Confirm(); err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if _, err := u.Ready(ctx); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.New(metrics.Namespace).Dimension("Source", "upload").Count(metrics.StripUploaded).Flush()
	respondJSON(w, http.StatusCreated, map[string]interface{}{"stage": u.Stage()})
}

// readHalves parses the multipart body and decodes the top and bottom files.
func (s *Server) readHalves(w http.ResponseWriter, r *http.Request) (top, bottom image.Image, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		httpError(w, http.StatusBadRequest, "expected a multipart form with top and bottom images")
		return nil, nil, false
	}
	imgs := make([]image.Image, 2)
	for i, field := range []string{"top", "bottom"} {
		img, err := formImage(r, field)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return nil, nil, false
		}
		imgs[i] = img
	}
	return imgs[0], imgs[1], true
}

func formImage(r *http.Request, field string) (image.Image, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %s image", field)
	}
	defer f.Close()
	img, err := filehandler.DecodeImage(f, filepath.Ext(header.Filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return img, nil
}

// selectFrame records a frame choice for the next composite.
func (s *Server) selectFrame(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if _, err := s.assets.Frame(path); err != nil {
		return fmt.Errorf("unknown frame %q", path)
	}
	return s.slot.Put(ctx, handoff.KeySelectedFrame, path)
}

// frame loads the selected frame. A missing frame composes without overlay.
func (s *Server) frame(ctx context.Context) image.Image {
	path := handoff.FramePath(ctx, s.slot)
	img, err := s.assets.Frame(path)
	if err != nil {
		log.Warn().Err(err).Str("frame", path).Msg("Frame unavailable, composing without overlay")
		return nil
	}
	return img
}
