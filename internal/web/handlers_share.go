package web

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/filehandler"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/share"
)

type shareResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	QR        string    `json:"qr"`
	Fallback  bool      `json:"fallback"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// POST /api/share  body: PNG
func (s *Server) handleShareCreate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.shares == nil {
		httpError(w, http.StatusServiceUnavailable, "sharing is not configured")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.shares.MaxBytes()+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	res, err := s.shares.Share(r.Context(), data)
	switch {
	case errors.Is(err, share.ErrTooLarge):
		httpError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, share.ErrInvalidImage):
		httpError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("Share failed")
		httpError(w, http.StatusInternalServerError, "failed to share photo")
		return
	}

	qr, err := handoff.EncodePNG(res.QR)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode QR code")
		return
	}
	respondJSON(w, http.StatusCreated, shareResponse{
		ID:        res.ID,
		URL:       res.URL,
		QR:        qr,
		Fallback:  res.Fallback,
		ExpiresAt: res.ExpiresAt,
	})
}

// GET /api/share/{id}[?size=thumb]
func (s *Server) handleShareGet(w http.ResponseWriter, r *http.Request) {
	s.serveShare(w, r, strings.TrimPrefix(r.URL.Path, "/api/share/"))
}

// GET /view.html?id=
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.serveShare(w, r, r.URL.Query().Get("id"))
}

func (s *Server) serveShare(w http.ResponseWriter, r *http.Request, id string) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.shares == nil {
		httpError(w, http.StatusServiceUnavailable, "sharing is not configured")
		return
	}

	thumb := r.URL.Query().Get("size") == "thumb"
	if !thumb {
		link, err := s.shares.DirectURL(r.Context(), id)
		switch {
		case err == nil && link != "":
			http.Redirect(w, r, link, http.StatusFound)
			return
		case errors.Is(err, share.ErrMissingID), errors.Is(err, share.ErrNotFound):
			shareLookupError(w, id, err)
			return
		case err != nil:
			log.Warn().Err(err).Str("shareId", id).Msg("Direct link failed, serving bytes")
		}
	}

	data, _, err := s.shares.Lookup(r.Context(), id)
	if err != nil {
		shareLookupError(w, id, err)
		return
	}

	if thumb {
		small, err := filehandler.ThumbnailPNG(data, filehandler.DefaultThumbnailMaxDimension)
		if err != nil {
			log.Warn().Err(err).Str("shareId", id).Msg("Failed to generate thumbnail")
			httpError(w, http.StatusInternalServerError, "thumbnail generation failed")
			return
		}
		data = small
	}
	respondPNG(w, data, "public, max-age=3600")
}

func shareLookupError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, share.ErrMissingID):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, share.ErrNotFound):
		httpError(w, http.StatusNotFound, "Photo not found or expired")
	default:
		log.Error().Err(err).Str("shareId", id).Msg("Share lookup failed")
		httpError(w, http.StatusInternalServerError, "failed to load photo")
	}
}

// GET /api/qr?url=
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	link, err := share.NormalizeURL(r.URL.Query().Get("url"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, fallback := share.Code(link)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode QR code")
		return
	}
	if fallback {
		w.Header().Set("X-QR-Fallback", "true")
	}
	respondPNG(w, buf.Bytes(), "public, max-age=86400")
}
