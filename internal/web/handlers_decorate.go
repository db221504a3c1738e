package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/decorate"
)

// POST /api/decorate?format=png|pdf|zip  body: JSON event script
func (s *Server) handleDecorate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	format := r.URL.Query().Get("format")
	contentType, filename, ok := exportType(format)
	if !ok {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	script := &decorate.Script{}
	if r.ContentLength != 0 {
		var err error
		script, err = decorate.ParseScript(http.MaxBytesReader(w, r.Body, s.maxUpload))
		if err != nil && !errors.Is(err, io.EOF) {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		if script == nil {
			script = &decorate.Script{}
		}
	}

	stage, err := decorate.Open(r.Context(), s.slot, s.assets)
	if errors.Is(err, decorate.ErrNoPhoto) {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to open decoration stage")
		httpError(w, http.StatusInternalServerError, "failed to open photo strip")
		return
	}
	if err := stage.Replay(script); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := stage.Export(&buf, format); err != nil {
		log.Error().Err(err).Str("format", format).Msg("Export failed")
		httpError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

func exportType(format string) (contentType, filename string, ok bool) {
	switch format {
	case "", decorate.FormatPNG:
		return "image/png", decorate.ExportFilename, true
	case decorate.FormatPDF:
		return "application/pdf", decorate.PDFFilename, true
	case decorate.FormatBundle:
		return "application/zip", decorate.BundleFilename, true
	}
	return "", "", false
}
