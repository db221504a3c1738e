// Package web serves the photobooth stages and share links over HTTP.
package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/decorate"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/share"
)

// DefaultMaxUploadBytes caps a multipart strip upload.
const DefaultMaxUploadBytes = 64 << 20

// Server holds the dependencies of the HTTP handlers. The slot and the share
// service are shared by concurrent requests; every stage object is built per
// request.
type Server struct {
	slot      handoff.Slot
	assets    *decorate.Assets
	shares    *share.Service
	maxUpload int64
}

// NewServer returns a server over slot, assets and shares. A nil shares
// disables the share routes.
func NewServer(slot handoff.Slot, assets *decorate.Assets, shares *share.Service) *Server {
	return &Server{
		slot:      slot,
		assets:    assets,
		shares:    shares,
		maxUpload: DefaultMaxUploadBytes,
	}
}

// Handler returns the routed handler wrapped in request logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/stickers", s.handleStickers)
	mux.HandleFunc("/api/strip", s.handleStrip)
	mux.HandleFunc("/api/strip/upload", s.handleStripUpload)
	mux.HandleFunc("/api/decorate", s.handleDecorate)
	mux.HandleFunc("/api/share", s.handleShareCreate)
	mux.HandleFunc("/api/share/", s.handleShareGet)
	mux.HandleFunc("/view.html", s.handleView)
	mux.HandleFunc("/api/qr", s.handleQR)
	mux.Handle("/Assets/", http.FileServer(http.Dir(s.assets.Root())))

	return withLogging(withCORS(mux))
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/view.html" {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func respondPNG(w http.ResponseWriter, data []byte, cache string) {
	w.Header().Set("Content-Type", "image/png")
	if cache != "" {
		w.Header().Set("Cache-Control", cache)
	}
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
