package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/snapview/snapview/internal/render"
)

// requestIDKey is the context key for the per-request correlation ID.
type requestIDKey struct{}

// requestID returns the correlation ID attached by the access-log middleware.
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// routes builds the request router. Handler dependencies are the Server's
// explicit fields; nothing is captured implicitly.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.withAccessLog("index", false, s.handleIndex))
	mux.HandleFunc("GET /image", s.withAccessLog("viewer", false, s.handleViewer))
	mux.HandleFunc("GET /image/{delay}", s.withAccessLog("viewer", false, s.handleViewer))
	mux.HandleFunc("GET "+ImagePath, s.withAccessLog("snapshot", true, s.handleSnapshot))
	mux.HandleFunc("POST "+ShutdownPath, s.withAccessLog("shutdown", false, s.handleShutdown))
	return mux
}

// handleIndex redirects to the viewer page with the configured default delay.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	target := "/image?delay=" + render.FormatDelay(s.cfg.DefaultDelaySecs)
	http.Redirect(w, r, target, http.StatusFound)
}

// handleViewer renders the viewer page.
//
// The refresh delay may be overridden per request, either as a path segment
// (/image/2.5) or a query parameter (/image?delay=2.5). A value that does
// not parse as a number falls back to the configured default.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	delay := s.cfg.DefaultDelaySecs
	raw := r.PathValue("delay")
	if raw == "" {
		raw = r.URL.Query().Get("delay")
	}
	if raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			delay = v
		}
	}

	page, err := s.renderer.Render(render.Page{
		CameraName: s.cfg.CameraName,
		DelaySecs:  delay,
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		ImagePath:  ImagePath,
	})
	if err != nil {
		s.logger.Error("viewer page render failed",
			"error", err,
			"request_id", requestID(r),
		)
		time.Sleep(templateFailurePause)
		http.Error(w, "viewer page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, page); err != nil {
		s.logger.Error("failed to write viewer response", "error", err, "request_id", requestID(r))
	}
}

// handleSnapshot serves the latest frame as raw image bytes.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.frames.Snapshot()
	if err != nil {
		s.logger.Error("snapshot encode failed",
			"error", err,
			"request_id", requestID(r),
		)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write snapshot response", "error", err, "request_id", requestID(r))
	}
}

// handleShutdown is the second phase of the stop handshake.
//
// The stop call arms the lifecycle first and then POSTs here; an unarmed POST
// (anything other than the stop handshake) is answered but performs no
// shutdown. When armed, the state is finalized before the listener is torn
// down so the serve loop does not schedule a restart.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !s.lifecycle.ReadyToStop() || !s.lifecycle.MarkStopped() {
		io.WriteString(w, "Not ready to stop")
		return
	}

	io.WriteString(w, "Shutting down...")
	go s.shutdownListener()
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withAccessLog wraps a handler with structured access logging.
//
// Every request gets a correlation ID (also attached to the request context
// so error logs inside handlers can reference it). Routes marked suppressible
// log at debug level unless verbose logging was requested: the snapshot route
// is hit once per refresh by every polling client.
func (s *Server) withAccessLog(route string, suppressible bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)

		level := slog.LevelInfo
		if suppressible && !s.cfg.Verbose {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", id,
		)
	}
}
