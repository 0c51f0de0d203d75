// Package httpapi exposes the segmentation engine over HTTP for players and
// pipeline tooling that cannot speak MCP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/khamlab/thaiseg/engine"
	"github.com/khamlab/thaiseg/kit"
	"github.com/khamlab/thaiseg/subtitle"
)

// maxBodyBytes caps request bodies; a full feature film's subtitles fit in
// well under this.
const maxBodyBytes = 4 << 20

// Server wraps an engine with the HTTP surface.
type Server struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// New creates the HTTP surface. A nil logger selects slog.Default().
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{eng: eng, logger: logger}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/videos/{videoID}", func(r chi.Router) {
			r.Post("/segment", s.handleSegment)
			r.Post("/warmup", s.handleWarmup)
			r.Post("/merges", s.handleSetMerges)
			r.Put("/lines", s.handleSetLine)
		})
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Get("/stats", s.handleStats)
	})

	return r
}

// requestID tags every request with a UUID, echoed in X-Request-ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(r.Context(), id)
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", kit.GetRequestID(r.Context()))
	})
}

type segmentRequest struct {
	Text string `json:"text"`
}

type segmentResponse struct {
	VideoID string   `json:"video_id"`
	Spans   []string `json:"spans"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	var req segmentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, segmentResponse{
		VideoID: videoID,
		Spans:   s.eng.Segment(videoID, req.Text),
	})
}

// warmupRequest carries either pre-split lines or a raw SRT document.
type warmupRequest struct {
	Lines []string `json:"lines,omitempty"`
	SRT   string   `json:"srt,omitempty"`
}

type warmupResponse struct {
	VideoID string `json:"video_id"`
	Lines   int    `json:"lines"`
	Added   int    `json:"added"`
}

func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	var req warmupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := req.Lines
	if req.SRT != "" {
		cues, err := subtitle.ParseSRT(strings.NewReader(req.SRT))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		lines = append(lines, subtitle.Lines(cues)...)
	}
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("lines or srt is required"))
		return
	}

	added := s.eng.WarmUpVideo(r.Context(), videoID, lines)
	writeJSON(w, http.StatusOK, warmupResponse{VideoID: videoID, Lines: len(lines), Added: added})
}

type mergesRequest struct {
	Phrases []string `json:"phrases"`
}

func (s *Server) handleSetMerges(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	var req mergesRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Phrases) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("phrases is required"))
		return
	}
	added := s.eng.SetMergeHints(videoID, req.Phrases)
	writeJSON(w, http.StatusOK, map[string]any{"video_id": videoID, "added": added})
}

type lineRequest struct {
	Text  string   `json:"text"`
	Spans []string `json:"spans"`
}

func (s *Server) handleSetLine(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	var req lineRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.eng.SetLineSegmentation(videoID, req.Text, req.Spans); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Config())
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	// Layer the update over the current config so a partial document only
	// changes the fields it names, matching the YAML loader semantics.
	cfg := s.eng.Config()
	if err := readJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.eng.UpdateConfig(cfg)
	writeJSON(w, http.StatusOK, s.eng.Config())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Stats())
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
