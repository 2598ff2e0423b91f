// Package server exposes pipeline stages over a small JSON API: per-section
// generation, document rendering, reader feedback, and the source-quality
// dashboard.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/config"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/database"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/dedup"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/quality"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/render"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/section"
)

// Server is the HTTP API server.
type Server struct {
	cfg       *config.Config
	assembler *section.Assembler
	tracker   *quality.Tracker
	mux       *http.ServeMux
}

// New creates a server.
func New(cfg *config.Config, assembler *section.Assembler, tracker *quality.Tracker) *Server {
	s := &Server{cfg: cfg, assembler: assembler, tracker: tracker, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/sections", s.handleSections)
	s.mux.HandleFunc("/api/section", s.handleSection)
	s.mux.HandleFunc("/api/render", s.handleRender)
	s.mux.HandleFunc("/api/feedback", s.handleFeedback)
	s.mux.HandleFunc("/api/quality", s.handleQuality)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sections": s.cfg.SectionKeys()})
}

// handleSection runs the pipeline for one section. Pipeline failures degrade
// to an empty item list with a warning rather than a non-200: a rate-limit
// cascade must not mark every section red for the caller.
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" || s.cfg.Section(key) == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      fmt.Sprintf("invalid or missing 'key': %q", key),
			"valid_keys": s.cfg.SectionKeys(),
		})
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid 'days' parameter"})
			return
		}
		days = n
	}

	result := s.assembler.RunSectionDays(r.Context(), key, days, dedup.NewState(s.cfg.Dedup.TitleThreshold))
	if result.Items == nil {
		result.Items = []newsletter.SummaryItem{}
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRender turns a posted RunResult into the HTML document, verbatim.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}

	var run newsletter.RunResult
	if err := json.NewDecoder(r.Body).Decode(&run); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	html, err := render.HTML(&run, s.sectionNames())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// handleFeedback records a reader rating for an item's domain.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "POST required"})
		return
	}

	var body struct {
		URL    string `json:"url"`
		Rating string `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing 'url' parameter"})
		return
	}
	if body.Rating != "up" && body.Rating != "down" {
		body.Rating = "down"
	}

	s.tracker.RecordFeedback(body.URL, body.Rating)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "recorded",
		"url":    body.URL,
		"rating": body.Rating,
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	stats := s.tracker.DomainStats()
	if stats == nil {
		stats = map[string]database.DomainStat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": stats})
}

func (s *Server) sectionNames() map[string]string {
	names := make(map[string]string, len(s.cfg.Sections))
	for _, sec := range s.cfg.Sections {
		names[sec.Key] = sec.Name
	}
	return names
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing response: %v", err)
	}
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, assembler *section.Assembler, tracker *quality.Tracker) error {
	srv := New(cfg, assembler, tracker)
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
