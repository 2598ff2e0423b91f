package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/collect"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/config"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/database"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/quality"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/section"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/source"
)

type stubAdapter struct{ hits []newsletter.Candidate }

func (stubAdapter) Name() string { return "stub" }

func (s stubAdapter) Fetch(context.Context, newsletter.SectionConfig, int) ([]newsletter.Candidate, error) {
	return s.hits, nil
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, cands []newsletter.Candidate) []newsletter.Verified {
	out := make([]newsletter.Verified, len(cands))
	for i, c := range cands {
		out[i] = newsletter.Verified{Candidate: c, Reachable: true}
	}
	return out
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, items []newsletter.Verified) []newsletter.Extracted {
	out := make([]newsletter.Extracted, len(items))
	for i, item := range items {
		out[i] = newsletter.Extracted{Verified: item, Body: "body"}
	}
	return out
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, cfg newsletter.SectionConfig, items []newsletter.Extracted) ([]newsletter.SummaryItem, error) {
	var out []newsletter.SummaryItem
	for _, item := range items {
		out = append(out, newsletter.SummaryItem{
			Title: item.Title, URL: item.URL, Summary: "s", Relevance: 7, SectionKey: cfg.Key,
		})
	}
	return out, nil
}

func (stubSummarizer) TLDR(context.Context, []newsletter.SummaryItem) []string { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Run:   config.Run{Days: 7, Language: "en", TopItems: 6, SectionWorkers: 2},
		Dedup: config.Dedup{TitleThreshold: 0.6},
		Sections: []newsletter.SectionConfig{
			{Key: "trending", Name: "Trending", ItemLimit: 5, RelevanceThreshold: 6, Adapters: []string{"stub"}},
		},
	}

	registry := source.Registry{}
	registry.Register(stubAdapter{hits: []newsletter.Candidate{
		{URL: "https://a.example/1", Title: "A briefing item"},
	}})

	tracker := quality.NewTracker(db)
	assembler := section.New(cfg, collect.New(registry), stubVerifier{}, stubExtractor{}, stubSummarizer{}, tracker)
	assembler.DryRun = true
	return New(cfg, assembler, tracker)
}

func TestHandleSections(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sections", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Sections []string `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sections) != 1 || body.Sections[0] != "trending" {
		t.Errorf("sections = %v", body.Sections)
	}
}

func TestHandleSection(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/section?key=trending", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result newsletter.SectionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Key != "trending" || len(result.Items) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleSectionBadKey(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/section?key=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSectionBadDays(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/section?key=trending&days=soon", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRender(t *testing.T) {
	srv := newTestServer(t)
	run := newsletter.RunResult{
		RunDate: "2026-09-01",
		Sections: []newsletter.SectionResult{
			{Key: "trending", Items: []newsletter.SummaryItem{
				{Title: "Item", URL: "https://a.example/1", Summary: "s", Relevance: 8},
			}},
		},
	}
	body, _ := json.Marshal(run)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(string(body))))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Trending") {
		t.Errorf("rendered HTML missing section name:\n%s", rec.Body.String())
	}
}

func TestHandleRenderRejectsGet(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/render", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleFeedbackAndQuality(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"url":"https://bad.example/story","rating":"down"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Feedback alone creates no score rows; record one so the dashboard has
	// something to show.
	srv.tracker.Record("https://bad.example/story", 8)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quality", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("quality status = %d", rec.Code)
	}
	var body struct {
		Domains map[string]database.DomainStat `json:"domains"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body.Domains["bad.example"]; !ok {
		t.Errorf("domains = %v", body.Domains)
	}
}

func TestHandleFeedbackMissingURL(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
