package collect

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/source"
)

// fakeAdapter returns canned candidates or a canned error.
type fakeAdapter struct {
	name string
	hits []newsletter.Candidate
	err  error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, _ newsletter.SectionConfig, _ int) ([]newsletter.Candidate, error) {
	return f.hits, f.err
}

func cand(url, title string) newsletter.Candidate {
	return newsletter.Candidate{URL: url, Title: title, Source: "test"}
}

func registryOf(adapters ...source.Adapter) source.Registry {
	r := source.Registry{}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func TestCollectMergesInDeclaredOrder(t *testing.T) {
	c := New(registryOf(
		&fakeAdapter{name: "alpha", hits: []newsletter.Candidate{cand("https://a.example/1", "A1"), cand("https://a.example/2", "A2")}},
		&fakeAdapter{name: "beta", hits: []newsletter.Candidate{cand("https://b.example/1", "B1")}},
	))
	cfg := newsletter.SectionConfig{Key: "test", Adapters: []string{"beta", "alpha"}}

	result := c.Collect(context.Background(), cfg, 7)

	var urls []string
	for _, h := range result.Candidates {
		urls = append(urls, h.URL)
	}
	want := []string{"https://b.example/1", "https://a.example/1", "https://a.example/2"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("candidate order = %v, want %v", urls, want)
	}
	if result.PerAdapter["alpha"] != 2 || result.PerAdapter["beta"] != 1 {
		t.Errorf("per-adapter counts = %v", result.PerAdapter)
	}
}

func TestCollectFailedAdapterIsContained(t *testing.T) {
	working := []newsletter.Candidate{cand("https://a.example/1", "A1")}
	also := []newsletter.Candidate{cand("https://c.example/1", "C1")}

	broken := New(registryOf(
		&fakeAdapter{name: "alpha", hits: working},
		&fakeAdapter{name: "beta", err: errors.New("connection refused")},
		&fakeAdapter{name: "gamma", hits: also},
	))
	healthy := New(registryOf(
		&fakeAdapter{name: "alpha", hits: working},
		&fakeAdapter{name: "beta"},
		&fakeAdapter{name: "gamma", hits: also},
	))
	cfg := newsletter.SectionConfig{Key: "test", Adapters: []string{"alpha", "beta", "gamma"}}

	got := broken.Collect(context.Background(), cfg, 7)
	want := healthy.Collect(context.Background(), cfg, 7)

	if !reflect.DeepEqual(got.Candidates, want.Candidates) {
		t.Errorf("surviving adapters should be unaffected by the failure:\ngot  %v\nwant %v", got.Candidates, want.Candidates)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "beta") {
		t.Errorf("expected one warning naming the failed adapter, got %v", got.Warnings)
	}
}

func TestCollectUnknownAdapterWarns(t *testing.T) {
	c := New(registryOf(&fakeAdapter{name: "alpha", hits: []newsletter.Candidate{cand("https://a.example/1", "A1")}}))
	cfg := newsletter.SectionConfig{Key: "test", Adapters: []string{"alpha", "nope"}}

	result := c.Collect(context.Background(), cfg, 7)
	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "nope") {
		t.Errorf("expected warning for unknown adapter, got %v", result.Warnings)
	}
}

func TestCollectDropsInvalidCandidates(t *testing.T) {
	c := New(registryOf(&fakeAdapter{name: "alpha", hits: []newsletter.Candidate{
		cand("https://a.example/1", "Good"),
		{URL: "", Title: "No URL"},
		{URL: "not-a-url", Title: "Bad URL"},
	}}))
	cfg := newsletter.SectionConfig{Key: "test", Adapters: []string{"alpha"}}

	result := c.Collect(context.Background(), cfg, 7)
	if len(result.Candidates) != 1 || result.Candidates[0].Title != "Good" {
		t.Errorf("invalid candidates should be dropped, got %v", result.Candidates)
	}
	if result.PerAdapter["alpha"] != 1 {
		t.Errorf("per-adapter count should exclude invalid hits, got %d", result.PerAdapter["alpha"])
	}
}
