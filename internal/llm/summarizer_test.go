package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	available bool
	resp      *SummarizeResponse
	err       error
	got       SummarizeRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(context.Context) bool { return f.available }

func (f *fakeProvider) Summarize(_ context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestSummarizer_Disabled(t *testing.T) {
	s, err := NewSummarizer(Config{}, nil)
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	if s.IsEnabled() {
		t.Fatal("expected disabled summarizer")
	}
	if s.ProviderName() != "" {
		t.Errorf("expected empty provider name, got %q", s.ProviderName())
	}
	if n := s.GenerateSummary(context.Background(), sampleReport()); n != nil {
		t.Errorf("expected nil narrative, got %+v", n)
	}

	var nilSummarizer *Summarizer
	if nilSummarizer.IsEnabled() {
		t.Error("nil summarizer must report disabled")
	}
}

func TestSummarizer_Unavailable(t *testing.T) {
	s := NewSummarizerWithProvider(&fakeProvider{available: false}, Config{Model: "m"}, nil)

	n := s.GenerateSummary(context.Background(), sampleReport())
	if n == nil || n.Enabled {
		t.Fatalf("expected disabled narrative, got %+v", n)
	}
	if len(n.Warnings) != 1 || !strings.Contains(n.Warnings[0], "not available") {
		t.Errorf("unexpected warnings: %v", n.Warnings)
	}
}

func TestSummarizer_ProviderError(t *testing.T) {
	p := &fakeProvider{available: true, err: ErrCitationLeak}
	s := NewSummarizerWithProvider(p, Config{}, nil)

	n := s.GenerateSummary(context.Background(), sampleReport())
	if n.Enabled {
		t.Fatal("failed narrative must not be enabled")
	}
	if len(n.Warnings) == 0 || !strings.Contains(n.Warnings[0], ErrCitationLeak.Error()) {
		t.Errorf("expected failure warning, got %v", n.Warnings)
	}
}

func TestSummarizer_Success(t *testing.T) {
	p := &fakeProvider{
		available: true,
		resp:      &SummarizeResponse{Summary: "Mostly uncertain.", Model: "fake-1", TokensUsed: 42},
	}
	s := NewSummarizerWithProvider(p, Config{Model: "fake-1", MaxTokens: 300}, nil)

	n := s.GenerateSummary(context.Background(), sampleReport())
	if !n.Enabled || n.SummaryMD != "Mostly uncertain." || n.Provider != "fake" || n.Model != "fake-1" {
		t.Fatalf("unexpected narrative: %+v", n)
	}
	if len(p.got.AllowedURLs) != 1 || p.got.AllowedURLs[0] != "https://example.com/1" {
		t.Errorf("only verified URLs should be allowed, got %v", p.got.AllowedURLs)
	}
	if p.got.MaxTokens != 300 {
		t.Errorf("expected max tokens forwarded, got %d", p.got.MaxTokens)
	}
	if len(n.Warnings) != 1 || n.Warnings[0] != "tokens used: 42" {
		t.Errorf("unexpected warnings: %v", n.Warnings)
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("nil narrative should render empty")
	}

	p := &fakeProvider{available: true, resp: &SummarizeResponse{Summary: "Two segments, one fallback.", Model: "fake-1"}}
	n := NewSummarizerWithProvider(p, Config{}, nil).GenerateSummary(context.Background(), sampleReport())

	out := RenderSeparateMarkdown(n)
	for _, want := range []string{"# Narrative Summary", "GENERATED CONTENT", "fake-1", "Two segments, one fallback."} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}

	p.err = errors.New("boom")
	failed := NewSummarizerWithProvider(p, Config{}, nil).GenerateSummary(context.Background(), sampleReport())
	if RenderSeparateMarkdown(failed) != "" {
		t.Error("disabled narrative should render empty")
	}
}
