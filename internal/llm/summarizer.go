package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/markdown"

	"github.com/ppiankov/attributa/internal/model"
)

// Summarizer attaches an optional narrative to a report
type Summarizer struct {
	provider Provider
	config   Config
	logger   *slog.Logger
}

// NewSummarizer creates a summarizer; an empty provider name disables it
func NewSummarizer(cfg Config, logger *slog.Logger) (*Summarizer, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewSummarizerWithProvider(provider, cfg, logger), nil
}

// NewSummarizerWithProvider wraps an existing provider
func NewSummarizerWithProvider(provider Provider, cfg Config, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Summarizer{provider: provider, config: cfg, logger: logger}
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary produces a narrative for a finished report. It returns
// nil when disabled. Provider failures come back as a disabled narrative
// with warnings, never as an error.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) *model.NarrativeSummary {
	if !s.IsEnabled() {
		return nil
	}

	out := &model.NarrativeSummary{Provider: s.provider.Name(), Model: s.config.Model}

	if !s.provider.IsAvailable(ctx) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("provider %s is not available", s.provider.Name()))
		s.logger.Warn("narrative provider unavailable", "provider", s.provider.Name(), "document_id", report.DocumentID)
		return out
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:      report,
		AllowedURLs: AllowedURLs(report),
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("narrative generation failed: %v", err))
		s.logger.Warn("narrative generation failed", "provider", s.provider.Name(), "document_id", report.DocumentID, "error", err)
		return out
	}

	out.Enabled = true
	out.Model = resp.Model
	out.SummaryMD = resp.Summary
	if resp.TokensUsed > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("tokens used: %d", resp.TokensUsed))
	}
	return out
}

// AllowedURLs lists the verified URL references of a report
func AllowedURLs(r model.Report) []string {
	var urls []string
	for _, c := range r.Citations {
		if c.Kind == model.ReferenceURL && c.Status == model.CitationVerified {
			urls = append(urls, c.Reference)
		}
	}
	return urls
}

// RenderSeparateMarkdown renders a narrative as a standalone document,
// clearly marked as generated text. Disabled narratives render as "".
func RenderSeparateMarkdown(n *model.NarrativeSummary) string {
	if n == nil || !n.Enabled {
		return ""
	}

	md := markdown.NewMarkdown(io.Discard)
	md.H1("Narrative Summary")
	md.PlainText("")
	md.Warningf("GENERATED CONTENT: written by a language model from the report numbers. It does not change any score.")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Provider", n.Provider},
			{"Model", n.Model},
		},
	})
	md.PlainText("")

	if n.SummaryMD == "" {
		md.PlainText("_No summary returned._")
	} else {
		md.PlainText(n.SummaryMD)
	}
	md.PlainText("")

	if len(n.Warnings) > 0 {
		md.H2("Notes")
		md.PlainText("")
		md.BulletList(n.Warnings...)
	}
	return md.String()
}
