// Package llm produces an optional narrative summary of a finished report.
// The narrative never feeds back into scores, and a provider failure only
// adds a warning.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

// ErrCitationLeak is returned when a model cites a URL outside the allowlist
var ErrCitationLeak = errors.New("narrative cites a URL outside the report")

// systemPrompt frames every provider call
const systemPrompt = "You summarize Attributa authorship-likelihood reports. Scores are probabilities, never verdicts."

// Provider is one LLM backend
type Provider interface {
	Name() string
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the input for one narrative
type SummarizeRequest struct {
	Report      model.Report
	AllowedURLs []string // The only URLs the narrative may cite
	Prompt      string   // Overrides BuildPrompt when set
	Model       string
	MaxTokens   int
}

// SummarizeResponse is the provider output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds provider settings
type Config struct {
	Provider  string // openai, anthropic, ollama, "" (disabled)
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel builds a provider config from the application config
func ConfigFromModel(cfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxTokens:  cfg.MaxTokens,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}
}

// NewProvider creates the configured provider; an empty name returns nil
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}

// BuildPrompt describes the report for the model
func BuildPrompt(r model.Report, allowedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Summarize this authorship analysis in 3-4 sentences.

Rules:
1. Scores estimate the likelihood that text was machine generated. Never state that text IS or IS NOT AI written.
2. Mention segments where analysis fell back to neutral values.
3. Only cite URLs from this list:%s
4. Do not speculate beyond the numbers below.

Document: %s
Mean score: %.2f (0 = human-like, 1 = machine-like)
Segments: %d, fallback signals: %d
`, joinURLs(allowedURLs), r.Summary, r.MeanScore(), len(r.Segments), r.FallbackCount())

	b.WriteString("\nPer segment:\n")
	for i, seg := range r.Segments {
		if i >= 15 {
			fmt.Fprintf(&b, "... and %d more segments\n", len(r.Segments)-15)
			break
		}
		s, ok := r.Scores[seg.ID]
		if !ok {
			continue
		}
		watermark := "n/a"
		if sig, ok := r.Signals[seg.ID]; ok && sig.Watermark != nil {
			watermark = fmt.Sprintf("p=%.3f", sig.Watermark.PValue)
		}
		fmt.Fprintf(&b, "- %s (%s, %d chars): %.2f %s, confidence %s, watermark %s\n",
			seg.ID, seg.Type, seg.Length, s.Value, s.Classification, s.ConfidenceLevel, watermark)
	}

	fmt.Fprintf(&b, "\nCitation audit: %s, %d references (%d verified, %d dead)\n",
		r.CitationAudit.Status, len(r.Citations), countCitations(r.Citations, model.CitationVerified), countCitations(r.Citations, model.CitationDead))
	fmt.Fprintf(&b, "Code audit: %s, %d findings\n", r.CodeAudit.Status, len(r.CodeFindings))

	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return " (none)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n   ... and %d more", len(urls)-20)
			break
		}
		b.WriteString("\n   - " + u)
	}
	return b.String()
}

func countCitations(findings []model.CitationFinding, status model.CitationStatus) int {
	n := 0
	for _, f := range findings {
		if f.Status == status {
			n++
		}
	}
	return n
}

var citedURLPattern = regexp.MustCompile(`https?://[^\s)\]>"]+`)

// extractURLs returns the unique URLs mentioned in text
func extractURLs(text string) []string {
	var out []string
	for _, u := range citedURLPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// finish trims the model output and enforces the URL allowlist
func finish(summary, modelName string, tokens int, allowed []string) (*SummarizeResponse, error) {
	summary = strings.TrimSpace(summary)
	cited := extractURLs(summary)
	for _, u := range cited {
		if !slices.Contains(allowed, u) {
			return nil, fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return &SummarizeResponse{
		Summary:    summary,
		CitedURLs:  cited,
		Model:      modelName,
		TokensUsed: tokens,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
