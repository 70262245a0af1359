package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/attributa/internal/util"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic Messages API
type AnthropicProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

// NewAnthropicProvider creates an Anthropic provider
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	timeout := time.Duration(firstPositive(cfg.Timeout, 30)) * time.Second
	return &AnthropicProvider{
		baseURL:    strings.TrimSuffix(firstNonEmpty(cfg.BaseURL, "https://api.anthropic.com"), "/"),
		httpClient: util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		config:     cfg,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable reports whether the provider is configured. The Messages
// API has no free probe endpoint, so the first Summarize call is the check.
func (p *AnthropicProvider) IsAvailable(context.Context) bool {
	return p.config.APIKey != ""
}

// Summarize generates a narrative with the Messages API
func (p *AnthropicProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	modelName := firstNonEmpty(req.Model, p.config.Model, "claude-3-5-haiku-latest")

	apiReq := anthropicRequest{
		Model:     modelName,
		MaxTokens: firstPositive(req.MaxTokens, p.config.MaxTokens, 600),
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: firstNonEmpty(req.Prompt, BuildPrompt(req.Report, req.AllowedURLs))},
		},
		Temperature: 0.2,
	}
	headers := map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, p.httpClient, p.baseURL+"/v1/messages", headers, apiReq, &resp, anthropicErrorMessage); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: empty response")
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	return finish(text.String(), firstNonEmpty(resp.Model, modelName), tokens, req.AllowedURLs)
}

func anthropicErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
		return ""
	}
	return e.Error.Type + ": " + e.Error.Message
}
