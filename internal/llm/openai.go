package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/attributa/internal/util"
)

// OpenAIProvider calls the OpenAI chat completions API (or a compatible endpoint)
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = util.NewHTTPClient(0, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), config: cfg}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable lists models as a cheap credentials check
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Summarize generates a narrative with the chat completions API
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	prompt := firstNonEmpty(req.Prompt, BuildPrompt(req.Report, req.AllowedURLs))
	modelName := firstNonEmpty(req.Model, p.config.Model, openai.GPT4oMini)

	timeout := time.Duration(firstPositive(p.config.Timeout, 30)) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   firstPositive(req.MaxTokens, p.config.MaxTokens, 600),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response")
	}

	return finish(resp.Choices[0].Message.Content, firstNonEmpty(resp.Model, modelName), resp.Usage.TotalTokens, req.AllowedURLs)
}
