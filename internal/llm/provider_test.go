package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/attributa/internal/model"
)

func sampleReport() model.Report {
	doc := &model.Document{
		ID:      "doc1",
		Summary: "2 segments (2 prose), 900 characters",
		Segments: []model.Segment{
			{ID: "doc1:0", Type: model.ContentProse, Length: 600},
			{ID: "doc1:1", Type: model.ContentProse, Length: 300},
		},
	}
	r := model.NewReport(doc)
	r.Signals["doc1:0"] = model.SignalBundle{Watermark: &model.WatermarkSignal{PValue: 0.02}}
	r.Signals["doc1:1"] = model.FallbackBundle()
	r.Scores["doc1:0"] = model.Score{Value: 0.8, Classification: model.ClassLikelyAI, ConfidenceLevel: "medium"}
	r.Scores["doc1:1"] = model.Score{Value: 0.2, Classification: model.ClassLikelyHuman, ConfidenceLevel: "low"}
	r.Citations = []model.CitationFinding{
		{Reference: "https://example.com/1", Kind: model.ReferenceURL, Status: model.CitationVerified},
		{Reference: "https://example.com/gone", Kind: model.ReferenceURL, Status: model.CitationDead},
	}
	r.CitationAudit = model.AuditResult{Status: model.AuditSucceeded}
	r.CodeAudit = model.AuditResult{Status: model.AuditNotApplicable}
	return *r
}

func TestOpenAIProvider_Summarize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "  Mixed signals. Source: https://example.com/1  ",
				},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	report := sampleReport()
	resp, err := provider.Summarize(context.Background(), SummarizeRequest{
		Report:      report,
		AllowedURLs: AllowedURLs(report),
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if resp.Summary != "Mixed signals. Source: https://example.com/1" {
		t.Errorf("unexpected summary %q", resp.Summary)
	}
	if len(resp.CitedURLs) != 1 || resp.CitedURLs[0] != "https://example.com/1" {
		t.Errorf("unexpected cited URLs: %v", resp.CitedURLs)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_CitationLeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "See https://example.com/gone."},
			}},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	report := sampleReport()
	_, err = provider.Summarize(context.Background(), SummarizeRequest{Report: report, AllowedURLs: AllowedURLs(report)})
	if !errors.Is(err, ErrCitationLeak) {
		t.Fatalf("expected ErrCitationLeak, got %v", err)
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestAnthropicProvider_Summarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != systemPrompt || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Model:   "claude-test",
			Content: []anthropicContent{{Type: "text", Text: "One segment leans machine-like."}},
			Usage:   anthropicUsage{InputTokens: 40, OutputTokens: 10},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "ak", BaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	resp, err := provider.Summarize(context.Background(), SummarizeRequest{Report: sampleReport()})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if resp.Model != "claude-test" || resp.TokensUsed != 50 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := provider.Summarize(context.Background(), SummarizeRequest{Report: sampleReport()})
	if err == nil || !strings.Contains(err.Error(), "authentication_error: invalid x-api-key") {
		t.Fatalf("expected decoded API error, got %v", err)
	}
}

func TestOllamaProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			var req ollamaRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Stream {
				t.Error("expected non-streaming request")
			}
			if req.Model != "llama3.1:8b" {
				t.Errorf("unexpected model %s", req.Model)
			}
			_ = json.NewEncoder(w).Encode(ollamaResponse{
				Model:     req.Model,
				Response:  "Scores are mostly uncertain.",
				Done:      true,
				EvalCount: 12,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{Model: "llama3.1:8b", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Fatal("expected provider to be available")
	}
	resp, err := provider.Summarize(context.Background(), SummarizeRequest{Report: sampleReport()})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if resp.Summary != "Scores are mostly uncertain." || resp.TokensUsed != 12 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	if _, err := NewOllamaProvider(Config{}); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantNil  bool
		wantErr  bool
		wantName string
	}{
		{name: "disabled", cfg: Config{}, wantNil: true},
		{name: "none", cfg: Config{Provider: "none"}, wantNil: true},
		{name: "openai", cfg: Config{Provider: "OpenAI", APIKey: "k"}, wantName: "openai"},
		{name: "claude alias", cfg: Config{Provider: "claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", cfg: Config{Provider: "ollama", Model: "m"}, wantName: "ollama"},
		{name: "unknown", cfg: Config{Provider: "bard"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if p != nil {
					t.Fatalf("expected nil provider, got %T", p)
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	report := sampleReport()
	prompt := BuildPrompt(report, AllowedURLs(report))

	for _, want := range []string{
		"Mean score: 0.60",
		"fallback signals: 1",
		"doc1:0 (prose, 600 chars): 0.80 likely_ai",
		"watermark p=0.020",
		"- https://example.com/1",
		"Citation audit: succeeded, 2 references (1 verified, 1 dead)",
		"Code audit: not_applicable",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "example.com/gone") {
		t.Error("dead URL must not be offered as citable")
	}
}

func TestExtractURLs(t *testing.T) {
	got := extractURLs("See https://a.example/x. Also (https://b.example/y) and https://a.example/x")
	if len(got) != 2 || got[0] != "https://a.example/x" || got[1] != "https://b.example/y" {
		t.Errorf("extractURLs = %v", got)
	}
}
