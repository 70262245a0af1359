package model

import "time"

// Config is the complete Attributa configuration
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Weights   Weights         `yaml:"weights" mapstructure:"weights"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Authority AuthorityConfig `yaml:"authority" mapstructure:"authority"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// AnalysisConfig controls segmentation and per-segment analysis
type AnalysisConfig struct {
	Watermark          bool          `yaml:"watermark" mapstructure:"watermark"`     // Run watermark analysis on prose/latex
	Concurrency        int           `yaml:"concurrency" mapstructure:"concurrency"` // 1 = sequential segment loop
	Perturbations      int           `yaml:"perturbations" mapstructure:"perturbations"`
	TailRank           int           `yaml:"tail_rank" mapstructure:"tail_rank"`
	WatermarkGamma     float64       `yaml:"watermark_gamma" mapstructure:"watermark_gamma"`
	TargetSegmentChars int           `yaml:"target_segment_chars" mapstructure:"target_segment_chars"`
	Analyzer           string        `yaml:"analyzer" mapstructure:"analyzer"` // local, remote
	RemoteURL          string        `yaml:"remote_url" mapstructure:"remote_url"`
	RemoteAPIKey       string        `yaml:"remote_api_key,omitempty" mapstructure:"remote_api_key"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize          int           `yaml:"burst_size" mapstructure:"burst_size"`
	SegmentTimeout     time.Duration `yaml:"segment_timeout" mapstructure:"segment_timeout"`
}

// AuditConfig controls the document-level audits
type AuditConfig struct {
	Citations         bool          `yaml:"citations" mapstructure:"citations"`
	Code              bool          `yaml:"code" mapstructure:"code"`
	CrossrefURL       string        `yaml:"crossref_url" mapstructure:"crossref_url"`
	Mailto            string        `yaml:"mailto" mapstructure:"mailto"` // Crossref polite pool contact
	ValidateLinks     bool          `yaml:"validate_links" mapstructure:"validate_links"`
	ValidationWorkers int           `yaml:"validation_workers" mapstructure:"validation_workers"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AuthorityConfig defines how cited hosts are classified
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// HTTPConfig controls outbound HTTP for fetching and auditing
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the registry response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty = XDG cache dir
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig controls where reports live
type StoreConfig struct {
	Archive   bool          `yaml:"archive" mapstructure:"archive"`       // Persist reports to sqlite
	Path      string        `yaml:"path,omitempty" mapstructure:"path"`   // Empty = XDG data dir
	ReportTTL time.Duration `yaml:"report_ttl" mapstructure:"report_ttl"` // In-memory retention
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LoggingConfig configures slog output
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Watermark:          true,
			Concurrency:        1,
			Perturbations:      16,
			TailRank:           100,
			WatermarkGamma:     0.25,
			TargetSegmentChars: 1200,
			Analyzer:           "local",
			RequestsPerSecond:  5,
			BurstSize:          5,
			SegmentTimeout:     30 * time.Second,
		},
		Weights: DefaultWeights(),
		Audit: AuditConfig{
			Citations:         true,
			Code:              true,
			CrossrefURL:       "https://api.crossref.org",
			ValidateLinks:     true,
			ValidationWorkers: 10,
			Timeout:           10 * time.Second,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org", "arxiv.org", "nih.gov", "ncbi.nlm.nih.gov",
				"acm.org", "ieee.org", "nature.com", "science.org",
				"springer.com", "sciencedirect.com", "jstor.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "github.com",
				"reuters.com", "apnews.com", "bbc.co.uk", "nytimes.com",
			},
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Attributa/0.1 (+https://github.com/ppiankov/attributa)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Archive:   false,
			ReportTTL: time.Hour,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 600,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
