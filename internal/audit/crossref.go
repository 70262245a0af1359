package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/attributa/internal/cache"
	"github.com/ppiankov/attributa/internal/worker"
)

// DOIRecord is what the registry knows about a DOI
type DOIRecord struct {
	DOI       string `json:"doi"`
	Found     bool   `json:"found"`
	Title     string `json:"title,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// DOIResolver looks DOIs up in a registry
type DOIResolver interface {
	Resolve(ctx context.Context, doi string) (DOIRecord, error)
}

// Crossref resolves DOIs against the Crossref REST API. Responses,
// including misses, are cached.
type Crossref struct {
	baseURL   string
	mailto    string
	userAgent string
	client    *http.Client
	limiter   *worker.Limiter
	cache     cache.Cache
	cacheTTL  time.Duration
}

// CrossrefOptions configures a Crossref client
type CrossrefOptions struct {
	BaseURL   string // Default https://api.crossref.org
	Mailto    string // Polite-pool contact address
	UserAgent string
	Client    *http.Client
	Limiter   *worker.Limiter
	Cache     cache.Cache // Optional
	CacheTTL  time.Duration
}

// NewCrossref creates a Crossref client
func NewCrossref(opts CrossrefOptions) *Crossref {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.crossref.org"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Limiter == nil {
		opts.Limiter = worker.NewLimiter(5, 5)
	}
	return &Crossref{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		mailto:    opts.Mailto,
		userAgent: opts.UserAgent,
		client:    opts.Client,
		limiter:   opts.Limiter,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
	}
}

type crossrefWork struct {
	Message struct {
		DOI       string   `json:"DOI"`
		Title     []string `json:"title"`
		Publisher string   `json:"publisher"`
		Issued    struct {
			DateParts [][]int `json:"date-parts"`
		} `json:"issued"`
	} `json:"message"`
}

// Resolve looks up one DOI. An unknown DOI is not an error: the record
// comes back with Found false.
func (c *Crossref) Resolve(ctx context.Context, doi string) (DOIRecord, error) {
	doi = strings.TrimSpace(doi)
	key := cache.Key("crossref", strings.ToLower(doi))

	if c.cache != nil {
		if data, ok := c.cache.Get(key); ok {
			var rec DOIRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				return rec, nil
			}
		}
	}

	rec, err := c.fetch(ctx, doi)
	if err != nil {
		return DOIRecord{}, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			_ = c.cache.Set(key, data, c.cacheTTL)
		}
	}
	return rec, nil
}

func (c *Crossref) fetch(ctx context.Context, doi string) (DOIRecord, error) {
	endpoint := c.baseURL + "/works/" + escapeDOI(doi)
	if c.mailto != "" {
		endpoint += "?mailto=" + url.QueryEscape(c.mailto)
	}

	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return DOIRecord{}, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DOIRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return DOIRecord{}, fmt.Errorf("crossref request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return DOIRecord{DOI: doi, Found: false}, nil
	default:
		return DOIRecord{}, fmt.Errorf("crossref: status %d for %s", resp.StatusCode, doi)
	}

	var work crossrefWork
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&work); err != nil {
		return DOIRecord{}, fmt.Errorf("decode crossref response: %w", err)
	}

	rec := DOIRecord{DOI: doi, Found: true, Publisher: work.Message.Publisher}
	if work.Message.DOI != "" {
		rec.DOI = work.Message.DOI
	}
	if len(work.Message.Title) > 0 {
		rec.Title = work.Message.Title[0]
	}
	if parts := work.Message.Issued.DateParts; len(parts) > 0 && len(parts[0]) > 0 {
		rec.Year = parts[0][0]
	}
	return rec, nil
}

// escapeDOI escapes each path segment of a DOI and keeps the slashes
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
