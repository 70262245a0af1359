// Package validate checks cited URLs for reachability and classifies
// their authority.
package validate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/util"
	"github.com/ppiankov/attributa/internal/worker"
)

const maxAttempts = 3

// sleepFunc is used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Options configures a Validator
type Options struct {
	Timeout    time.Duration
	Workers    int
	UserAgent  string
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Authority  *model.AuthorityConfig
	Limiter    *worker.Limiter // Optional per-host rate limit
	Client     *http.Client    // Overrides the proxy-aware default client
}

// Validator checks URLs concurrently
type Validator struct {
	client    *http.Client
	workers   int
	userAgent string
	authority *AuthorityClassifier
	limiter   *worker.Limiter
}

// NewValidator creates a validator
func NewValidator(opts Options) *Validator {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = util.NewHTTPClient(opts.Timeout, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)
	}
	return &Validator{
		client:    client,
		workers:   opts.Workers,
		userAgent: opts.UserAgent,
		authority: NewAuthorityClassifier(opts.Authority),
		limiter:   opts.Limiter,
	}
}

// Authority exposes the classifier used for results
func (v *Validator) Authority() *AuthorityClassifier {
	return v.authority
}

// Validate checks every URL and returns results in input order
func (v *Validator) Validate(ctx context.Context, urls []string) []model.ValidationResult {
	if len(urls) == 0 {
		return []model.ValidationResult{}
	}

	pool := worker.NewPool[model.ValidationResult](ctx, v.workers)
	pool.Start()
	for _, u := range urls {
		pool.Submit(func(ctx context.Context) model.ValidationResult {
			return v.validateWithRetry(ctx, u)
		})
	}

	results := make([]model.ValidationResult, len(urls))
	copy(results, pool.Wait())
	for i := range results {
		if results[i].URL == "" {
			results[i] = model.ValidationResult{
				URL:       urls[i],
				Authority: v.authority.Classify(urls[i]),
				Error:     "context cancelled",
			}
		}
	}
	return results
}

// ValidateOne checks a single URL
func (v *Validator) ValidateOne(ctx context.Context, rawURL string) model.ValidationResult {
	return v.validateWithRetry(ctx, rawURL)
}

func (v *Validator) validateWithRetry(ctx context.Context, rawURL string) model.ValidationResult {
	var result model.ValidationResult
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result = v.check(ctx, rawURL)
		if !retryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < maxAttempts-1 {
			sleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

func (v *Validator) check(ctx context.Context, rawURL string) model.ValidationResult {
	result := model.ValidationResult{
		URL:       rawURL,
		Authority: v.authority.Classify(rawURL),
	}

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx, rawURL); err != nil {
			result.Error = fmt.Sprintf("rate limit: %v", err)
			return result
		}
	}

	resp, err := v.do(ctx, http.MethodHead, rawURL)
	if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
		_ = resp.Body.Close()
		resp, err = v.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		result.Error = err.Error()
		// Timeouts are retried; other transport failures mark the link dead
		result.IsDead = !isTransient(err) && ctx.Err() == nil
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.IsAccessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.IsDead = true
	}

	if final := resp.Request.URL.String(); final != rawURL {
		result.RedirectURL = final
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			result.LastModified = &t
		}
	}
	return result
}

func (v *Validator) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// retryable reports transient outcomes: 5xx, 429, timeouts
func retryable(r model.ValidationResult) bool {
	if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return r.StatusCode == 0 && r.Error != "" && !r.IsDead
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
