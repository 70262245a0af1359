package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

// Analyzer turns one input reference into a report
type Analyzer interface {
	AnalyzeSource(ctx context.Context, source string) (*model.Report, error)
}

// BatchResult is the outcome for one input: a report or an error
type BatchResult struct {
	Source string
	Report *model.Report
	Err    error
}

// BatchProcessor analyzes many inputs concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{analyzer: analyzer, concurrency: concurrency}
}

// Process analyzes sources and returns one result per source, in input order
func (b *BatchProcessor) Process(ctx context.Context, sources []string) []BatchResult {
	if len(sources) == 0 {
		return []BatchResult{}
	}

	pool := NewPool[BatchResult](ctx, b.concurrency)
	pool.Start()

	for _, src := range sources {
		pool.Submit(func(ctx context.Context) BatchResult {
			report, err := b.analyzer.AnalyzeSource(ctx, src)
			return BatchResult{Source: src, Report: report, Err: err}
		})
	}

	// Tasks refused or dropped by cancellation leave zero values
	results := make([]BatchResult, len(sources))
	copy(results, pool.Wait())
	for i := range results {
		if results[i].Source == "" {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			results[i] = BatchResult{Source: sources[i], Err: fmt.Errorf("not started: %w", cause)}
		}
	}
	return results
}

// ProcessFile reads sources from a file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]BatchResult, error) {
	sources, err := ReadSourcesFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return b.Process(ctx, sources), nil
}

// ReadSourcesFromFile reads one path or URL per line, skipping blanks and
// # comments and dropping duplicates
func ReadSourcesFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return sources, nil
}

// Summary counts successes and failures
func Summary(results []BatchResult) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}
