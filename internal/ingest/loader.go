package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Loader resolves a source reference (URL, file path, or "-") to content
type Loader struct {
	fetcher *Fetcher
	stdin   io.Reader
}

// NewLoader creates a loader; fetcher may be nil to disable URL sources
func NewLoader(fetcher *Fetcher, stdin io.Reader) *Loader {
	return &Loader{fetcher: fetcher, stdin: stdin}
}

// Load reads source and returns its content with ingestion options
// describing where it came from
func (l *Loader) Load(ctx context.Context, source string) (string, Options, error) {
	opts := Options{Source: source, Format: FormatAuto}

	switch {
	case source == "-":
		if l.stdin == nil {
			return "", opts, fmt.Errorf("stdin not available")
		}
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return "", opts, fmt.Errorf("read stdin: %w", err)
		}
		opts.Source = "stdin"
		return string(data), opts, nil

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		if l.fetcher == nil {
			return "", opts, fmt.Errorf("remote sources disabled: %s", source)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return "", opts, fmt.Errorf("fetch %s: %w", source, err)
		}
		if strings.Contains(res.ContentType, "html") {
			opts.Format = FormatHTML
		}
		return res.Content, opts, nil

	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return "", opts, fmt.Errorf("read file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(source)) {
		case ".html", ".htm":
			opts.Format = FormatHTML
		case ".md", ".markdown":
			opts.Format = FormatMarkdown
		case ".txt":
			opts.Format = FormatText
		}
		return string(data), opts, nil
	}
}
