package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/attributa/internal/model"
)

func TestLoader_Stdin(t *testing.T) {
	l := NewLoader(nil, strings.NewReader("piped text"))
	content, opts, err := l.Load(context.Background(), "-")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "piped text" || opts.Source != "stdin" {
		t.Errorf("got %q, %+v", content, opts)
	}

	if _, _, err := NewLoader(nil, nil).Load(context.Background(), "-"); err == nil {
		t.Error("expected error without stdin")
	}
}

func TestLoader_FileFormats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		format string
	}{
		{"page.html", FormatHTML},
		{"notes.md", FormatMarkdown},
		{"plain.txt", FormatText},
		{"paper.tex", FormatAuto},
	}

	l := NewLoader(nil, nil)
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, opts, err := l.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if opts.Format != tt.format || opts.Source != path {
			t.Errorf("%s: opts = %+v, want format %s", tt.name, opts, tt.format)
		}
	}

	if _, _, err := l.Load(context.Background(), filepath.Join(dir, "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>hello</p>"))
	}))
	defer server.Close()

	f := NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test"})
	content, opts, err := NewLoader(f, nil).Load(context.Background(), server.URL+"/doc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "<p>hello</p>" || opts.Format != FormatHTML {
		t.Errorf("got %q, %+v", content, opts)
	}

	if _, _, err := NewLoader(nil, nil).Load(context.Background(), "https://example.com"); err == nil {
		t.Error("expected error when remote sources are disabled")
	}
}
