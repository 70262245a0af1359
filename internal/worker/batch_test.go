package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/attributa/internal/model"
)

type fakeAnalyzer struct {
	fail map[string]bool
}

func (f *fakeAnalyzer) AnalyzeSource(_ context.Context, source string) (*model.Report, error) {
	if f.fail[source] {
		return nil, errors.New("analysis failed")
	}
	return &model.Report{DocumentID: "doc-" + source, State: model.StateFinal}, nil
}

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_Process(t *testing.T) {
	p := NewBatchProcessor(&fakeAnalyzer{fail: map[string]bool{"b.md": true}}, 2)

	results := p.Process(context.Background(), []string{"a.md", "b.md", "c.md"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, want := range []string{"a.md", "b.md", "c.md"} {
		if results[i].Source != want {
			t.Errorf("results[%d].Source = %q, want %q", i, results[i].Source, want)
		}
	}
	if results[0].Report == nil || results[0].Err != nil {
		t.Errorf("a.md: expected report, got err %v", results[0].Err)
	}
	if results[1].Report != nil || results[1].Err == nil {
		t.Error("b.md: expected error and no report")
	}

	ok, failed := Summary(results)
	if ok != 2 || failed != 1 {
		t.Errorf("Summary = %d ok, %d failed", ok, failed)
	}
}

func TestBatchProcessor_ProcessEmpty(t *testing.T) {
	p := NewBatchProcessor(&fakeAnalyzer{}, 0)
	if got := p.Process(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewBatchProcessor(&fakeAnalyzer{}, 1)
	results := p.Process(ctx, []string{"a.md", "b.md"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("%s: expected error for cancelled batch", r.Source)
		}
		if r.Source == "" {
			t.Error("source must be set even when not started")
		}
	}
}

func TestReadSourcesFromFile(t *testing.T) {
	path := writeSources(t, "notes.md\n# comment\nhttps://example.com/post\n   \nnotes.md\n  paper.tex  ")

	got, err := ReadSourcesFromFile(path)
	if err != nil {
		t.Fatalf("ReadSourcesFromFile: %v", err)
	}

	want := []string{"notes.md", "https://example.com/post", "paper.tex"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadSourcesFromFile_Missing(t *testing.T) {
	if _, err := ReadSourcesFromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeSources(t, "a.md\nb.md\n")
	p := NewBatchProcessor(&fakeAnalyzer{}, 2)

	results, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
