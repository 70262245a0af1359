package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/attributa/internal/model"
)

func sampleDocument() *model.Document {
	return &model.Document{
		ID:      "01HDOC",
		Summary: "1 segment",
		Segments: []model.Segment{
			{ID: "01HDOC-s0", Type: model.ContentProse, Length: 11},
		},
		Contents: map[string]string{"01HDOC-s0": "hello world"},
	}
}

func TestDocumentIDOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"01HDOC-s0", "01HDOC", true},
		{"01HDOC-s12", "01HDOC", true},
		{"nosegment", "", false},
		{"-s1", "", false},
	}
	for _, tt := range tests {
		got, ok := DocumentIDOf(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DocumentIDOf(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if SegmentID("X", 3) != "X-s3" {
		t.Errorf("unexpected segment id %q", SegmentID("X", 3))
	}
}

func TestCacheDocuments_Segment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDocuments(time.Minute)

	if err := s.PutDocument(ctx, sampleDocument()); err != nil {
		t.Fatal(err)
	}

	seg, content, err := s.Segment(ctx, "01HDOC-s0")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if seg.Type != model.ContentProse || content != "hello world" {
		t.Errorf("unexpected segment %+v content %q", seg, content)
	}

	if _, _, err := s.Segment(ctx, "01HDOC-s9"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("expected ErrSegmentNotFound, got %v", err)
	}
	if _, _, err := s.Segment(ctx, "OTHER-s0"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func testRepositories(t *testing.T) map[string]ReportRepository {
	t.Helper()

	db, err := OpenSQLiteReports(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return map[string]ReportRepository{
		"memory": NewMemoryReports(time.Hour),
		"sqlite": db,
	}
}

func TestReportRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			r := model.NewReport(sampleDocument())
			if err := repo.Save(ctx, r); err != nil {
				t.Fatalf("Save: %v", err)
			}

			// Snapshot semantics: later mutation does not leak into the store
			r.State = model.StateFinal
			got, err := repo.Get(ctx, "01HDOC")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.State != model.StateEmpty {
				t.Errorf("expected stored state empty, got %s", got.State)
			}

			if err := repo.Save(ctx, r); err != nil {
				t.Fatalf("Save again: %v", err)
			}
			list, err := repo.List(ctx, 10)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 1 || list[0].State != model.StateFinal {
				t.Errorf("expected one final row, got %+v", list)
			}

			if err := repo.Delete(ctx, "01HDOC"); err != nil {
				t.Fatal(err)
			}
			if _, err := repo.Get(ctx, "01HDOC"); !errors.Is(err, ErrReportNotFound) {
				t.Errorf("expected ErrReportNotFound, got %v", err)
			}
		})
	}
}

func TestReportRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()

	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, id := range []string{"A", "B", "C"} {
				r := &model.Report{
					DocumentID: id,
					CreatedAt:  base.Add(time.Duration(i) * time.Hour),
					State:      model.StateFinal,
				}
				if err := repo.Save(ctx, r); err != nil {
					t.Fatal(err)
				}
			}

			list, err := repo.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].DocumentID != "C" || list[1].DocumentID != "B" {
				t.Errorf("unexpected order: %+v", list)
			}

			if err := repo.Clear(ctx); err != nil {
				t.Fatal(err)
			}
			list, _ = repo.List(ctx, 0)
			if len(list) != 0 {
				t.Errorf("expected empty list after clear, got %d", len(list))
			}
		})
	}
}
