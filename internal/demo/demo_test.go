package demo

import (
	"strings"
	"testing"
)

func TestSamples(t *testing.T) {
	all, err := Samples()
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(all))
	}
	if all[0].Name != "essay" || all[1].Name != "generated" || all[2].Name != "technical" {
		t.Errorf("unexpected order: %v", Names())
	}
	for _, s := range all {
		if s.Title == "" || strings.TrimSpace(s.Content) == "" {
			t.Errorf("sample %s is missing title or content", s.Name)
		}
	}
}

func TestGet(t *testing.T) {
	s, err := Get("technical")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Title != "Hashing user tokens" {
		t.Errorf("title = %q", s.Title)
	}
	if !strings.Contains(s.Content, "```python") {
		t.Error("technical sample should contain a code block")
	}

	if _, err := Get("missing"); err == nil {
		t.Error("expected error for unknown demo")
	}
}
