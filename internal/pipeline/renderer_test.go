package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/attributa/internal/model"
)

func renderFixture() *model.Report {
	doc := &model.Document{
		ID:      "01RENDER",
		Summary: "2 segments (1 prose, 1 code), 700 characters",
		Segments: []model.Segment{
			{ID: "01RENDER-s0", Type: model.ContentProse, Length: 500},
			{ID: "01RENDER-s1", Type: model.ContentCode, Length: 200},
		},
	}
	r := model.NewReport(doc)
	r.Signals["01RENDER-s0"] = model.SignalBundle{Watermark: &model.WatermarkSignal{PValue: 0.004}}
	r.Signals["01RENDER-s1"] = model.FallbackBundle()
	r.Scores["01RENDER-s0"] = model.Score{Value: 0.82, Classification: model.ClassLikelyAI, ConfidenceLevel: "medium"}
	r.Scores["01RENDER-s1"] = model.Score{Value: 0.41, Classification: model.ClassUncertain, ConfidenceLevel: "low"}
	r.Citations = []model.CitationFinding{
		{Reference: "https://gone.example/x", Kind: model.ReferenceURL, Status: model.CitationDead, Authority: model.TierTertiary},
	}
	r.CitationAudit = model.AuditResult{Status: model.AuditSucceeded}
	r.CodeFindings = []model.CodeFinding{
		{RuleID: "weak-hash", Severity: model.SeverityWarning, SegmentID: "01RENDER-s1", Line: 3, Snippet: "md5.New()", Message: "Weak hash"},
	}
	r.CodeAudit = model.AuditResult{Status: model.AuditSucceeded}
	r.State = model.StateFinal
	return r
}

func TestRenderer_Markdown(t *testing.T) {
	out := NewRenderer(true).Markdown(renderFixture())

	for _, want := range []string{
		"# Attributa Report",
		"## Segments",
		"01RENDER-s0",
		"(medium)",
		"0.004",
		"fallback",
		"## Citation Audit",
		"https://gone.example/x",
		"dead",
		"## Code Audit",
		"weak-hash",
		"01RENDER-s1:3",
		"pie",
		"Generated by Attributa",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if strings.Contains(NewRenderer(false).Markdown(renderFixture()), "Generated by Attributa") {
		t.Error("footer should be omitted when disabled")
	}
}

func TestRenderer_MarkdownFailedAudit(t *testing.T) {
	r := renderFixture()
	r.Citations = []model.CitationFinding{}
	r.CitationAudit = model.AuditResult{Status: model.AuditFailed, Error: "registry unreachable"}

	out := NewRenderer(false).Markdown(r)
	if !strings.Contains(out, "Citation audit failed: registry unreachable") {
		t.Errorf("failed audit not reported:\n%s", out)
	}
}

func TestRenderer_WriteOutputs(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	mdPath := filepath.Join(dir, "report.md")

	report := renderFixture()
	report.Narrative = &model.NarrativeSummary{Enabled: true, Provider: "stub", Model: "m", SummaryMD: "Narrative text."}

	var buf bytes.Buffer
	if err := NewRenderer(true).WriteOutputs(&buf, report, jsonPath, mdPath, true); err != nil {
		t.Fatalf("WriteOutputs: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.DocumentID != report.DocumentID || len(decoded.Scores) != 2 {
		t.Errorf("decoded report mismatch: %+v", decoded)
	}

	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("markdown not written: %v", err)
	}
	narrative, err := os.ReadFile(filepath.Join(dir, "report.llm.md"))
	if err != nil {
		t.Fatalf("narrative not written: %v", err)
	}
	if !strings.Contains(string(narrative), "Narrative text.") {
		t.Error("narrative content missing")
	}

	summary := buf.String()
	for _, want := range []string{"Wrote JSON", "01RENDER", "[fallback]", "succeeded"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate = %q", got)
	}
}
