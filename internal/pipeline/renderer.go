package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/ppiankov/attributa/internal/llm"
	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/score"
)

// Renderer writes reports as JSON, Markdown, and a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteOutputs renders the requested files and prints the summary to w.
// An enabled narrative is written next to the Markdown report as .llm.md.
func (r *Renderer) WriteOutputs(w io.Writer, report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			_, _ = fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}

		if narrative := llm.RenderSeparateMarkdown(report.Narrative); narrative != "" {
			llmPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
			if err := writeFile(llmPath, []byte(narrative)); err != nil {
				return fmt.Errorf("render narrative: %w", err)
			}
			if verbose {
				_, _ = fmt.Fprintf(w, "✓ Wrote narrative: %s\n", llmPath)
			}
		}
	}

	r.RenderSummary(w, report)
	return nil
}

// RenderJSON writes the report as indented JSON; "-" writes to stdout
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders the report as Markdown
func (r *Renderer) Markdown(report *model.Report) string {
	md := markdown.NewMarkdown(io.Discard)

	md.H1("Attributa Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Document", report.DocumentID},
			{"Summary", report.Summary},
			{"State", string(report.State)},
			{"Created", report.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Mean score", formatScore(report.MeanScore())},
			{"Fallback segments", strconv.Itoa(report.FallbackCount())},
		},
	})
	md.PlainText("")
	md.Note("Scores estimate the likelihood of machine generation. They are probabilities, not verdicts.")
	md.PlainText("")

	r.writeSegments(md, report)
	r.writeCitations(md, report)
	r.writeCode(md, report)

	if r.includeFooter {
		md.HorizontalRule()
		md.PlainText("_Generated by Attributa. Scores are probabilistic signals and should be read alongside the cited evidence._")
	}
	return md.String()
}

func (r *Renderer) writeSegments(md *markdown.Markdown, report *model.Report) {
	md.H2("Segments")
	md.PlainText("")

	counts := map[model.Classification]int{}
	rows := make([][]string, 0, len(report.Segments))
	for _, seg := range report.Segments {
		sc, ok := report.Scores[seg.ID]
		if !ok {
			rows = append(rows, []string{seg.ID, string(seg.Type), strconv.Itoa(seg.Length), "-", "-", "-", "-"})
			continue
		}
		counts[sc.Classification]++

		watermark := "-"
		notes := []string{}
		if b, ok := report.Signals[seg.ID]; ok {
			if b.Watermark != nil {
				watermark = fmt.Sprintf("%.3f", b.Watermark.PValue)
			}
			if b.Fallback {
				notes = append(notes, "fallback")
			}
		}
		if sc.Degraded {
			notes = append(notes, "degraded")
		}
		note := strings.Join(notes, ", ")
		if note == "" {
			note = "-"
		}

		rows = append(rows, []string{
			seg.ID,
			string(seg.Type),
			strconv.Itoa(seg.Length),
			formatScore(sc.Value),
			string(sc.Classification) + " (" + sc.ConfidenceLevel + ")",
			watermark,
			note,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Segment", "Type", "Length", "Score", "Classification", "Watermark p", "Notes"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(counts) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Segment Classification"),
			piechart.WithShowData(true),
		)
		for _, c := range []model.Classification{model.ClassLikelyAI, model.ClassUncertain, model.ClassLikelyHuman} {
			if counts[c] > 0 {
				chart.LabelAndIntValue(string(c), uint64(counts[c]))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (r *Renderer) writeCitations(md *markdown.Markdown, report *model.Report) {
	md.H2("Citation Audit")
	md.PlainText("")
	md.PlainTextf("Status: **%s**", report.CitationAudit.Status)
	md.PlainText("")

	if report.CitationAudit.Status == model.AuditFailed {
		md.Warningf("Citation audit failed: %s", report.CitationAudit.Error)
		md.PlainText("")
		return
	}
	if len(report.Citations) == 0 {
		md.PlainText("No references found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Citations))
	dead := 0
	for i, c := range report.Citations {
		if c.Status == model.CitationDead {
			dead++
		}
		detail := c.Title
		if detail == "" {
			detail = c.Detail
		}
		authority := "-"
		if c.Authority != model.TierUnknown {
			authority = c.Authority.String()
		}
		rows[i] = []string{
			truncate(c.Reference, 60),
			string(c.Kind),
			string(c.Status),
			authority,
			orDash(truncate(detail, 50)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Reference", "Kind", "Status", "Authority", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")

	if dead > 0 {
		md.Cautionf("%d cited reference(s) are dead.", dead)
		md.PlainText("")
	}
}

func (r *Renderer) writeCode(md *markdown.Markdown, report *model.Report) {
	md.H2("Code Audit")
	md.PlainText("")
	md.PlainTextf("Status: **%s**", report.CodeAudit.Status)
	md.PlainText("")

	if report.CodeAudit.Status == model.AuditFailed {
		md.Warningf("Code audit failed: %s", report.CodeAudit.Error)
		md.PlainText("")
		return
	}
	if len(report.CodeFindings) == 0 {
		if report.CodeAudit.Status == model.AuditSucceeded {
			md.Tip("No security issues detected in code segments.")
			md.PlainText("")
		}
		return
	}

	rows := make([][]string, len(report.CodeFindings))
	for i, f := range report.CodeFindings {
		rows[i] = []string{
			string(f.Severity),
			f.RuleID,
			fmt.Sprintf("%s:%d", f.SegmentID, f.Line),
			f.Message,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Rule", "Location", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range report.CodeFindings {
		md.Details(f.RuleID+" @ "+f.SegmentID, "<pre>"+f.Snippet+"</pre>")
	}
	md.PlainText("")
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	aiStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	midStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	humanStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RenderSummary prints a short styled overview
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	mean := report.MeanScore()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Attributa") + " " + labelStyle.Render(report.DocumentID) + "\n")
	b.WriteString(labelStyle.Render("Document:   ") + report.Summary + "\n")
	b.WriteString(labelStyle.Render("Mean score: ") + styleFor(mean).Render(formatScore(mean)) + "\n")

	for _, seg := range report.Segments {
		sc, ok := report.Scores[seg.ID]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-32s %-6s %s %s", seg.ID, seg.Type, styleFor(sc.Value).Render(formatScore(sc.Value)), sc.Classification)
		if report.Signals[seg.ID].Fallback {
			line += " " + warnStyle.Render("[fallback]")
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "%s%s (%d refs), %s%s (%d findings)\n",
		labelStyle.Render("Citations: "), report.CitationAudit.Status, len(report.Citations),
		labelStyle.Render("code: "), report.CodeAudit.Status, len(report.CodeFindings))

	if report.State == model.StateCancelled {
		b.WriteString(warnStyle.Render("Run cancelled; report is partial.") + "\n")
	}

	_, _ = io.WriteString(w, b.String())
}

func styleFor(v float64) lipgloss.Style {
	switch {
	case v >= score.LikelyAIThreshold:
		return aiStyle
	case v <= score.LikelyHumanThreshold:
		return humanStyle
	default:
		return midStyle
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
