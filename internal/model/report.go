package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownSegment is returned when a result targets an id outside the report's segments
	ErrUnknownSegment = errors.New("unknown segment")

	// ErrStateRegression is returned for a backwards state transition
	ErrStateRegression = errors.New("report state cannot move backwards")
)

// ReportState is the lifecycle position of a report
type ReportState string

const (
	StateEmpty           ReportState = "empty"            // Segments known, nothing analyzed
	StateAnalyzing       ReportState = "analyzing"        // Segment loop running
	StateSegmentComplete ReportState = "segment-complete" // Every segment has signals and a score
	StateAuditing        ReportState = "auditing"         // Document-level audits running
	StateFinal           ReportState = "final"
	StateCancelled       ReportState = "cancelled" // Run abandoned through its context
)

func (s ReportState) rank() int {
	switch s {
	case StateEmpty:
		return 0
	case StateAnalyzing:
		return 1
	case StateSegmentComplete:
		return 2
	case StateAuditing:
		return 3
	case StateFinal, StateCancelled:
		return 4
	default:
		return -1
	}
}

// Terminal reports whether no further transition is possible
func (s ReportState) Terminal() bool {
	return s == StateFinal || s == StateCancelled
}

// AuditStatus distinguishes why an audit result list is empty
type AuditStatus string

const (
	AuditNotApplicable AuditStatus = "not_applicable"
	AuditPending       AuditStatus = "pending"
	AuditSucceeded     AuditStatus = "succeeded"
	AuditFailed        AuditStatus = "failed"
)

// AuditResult records how a document-level audit ended
type AuditResult struct {
	Status AuditStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Report is the top-level aggregate for one analyzed document
type Report struct {
	DocumentID string      `json:"document_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Summary    string      `json:"summary"`
	State      ReportState `json:"state"`

	Segments []Segment               `json:"segments"`
	Signals  map[string]SignalBundle `json:"signals"`
	Scores   map[string]Score        `json:"scores"`

	Citations     []CitationFinding `json:"citations"`
	CodeFindings  []CodeFinding     `json:"code_findings"`
	CitationAudit AuditResult       `json:"citation_audit"`
	CodeAudit     AuditResult       `json:"code_audit"`

	Weights    Weights           `json:"weights,omitempty"`   // Snapshot read at run time
	Narrative  *NarrativeSummary `json:"narrative,omitempty"` // Optional LLM text, never affects scores
	Principles Principles        `json:"principles"`
}

// NewReport creates an empty report for an ingested document
func NewReport(doc *Document) *Report {
	segments := make([]Segment, len(doc.Segments))
	copy(segments, doc.Segments)

	return &Report{
		DocumentID:    doc.ID,
		CreatedAt:     time.Now().UTC(),
		Summary:       doc.Summary,
		State:         StateEmpty,
		Segments:      segments,
		Signals:       make(map[string]SignalBundle, len(segments)),
		Scores:        make(map[string]Score, len(segments)),
		Citations:     []CitationFinding{},
		CodeFindings:  []CodeFinding{},
		CitationAudit: AuditResult{Status: AuditPending},
		CodeAudit:     AuditResult{Status: AuditPending},
		Principles:    DefaultPrinciples(),
	}
}

// Advance moves the report to the next state; backwards moves are rejected
func (r *Report) Advance(next ReportState) error {
	if r.State.Terminal() || next.rank() < r.State.rank() || next.rank() < 0 {
		return fmt.Errorf("%w: %s -> %s", ErrStateRegression, r.State, next)
	}
	r.State = next
	return nil
}

func (r *Report) hasSegment(id string) bool {
	for _, s := range r.Segments {
		if s.ID == id {
			return true
		}
	}
	return false
}

// SetSignals stores a segment's bundle; ids outside the segment set are rejected
func (r *Report) SetSignals(id string, b SignalBundle) error {
	if !r.hasSegment(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSegment, id)
	}
	r.Signals[id] = b
	return nil
}

// SetScore stores a segment's score; ids outside the segment set are rejected
func (r *Report) SetScore(id string, s Score) error {
	if !r.hasSegment(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSegment, id)
	}
	r.Scores[id] = s
	return nil
}

// IsComplete reports whether every segment has both a signal entry and a score entry
func (r *Report) IsComplete() bool {
	for _, s := range r.Segments {
		if _, ok := r.Signals[s.ID]; !ok {
			return false
		}
		if _, ok := r.Scores[s.ID]; !ok {
			return false
		}
	}
	return true
}

// MeanScore returns the length-weighted mean score across segments
func (r *Report) MeanScore() float64 {
	var sum, total float64
	for _, s := range r.Segments {
		sc, ok := r.Scores[s.ID]
		if !ok {
			continue
		}
		sum += sc.Value * float64(s.Length)
		total += float64(s.Length)
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// FallbackCount returns how many segments carry the fallback bundle
func (r *Report) FallbackCount() int {
	n := 0
	for _, b := range r.Signals {
		if b.Fallback {
			n++
		}
	}
	return n
}

// Principles documents the stance the report is produced under
type Principles struct {
	Probabilistic bool `json:"probabilistic"`  // Scores are likelihoods, not verdicts
	Transparent   bool `json:"transparent"`    // Every score component is exposed
	SilentDegrade bool `json:"silent_degrade"` // Analyzer failures degrade signals, not the report
}

// DefaultPrinciples returns the standard principles
func DefaultPrinciples() Principles {
	return Principles{
		Probabilistic: true,
		Transparent:   true,
		SilentDegrade: true,
	}
}

// NarrativeSummary contains an optional LLM-generated summary.
// It never affects scoring.
type NarrativeSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
