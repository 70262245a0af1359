package model

import "time"

// ContentType classifies a segment of an ingested document
type ContentType string

const (
	ContentProse ContentType = "prose" // Natural-language paragraphs
	ContentCode  ContentType = "code"  // Source code or shell snippets
	ContentLatex ContentType = "latex" // Display math or LaTeX environments
	ContentMixed ContentType = "mixed" // Prose with inline code or math
)

// Valid reports whether t is one of the known content types
func (t ContentType) Valid() bool {
	switch t {
	case ContentProse, ContentCode, ContentLatex, ContentMixed:
		return true
	default:
		return false
	}
}

// QualifiesForWatermark reports whether watermark analysis applies to this type
func (t ContentType) QualifiesForWatermark() bool {
	return t == ContentProse || t == ContentLatex
}

// QualifiesForCitations reports whether a document containing this type gets a citation audit
func (t ContentType) QualifiesForCitations() bool {
	return t == ContentProse || t == ContentLatex
}

// Segment is a contiguous, typed slice of an analyzed document.
// Segments are immutable once produced by ingestion.
type Segment struct {
	ID     string      `json:"id"`
	Type   ContentType `json:"type"`
	Length int         `json:"length"` // Character (rune) count
}

// Document is the output of ingestion: ordered segments plus their content
type Document struct {
	ID        string            `json:"id"`
	Summary   string            `json:"summary"`
	Source    string            `json:"source,omitempty"` // File path, URL, or "stdin"
	CreatedAt time.Time         `json:"created_at"`
	Segments  []Segment         `json:"segments"`
	Contents  map[string]string `json:"contents"` // Segment ID -> text
}

// Segment returns the segment with the given id
func (d *Document) Segment(id string) (Segment, bool) {
	for _, s := range d.Segments {
		if s.ID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// HasType reports whether any segment satisfies the predicate
func (d *Document) HasType(match func(ContentType) bool) bool {
	for _, s := range d.Segments {
		if match(s.Type) {
			return true
		}
	}
	return false
}

// TotalLength returns the summed length of all segments
func (d *Document) TotalLength() int {
	total := 0
	for _, s := range d.Segments {
		total += s.Length
	}
	return total
}
