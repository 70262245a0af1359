package model

import "time"

// ReferenceKind classifies a reference found in prose or latex
type ReferenceKind string

const (
	ReferenceURL        ReferenceKind = "url"         // Bare or markdown link
	ReferenceDOI        ReferenceKind = "doi"         // Digital Object Identifier
	ReferenceLatexCite  ReferenceKind = "latex_cite"  // \cite{key}
	ReferenceAuthorYear ReferenceKind = "author_year" // (Smith, 2020)
)

// CitationStatus is the outcome of checking one reference
type CitationStatus string

const (
	CitationVerified     CitationStatus = "verified"     // Resolved and accessible
	CitationUnresolved   CitationStatus = "unresolved"   // DOI unknown to the registry
	CitationDead         CitationStatus = "dead"         // 404, 410, or unreachable
	CitationUnverifiable CitationStatus = "unverifiable" // Nothing to resolve against
)

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// CitationFinding is the audit result for one reference
type CitationFinding struct {
	Reference  string         `json:"reference"`
	Kind       ReferenceKind  `json:"kind"`
	SegmentID  string         `json:"segment_id"`
	Status     CitationStatus `json:"status"`
	Authority  AuthorityTier  `json:"authority,omitempty"`
	Title      string         `json:"title,omitempty"` // Registry title for DOIs
	StatusCode int            `json:"status_code,omitempty"`
	Detail     string         `json:"detail,omitempty"`
}

// ValidationResult contains the result of checking one URL
type ValidationResult struct {
	URL          string        `json:"url"`
	IsAccessible bool          `json:"is_accessible"`
	StatusCode   int           `json:"status_code,omitempty"`
	LastModified *time.Time    `json:"last_modified,omitempty"`
	IsDead       bool          `json:"is_dead"`                // 404, 410, or transport failure
	RedirectURL  string        `json:"redirect_url,omitempty"` // If redirected
	Authority    AuthorityTier `json:"authority"`
	Error        string        `json:"error,omitempty"`
}

// Severity indicates the importance of a code finding
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CodeFinding is a security issue found in a code segment
type CodeFinding struct {
	RuleID    string   `json:"rule_id"`
	Severity  Severity `json:"severity"`
	SegmentID string   `json:"segment_id"`
	Line      int      `json:"line"` // 1-based within the segment
	Snippet   string   `json:"snippet"`
	Message   string   `json:"message"`
}
