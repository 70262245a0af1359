// Package audit runs the document-level checks: citation verification
// for prose and LaTeX, and a rule-based security scan for code.
package audit

import (
	"context"

	"github.com/ppiankov/attributa/internal/model"
)

// CitationAuditor checks every reference in a document
type CitationAuditor interface {
	AuditCitations(ctx context.Context, documentID string) ([]model.CitationFinding, error)
}

// CodeAuditor scans a document's code segments for security issues
type CodeAuditor interface {
	AuditCode(ctx context.Context, documentID string) ([]model.CodeFinding, error)
}

// DocumentSource resolves a document id to its segments and content
type DocumentSource interface {
	Document(ctx context.Context, id string) (*model.Document, error)
}
