package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
	"github.com/ppiankov/attributa/internal/validate"
)

// URLValidator checks reachability for a batch of URLs
type URLValidator interface {
	Validate(ctx context.Context, urls []string) []model.ValidationResult
}

// Citations is the default CitationAuditor
type Citations struct {
	docs      DocumentSource
	validator URLValidator // nil skips network checks for URLs
	resolver  DOIResolver  // nil skips registry lookups for DOIs
	authority *validate.AuthorityClassifier
	logger    *slog.Logger
}

// NewCitations creates a citation auditor
func NewCitations(docs DocumentSource, validator URLValidator, resolver DOIResolver, authority *validate.AuthorityClassifier, logger *slog.Logger) *Citations {
	if authority == nil {
		authority = validate.NewAuthorityClassifier(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Citations{
		docs:      docs,
		validator: validator,
		resolver:  resolver,
		authority: authority,
		logger:    logger,
	}
}

// AuditCitations extracts and checks every reference in the document's
// prose, LaTeX and mixed segments. Individual lookup failures become
// unverifiable findings; only an unresolvable document fails the audit.
func (c *Citations) AuditCitations(ctx context.Context, documentID string) ([]model.CitationFinding, error) {
	doc, err := c.docs.Document(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	// 1. Collect references and the bibliography across the document
	var refs []Reference
	bibliography := make(map[string]bool)
	for _, seg := range doc.Segments {
		if seg.Type == model.ContentCode {
			continue
		}
		content := doc.Contents[seg.ID]
		refs = append(refs, ExtractReferences(seg.ID, content)...)
		for _, k := range BibliographyKeys(content) {
			bibliography[k] = true
		}
	}
	if len(refs) == 0 {
		return []model.CitationFinding{}, nil
	}

	// 2. Validate URLs in one concurrent batch
	var urls []string
	for _, r := range refs {
		if r.Kind == model.ReferenceURL {
			urls = append(urls, r.Key)
		}
	}
	validation := make(map[string]model.ValidationResult, len(urls))
	if c.validator != nil && len(urls) > 0 {
		for _, v := range c.validator.Validate(ctx, urls) {
			validation[v.URL] = v
		}
	}

	// 3. Build findings in reference order
	findings := make([]model.CitationFinding, 0, len(refs))
	for _, r := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := model.CitationFinding{Reference: r.Key, Kind: r.Kind, SegmentID: r.SegmentID}

		switch r.Kind {
		case model.ReferenceURL:
			c.urlFinding(&f, validation)
		case model.ReferenceDOI:
			c.doiFinding(ctx, &f)
		case model.ReferenceLatexCite:
			if bibliography[r.Key] {
				f.Status = model.CitationVerified
				f.Detail = "bibliography entry present"
			} else {
				f.Status = model.CitationUnverifiable
				f.Detail = "no bibliography entry"
			}
		case model.ReferenceAuthorYear:
			f.Status = model.CitationUnverifiable
			f.Detail = "author-year citation without a resolvable identifier"
		}
		findings = append(findings, f)
	}

	c.logger.Debug("citation audit complete",
		"document_id", documentID,
		"references", len(findings),
		"urls", len(urls))
	return findings, nil
}

func (c *Citations) urlFinding(f *model.CitationFinding, validation map[string]model.ValidationResult) {
	f.Authority = c.authority.Classify(f.Reference)

	v, ok := validation[f.Reference]
	switch {
	case !ok:
		f.Status = model.CitationUnverifiable
		f.Detail = "link validation disabled"
	case v.IsAccessible:
		f.Status = model.CitationVerified
		f.StatusCode = v.StatusCode
		if v.RedirectURL != "" {
			f.Detail = "redirects to " + v.RedirectURL
		}
	case v.IsDead:
		f.Status = model.CitationDead
		f.StatusCode = v.StatusCode
		f.Detail = v.Error
	default:
		f.Status = model.CitationUnverifiable
		f.StatusCode = v.StatusCode
		f.Detail = v.Error
		if f.Detail == "" {
			f.Detail = fmt.Sprintf("status %d", v.StatusCode)
		}
	}
}

func (c *Citations) doiFinding(ctx context.Context, f *model.CitationFinding) {
	f.Authority = c.authority.Classify("https://doi.org/" + f.Reference)
	if c.resolver == nil {
		f.Status = model.CitationUnverifiable
		f.Detail = "registry lookup disabled"
		return
	}

	rec, err := c.resolver.Resolve(ctx, f.Reference)
	if err != nil {
		c.logger.Warn("doi lookup failed", "doi", f.Reference, "error", err)
		f.Status = model.CitationUnverifiable
		f.Detail = err.Error()
		return
	}
	if !rec.Found {
		f.Status = model.CitationUnresolved
		f.Detail = "unknown to registry"
		return
	}

	f.Status = model.CitationVerified
	f.Title = rec.Title
	if rec.Year > 0 || rec.Publisher != "" {
		f.Detail = strings.TrimSpace(fmt.Sprintf("%s %s", rec.Publisher, yearString(rec.Year)))
	}
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprintf("(%d)", y)
}
