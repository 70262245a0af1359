package audit

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

// Rule is one pattern-based security check
type Rule struct {
	ID       string
	Severity model.Severity
	Message  string
	Pattern  *regexp.Regexp
	Except   *regexp.Regexp // Lines matching this are not reported
	Redact   bool           // Mask quoted literals in the snippet
}

// DefaultRules is the stock rule set
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "hardcoded-secret",
			Severity: model.SeverityCritical,
			Message:  "Credential assigned from a string literal",
			Pattern:  regexp.MustCompile(`(?i)\b[\w.]*(api[_-]?key|secret|passw(?:or)?d|token|access[_-]?key)\w*["']?\s*(?::=|=|:)\s*["'][^"'\s]{8,}["']`),
			Except:   regexp.MustCompile(`(?i)(os\.getenv|environ|process\.env|example|changeme|xxxx|<[^>]+>)`),
			Redact:   true,
		},
		{
			ID:       "aws-access-key",
			Severity: model.SeverityCritical,
			Message:  "AWS access key id in source",
			Pattern:  regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
			Redact:   true,
		},
		{
			ID:       "private-key",
			Severity: model.SeverityCritical,
			Message:  "Private key material in source",
			Pattern:  regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY-----`),
		},
		{
			ID:       "eval",
			Severity: model.SeverityWarning,
			Message:  "Dynamic code evaluation",
			Pattern:  regexp.MustCompile(`(?:^|[^\w.])(?:eval|exec)\s*\(`),
		},
		{
			ID:       "shell-injection",
			Severity: model.SeverityCritical,
			Message:  "Command executed through a shell",
			Pattern: regexp.MustCompile(`os\.system\s*\(|os\.popen\s*\(|subprocess\.\w+\([^)]*shell\s*=\s*True|child_process\.exec(?:Sync)?\s*\(|` +
				`Runtime\.getRuntime\(\)\.exec\s*\(|exec\.Command\(\s*"(?:ba|z)?sh"\s*,\s*"-c"`),
		},
		{
			ID:       "sql-concatenation",
			Severity: model.SeverityWarning,
			Message:  "SQL built by string concatenation or formatting",
			Pattern: regexp.MustCompile(`(?i)["'\x60]\s*(?:SELECT|INSERT|UPDATE|DELETE)\b[^"'\x60]*["'\x60]\s*(?:\+|\|\||%\s|\.format\()|` +
				`(?i)f["'](?:SELECT|INSERT|UPDATE|DELETE)\b[^"']*\{|(?i)Sprintf\(\s*"(?:SELECT|INSERT|UPDATE|DELETE)\b[^"]*%[sv]`),
		},
		{
			ID:       "weak-hash",
			Severity: model.SeverityWarning,
			Message:  "MD5 or SHA-1 used",
			Pattern:  regexp.MustCompile(`(?i)hashlib\.(?:md5|sha1)\b|"crypto/(?:md5|sha1)"|\b(?:md5|sha1)\.(?:New|Sum)|createHash\(\s*["'](?:md5|sha1)["']|MessageDigest\.getInstance\(\s*"(?:MD5|SHA-?1)"`),
		},
		{
			ID:       "tls-verification-disabled",
			Severity: model.SeverityCritical,
			Message:  "TLS certificate verification disabled",
			Pattern:  regexp.MustCompile(`InsecureSkipVerify\s*:\s*true|verify\s*=\s*False|rejectUnauthorized\s*:\s*false|NODE_TLS_REJECT_UNAUTHORIZED\s*=\s*["']?0|\bcurl\b[^\n]*\s(?:-k|--insecure)\b`),
		},
		{
			ID:       "unsafe-deserialization",
			Severity: model.SeverityCritical,
			Message:  "Deserialization of untrusted data",
			Pattern:  regexp.MustCompile(`pickle\.loads?\s*\(|yaml\.load\s*\(|\bObjectInputStream\b|Marshal\.load\b|\bunserialize\s*\(`),
			Except:   regexp.MustCompile(`SafeLoader|safe_load`),
		},
		{
			ID:       "plaintext-http",
			Severity: model.SeverityInfo,
			Message:  "Plaintext HTTP URL",
			Pattern:  regexp.MustCompile(`http://[^\s"'<>]+`),
			Except:   regexp.MustCompile(`http://(?:localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1\])|http://[\w.-]*example\.(?:com|org|net)|http://www\.w3\.org/`),
		},
	}
}

// Code is the default CodeAuditor
type Code struct {
	docs  DocumentSource
	rules []Rule
}

// NewCode creates a code auditor; nil rules uses DefaultRules
func NewCode(docs DocumentSource, rules []Rule) *Code {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Code{docs: docs, rules: rules}
}

// AuditCode scans every code segment of the document
func (c *Code) AuditCode(ctx context.Context, documentID string) ([]model.CodeFinding, error) {
	doc, err := c.docs.Document(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	findings := []model.CodeFinding{}
	for _, seg := range doc.Segments {
		if seg.Type != model.ContentCode {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings = append(findings, c.Scan(seg.ID, doc.Contents[seg.ID])...)
	}
	return findings, nil
}

// Scan applies every rule to each line of one segment
func (c *Code) Scan(segmentID, content string) []model.CodeFinding {
	var findings []model.CodeFinding
	for i, line := range strings.Split(content, "\n") {
		for _, r := range c.rules {
			if !r.Pattern.MatchString(line) {
				continue
			}
			if r.Except != nil && r.Except.MatchString(line) {
				continue
			}
			findings = append(findings, model.CodeFinding{
				RuleID:    r.ID,
				Severity:  r.Severity,
				SegmentID: segmentID,
				Line:      i + 1,
				Snippet:   snippet(line, r.Redact),
				Message:   r.Message,
			})
		}
	}
	return findings
}

var (
	quotedLiteral = regexp.MustCompile(`(["'])[^"']{4,}(["'])`)
	awsKey        = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
)

const maxSnippet = 120

func snippet(line string, redact bool) string {
	s := strings.TrimSpace(line)
	if redact {
		s = quotedLiteral.ReplaceAllString(s, `${1}[REDACTED]${2}`)
		s = awsKey.ReplaceAllString(s, "[REDACTED]")
	}
	if r := []rune(s); len(r) > maxSnippet {
		s = string(r[:maxSnippet]) + "..."
	}
	return s
}
