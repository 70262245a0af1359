package audit

import (
	"regexp"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

// Reference is one citation-like construct found in a segment
type Reference struct {
	Kind      model.ReferenceKind
	Key       string // URL, DOI, cite key, or "Author, Year"
	SegmentID string
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^\s)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://[^\s<>"'\x60\])}]+`)
	doiPattern          = regexp.MustCompile(`\b(10\.\d{4,9}/[^\s"'<>\x60\]})]+)`)
	doiURLPattern       = regexp.MustCompile(`(?i)^https?://(?:dx\.)?doi\.org/(10\.\d{4,9}/.+)$`)
	citePattern         = regexp.MustCompile(`\\(?:cite|citep|citet|parencite|textcite|autocite)\*?(?:\[[^\]]*\])*\{([^}]+)\}`)
	bibitemPattern      = regexp.MustCompile(`\\bibitem(?:\[[^\]]*\])?\{([^}]+)\}`)
	authorYearPattern   = regexp.MustCompile(`\(([A-Z][\p{L}'\-]+(?: et al\.)?(?: (?:and|&) [A-Z][\p{L}'\-]+)?),? ((?:1[89]|20)\d{2}[a-z]?)\)`)
)

// ExtractReferences finds URLs, DOIs, LaTeX cite keys and author-year
// citations in one segment. URLs pointing at doi.org are reported as DOIs.
func ExtractReferences(segmentID, content string) []Reference {
	var refs []Reference
	add := func(kind model.ReferenceKind, key string) {
		refs = append(refs, Reference{Kind: kind, Key: key, SegmentID: segmentID})
	}

	urls := findURLs(content)
	for _, raw := range urls {
		if m := doiURLPattern.FindStringSubmatch(raw); m != nil {
			add(model.ReferenceDOI, cleanDOI(m[1]))
			continue
		}
		add(model.ReferenceURL, raw)
	}

	for _, m := range doiPattern.FindAllStringSubmatch(content, -1) {
		doi := cleanDOI(m[1])
		if !withinURL(doi, urls) {
			add(model.ReferenceDOI, doi)
		}
	}

	for _, m := range citePattern.FindAllStringSubmatch(content, -1) {
		for _, key := range strings.Split(m[1], ",") {
			if key = strings.TrimSpace(key); key != "" {
				add(model.ReferenceLatexCite, key)
			}
		}
	}

	for _, m := range authorYearPattern.FindAllStringSubmatch(content, -1) {
		add(model.ReferenceAuthorYear, m[1]+", "+m[2])
	}

	return dedupeReferences(refs)
}

// BibliographyKeys returns the keys defined by \bibitem entries
func BibliographyKeys(content string) []string {
	var keys []string
	for _, m := range bibitemPattern.FindAllStringSubmatch(content, -1) {
		keys = append(keys, strings.TrimSpace(m[1]))
	}
	return keys
}

func findURLs(content string) []string {
	var urls []string
	seen := make(map[string]bool)
	push := func(u string) {
		u = trimURL(u)
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	for _, m := range markdownLinkPattern.FindAllStringSubmatch(content, -1) {
		push(m[1])
	}
	for _, u := range urlPattern.FindAllString(content, -1) {
		push(u)
	}
	return urls
}

func withinURL(s string, urls []string) bool {
	for _, u := range urls {
		if strings.Contains(u, s) {
			return true
		}
	}
	return false
}

// trimURL drops sentence punctuation that the URL pattern swallows
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?*_")
}

func cleanDOI(doi string) string {
	return strings.TrimRight(doi, ".,;:!?")
}

func dedupeReferences(refs []Reference) []Reference {
	seen := make(map[string]bool)
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		key := string(r.Kind) + "\x00" + strings.ToLower(r.Key)
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}
