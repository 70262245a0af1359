package validate

import (
	"testing"

	"github.com/ppiankov/attributa/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	c := NewAuthorityClassifier(&model.AuthorityConfig{
		PrimaryDomains:   []string{"doi.org", "arxiv.org", "legislation.gov.uk"},
		SecondaryDomains: []string{"wikipedia.org", "GitHub.com"},
		DomainMap:        map[string]string{"blog.arxiv.org": "tertiary", "docs.python.org": "2"},
		PathPatterns: []model.PathPattern{
			{Pattern: `^/papers/`, Tier: "primary"},
			{Pattern: `([`, Tier: "primary"},
		},
	})

	tests := []struct {
		url  string
		want model.AuthorityTier
	}{
		{"https://doi.org/10.1000/xyz", model.TierPrimary},
		{"https://export.arxiv.org/abs/2301.00001", model.TierPrimary},
		{"https://www.legislation.gov.uk/ukpga/1998/42", model.TierPrimary},
		{"https://en.wikipedia.org/wiki/Go", model.TierSecondary},
		{"https://github.com/golang/go", model.TierSecondary},
		{"https://blog.arxiv.org/post", model.TierTertiary},
		{"https://docs.python.org/3/", model.TierSecondary},
		{"https://example.com/papers/1.pdf", model.TierPrimary},
		{"https://cs.stanford.edu/people", model.TierPrimary},
		{"https://www.ox.ac.uk/research", model.TierPrimary},
		{"https://myblog.example.com/post", model.TierTertiary},
		{"http://localhost:8080/x", model.TierTertiary},
		{"not a url", model.TierTertiary},
		{"://bad", model.TierTertiary},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestAuthorityClassifier_DefaultConfig(t *testing.T) {
	c := NewAuthorityClassifier(nil)
	if got := c.Classify("https://arxiv.org/abs/1706.03762"); got != model.TierPrimary {
		t.Errorf("arxiv.org = %s, want primary", got)
	}
	if got := c.Classify("https://en.wikipedia.org/wiki/Transformer"); got != model.TierSecondary {
		t.Errorf("wikipedia.org = %s, want secondary", got)
	}
}

func TestParseTier(t *testing.T) {
	tests := map[string]model.AuthorityTier{
		"primary":   model.TierPrimary,
		" Primary ": model.TierPrimary,
		"1":         model.TierPrimary,
		"secondary": model.TierSecondary,
		"2":         model.TierSecondary,
		"tertiary":  model.TierTertiary,
		"whatever":  model.TierTertiary,
	}
	for in, want := range tests {
		if got := ParseTier(in); got != want {
			t.Errorf("ParseTier(%q) = %s, want %s", in, got, want)
		}
	}
}
