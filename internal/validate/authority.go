package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

// AuthorityClassifier assigns cited hosts to authority tiers. Rules are
// checked in order: explicit domain map, primary suffixes, secondary
// suffixes, path patterns, academic and government TLDs.
type AuthorityClassifier struct {
	domainMap map[string]model.AuthorityTier
	primary   []string
	secondary []string
	paths     []pathRule
}

type pathRule struct {
	re   *regexp.Regexp
	tier model.AuthorityTier
}

// academicSuffixes are treated as primary when nothing else matches
var academicSuffixes = []string{".gov", ".edu", ".ac.uk", ".gov.uk", ".mil"}

// NewAuthorityClassifier builds a classifier; nil uses the default config.
// Invalid path patterns are skipped.
func NewAuthorityClassifier(cfg *model.AuthorityConfig) *AuthorityClassifier {
	if cfg == nil {
		def := model.DefaultConfig().Authority
		cfg = &def
	}

	c := &AuthorityClassifier{domainMap: make(map[string]model.AuthorityTier)}
	for host, tier := range cfg.DomainMap {
		c.domainMap[strings.ToLower(host)] = ParseTier(tier)
	}
	for _, d := range cfg.PrimaryDomains {
		c.primary = append(c.primary, strings.ToLower(d))
	}
	for _, d := range cfg.SecondaryDomains {
		c.secondary = append(c.secondary, strings.ToLower(d))
	}
	for _, p := range cfg.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		c.paths = append(c.paths, pathRule{re: re, tier: ParseTier(p.Tier)})
	}
	return c
}

// Classify returns the tier for a URL; unparseable URLs are tertiary
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.TierTertiary
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}
	for _, r := range a.paths {
		if r.re.MatchString(u.Path) {
			return r.tier
		}
	}
	for _, s := range academicSuffixes {
		if strings.HasSuffix(host, s) {
			return model.TierPrimary
		}
	}
	return model.TierTertiary
}

// matchesDomain reports whether host equals or is a subdomain of any domain
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// ParseTier converts a tier name or number to an AuthorityTier
func ParseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
