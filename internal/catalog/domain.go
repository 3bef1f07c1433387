package catalog

import (
	"strings"

	"netwatch/internal/apperr"
	"netwatch/internal/store"
)

// DomainCatalog normalizes fqdns and derives the two-label parent-domain
// heuristic spec.md §4.3 defines, then interns the result. The parent
// heuristic is deliberately public-suffix-unaware — see spec.md §9 open
// question 2; `bbc.co.uk` rolls up to `co.uk`, not `bbc.co.uk`, and that
// is the documented, tested behavior (spec.md scenario D).
type DomainCatalog struct {
	st *store.Store
}

// NewDomainCatalog constructs a catalog backed by st.
func NewDomainCatalog(st *store.Store) *DomainCatalog {
	return &DomainCatalog{st: st}
}

// Normalize lowercases, trims surrounding whitespace, strips one trailing
// dot, and rejects empty or structurally invalid input (spec.md §4.3).
// Idempotent: Normalize(Normalize(x)) == Normalize(x) (spec.md invariant
// #8).
func Normalize(fqdn string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(fqdn))
	s = strings.TrimSuffix(s, ".")

	if s == "" {
		return "", apperr.Validation("domain must not be empty")
	}
	if strings.HasSuffix(s, ".") {
		return "", apperr.Validation("domain must not end with an empty label")
	}
	for _, r := range s {
		if r <= 0x1f || r == 0x7f {
			return "", apperr.Validation("domain must not contain control characters")
		}
		switch r {
		case '/', ':':
			return "", apperr.Validationf("domain must not contain %q", r)
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return "", apperr.Validation("domain must not contain whitespace")
		}
	}
	return s, nil
}

// ParentOf derives the registrable/parent domain: the last two labels
// joined by a dot, or the whole input when it has two or fewer labels
// (spec.md §4.3). Idempotent: ParentOf(ParentOf(x)) == ParentOf(x)
// (invariant #8), since a parent's own label count is always <= 2.
func ParentOf(fqdn string) string {
	labels := strings.Split(fqdn, ".")
	if len(labels) <= 2 {
		return fqdn
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// Intern normalizes and derives the parent for fqdn, then upserts it,
// returning the stable domainId and the computed parent domain.
func (c *DomainCatalog) Intern(fqdn string, now int64) (domainID int64, parentDomain string, err error) {
	normalized, err := Normalize(fqdn)
	if err != nil {
		return 0, "", err
	}
	parent := ParentOf(normalized)
	domainID, err = c.st.UpsertDomain(normalized, parent, now)
	if err != nil {
		return 0, "", err
	}
	return domainID, parent, nil
}
