package query

import "netwatch/internal/store"

// DomainsListRequest mirrors domains.list's parameters (spec.md §6).
type DomainsListRequest struct {
	Limit      int
	Since      *int64
	ParentOnly bool
}

// DomainsList returns domains ranked by browser-attributed bytes, falling
// back to sample count while bytes stay zero (spec.md §9 open question 1).
func (e *Engine) DomainsList(req DomainsListRequest) ([]store.DomainUsage, error) {
	from := int64(0)
	if req.Since != nil {
		from = *req.Since
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1 << 30
	}
	return e.st.TopDomainsByBytes(from, e.clk.Now().Unix(), req.ParentOnly, limit)
}

// DomainsGet is domains.get: a direct lookup, NotFound on miss.
func (e *Engine) DomainsGet(domainID int64) (*store.Domain, error) {
	return e.st.GetDomain(domainID)
}

// DomainsTop is domains.top(N, period): the top N domains by bytes within
// the enumerated period window.
func (e *Engine) DomainsTop(n int, period string) ([]store.DomainUsage, error) {
	width, _, err := resolvePeriod(period)
	if err != nil {
		return nil, err
	}
	now := e.clk.Now().Unix()
	return e.st.TopDomainsByBytes(now-width, now, false, n)
}
