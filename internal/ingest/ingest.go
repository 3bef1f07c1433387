// Package ingest accepts external "active tab" events from a cooperating
// browser agent and attributes them to a browser app via AppCatalog
// (spec.md component C7).
package ingest

import (
	"netwatch/internal/apperr"
	"netwatch/internal/catalog"
	"netwatch/internal/store"
)

// browserProcessNames maps a reported browser label to the process name
// AppCatalog interns it under. Unknown browsers are accepted verbatim
// (spec.md §4.6) so a browser this map doesn't know about still gets a
// stable identity rather than being rejected.
var browserProcessNames = map[string]string{
	"zen":     "zen",
	"firefox": "firefox",
	"chrome":  "chrome",
	"edge":    "msedge",
	"safari":  "Safari",
	"brave":   "brave",
	"arc":     "Arc",
}

// resolveProcessName maps a reported browser label to its process name.
func resolveProcessName(browser string) string {
	if name, ok := browserProcessNames[browser]; ok {
		return name
	}
	return browser
}

// Event is the validated input to Ingest, mirroring the POST payload in
// spec.md §6.
type Event struct {
	FQDN    string
	TsUnix  int64
	Browser string
}

// Ingest is the DomainIngest component. It validates the domain via
// DomainCatalog and records one browser-domain sample, coalescing
// repeated identical posts at the same second via the store's
// ON-CONFLICT-ignore uniqueness (spec.md §4.6).
type Ingest struct {
	domains *catalog.DomainCatalog
	apps    *catalog.AppCatalog
	st      *store.Store
}

// New constructs an Ingest component.
func New(domains *catalog.DomainCatalog, apps *catalog.AppCatalog, st *store.Store) *Ingest {
	return &Ingest{domains: domains, apps: apps, st: st}
}

// Result is returned on success, mirroring the §6 response shape.
type Result struct {
	DomainID int64
}

// Accept validates and records one active-tab event.
func (i *Ingest) Accept(ev Event) (Result, error) {
	if ev.FQDN == "" {
		return Result{}, apperr.Validation("domain must not be empty")
	}
	if ev.TsUnix <= 0 {
		return Result{}, apperr.Validation("timestamp must be positive")
	}

	domainID, _, err := i.domains.Intern(ev.FQDN, ev.TsUnix)
	if err != nil {
		return Result{}, err
	}

	processName := resolveProcessName(ev.Browser)
	appID, err := i.apps.Resolve(processName, "", ev.TsUnix, 1)
	if err != nil {
		return Result{}, err
	}

	if err := i.st.InsertBrowserDomainSample(store.BrowserDomainSample{
		Ts:       ev.TsUnix,
		DomainID: domainID,
		AppID:    appID,
		BytesOut: 0,
		BytesIn:  0,
	}); err != nil {
		return Result{}, err
	}

	return Result{DomainID: domainID}, nil
}
