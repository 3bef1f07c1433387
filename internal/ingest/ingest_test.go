package ingest

import (
	"path/filepath"
	"testing"

	"netwatch/internal/catalog"
	"netwatch/internal/store"
)

func newTestIngest(t *testing.T) (*Ingest, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "netwatch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	domains := catalog.NewDomainCatalog(st)
	apps := catalog.NewAppCatalog(st)
	return New(domains, apps, st), st
}

func TestAcceptInternsDomainAndApp(t *testing.T) {
	ing, st := newTestIngest(t)

	res, err := ing.Accept(Event{FQDN: "www.Example.com.", TsUnix: 100, Browser: "zen"})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.DomainID == 0 {
		t.Fatal("expected nonzero domainId")
	}

	d, err := st.GetDomain(res.DomainID)
	if err != nil {
		t.Fatalf("GetDomain: %v", err)
	}
	if d.FQDN != "www.example.com" {
		t.Errorf("expected normalized fqdn, got %q", d.FQDN)
	}
	if d.ParentDomain != "example.com" {
		t.Errorf("expected parent example.com, got %q", d.ParentDomain)
	}
}

func TestAcceptRejectsInvalidDomain(t *testing.T) {
	ing, _ := newTestIngest(t)
	if _, err := ing.Accept(Event{FQDN: "has space.com", TsUnix: 100, Browser: "zen"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAcceptCoalescesDuplicatesAtSameSecond(t *testing.T) {
	ing, st := newTestIngest(t)

	ev := Event{FQDN: "example.com", TsUnix: 100, Browser: "zen"}
	if _, err := ing.Accept(ev); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Accept(ev); err != nil {
		t.Fatal(err)
	}

	rows, err := st.TopDomainsByBytes(0, 1000, false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].SampleCount != 1 {
		t.Fatalf("expected exactly 1 coalesced sample, got %+v", rows)
	}
}

func TestAcceptUnknownBrowserAcceptedVerbatim(t *testing.T) {
	ing, st := newTestIngest(t)
	if _, err := ing.Accept(Event{FQDN: "example.com", TsUnix: 1, Browser: "obscure-browser"}); err != nil {
		t.Fatal(err)
	}
	apps, err := st.ListApplications()
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 1 || apps[0].ProcessName != "obscure-browser" {
		t.Fatalf("expected unknown browser name used verbatim, got %+v", apps)
	}
}
