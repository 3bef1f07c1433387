// Package catalog interns process identities and domain names into the
// stable ids the rest of netwatch stores against (spec.md components C3
// and C4).
package catalog

import (
	"netwatch/internal/store"
)

type appKey struct {
	processName string
	bundleID    string
}

// AppCatalog interns (processName, bundleId) pairs into a stable appId.
// Resolution is served from an in-memory map — bounded by the number of
// distinct applications on a host (tens to hundreds, spec.md §4.2) — so
// the sampler's hot path only touches the store on first sighting of an
// identity; every later tick debounces lastSeen into an async write.
type AppCatalog struct {
	st       *store.Store
	ids      map[appKey]int64
	lastBump map[int64]int64 // appId -> last bumped unix second
}

// NewAppCatalog constructs a catalog backed by st.
func NewAppCatalog(st *store.Store) *AppCatalog {
	return &AppCatalog{
		st:       st,
		ids:      make(map[appKey]int64),
		lastBump: make(map[int64]int64),
	}
}

// Preload populates the in-memory cache from every application already in
// the store, so a restart doesn't re-trigger a store write for identities
// already interned.
func (c *AppCatalog) Preload() error {
	apps, err := c.st.ListApplications()
	if err != nil {
		return err
	}
	for _, a := range apps {
		c.ids[appKey{a.ProcessName, a.BundleID}] = a.AppID
		c.lastBump[a.AppID] = a.LastSeen
	}
	return nil
}

// Resolve interns processName/bundleID, returning the stable appId. On a
// cache hit it debounces the lastSeen bump to at most once per
// minIntervalSeconds (spec.md §4.2); on a cache miss it performs a
// synchronous intern-or-update write and caches the result.
func (c *AppCatalog) Resolve(processName, bundleID string, now int64, minIntervalSeconds int64) (int64, error) {
	key := appKey{processName, bundleID}
	if appID, ok := c.ids[key]; ok {
		c.touch(appID, now, minIntervalSeconds)
		return appID, nil
	}

	appID, err := c.st.UpsertApplication(processName, bundleID, now)
	if err != nil {
		return 0, err
	}
	c.ids[key] = appID
	c.lastBump[appID] = now
	return appID, nil
}

func (c *AppCatalog) touch(appID, now, minIntervalSeconds int64) {
	if last, ok := c.lastBump[appID]; ok && now-last < minIntervalSeconds {
		return
	}
	c.lastBump[appID] = now
	c.st.TouchApplicationLastSeen(appID, now)
}
