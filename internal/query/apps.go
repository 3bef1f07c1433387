package query

import (
	"sort"

	"netwatch/internal/store"
)

// AppsListRequest mirrors apps.list's parameters (spec.md §6).
type AppsListRequest struct {
	Limit  int
	Since  *int64
	SortBy string
	Order  string
}

// AppsList returns every known application with its byte totals since
// Since (or all time, if unset), sorted by the requested enumerated key.
func (e *Engine) AppsList(req AppsListRequest) ([]AppUsage, error) {
	if err := validateSort(req.SortBy, req.Order); err != nil {
		return nil, err
	}

	apps, err := e.st.ListApplications()
	if err != nil {
		return nil, err
	}

	from := int64(0)
	if req.Since != nil {
		from = *req.Since
	}
	to := e.clk.Now().Unix()
	sums, err := e.st.SumBytesByApp(from, to)
	if err != nil {
		return nil, err
	}

	out := make([]AppUsage, len(apps))
	for i, a := range apps {
		bytes := sums[a.AppID]
		out[i] = AppUsage{
			AppID:       a.AppID,
			ProcessName: a.ProcessName,
			BundleID:    a.BundleID,
			BytesOut:    bytes[0],
			BytesIn:     bytes[1],
			TotalBytes:  bytes[0] + bytes[1],
			FirstSeen:   a.FirstSeen,
			LastSeen:    a.LastSeen,
		}
	}

	sortAppUsage(out, req.SortBy, req.Order)

	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// AppsGet is apps.get: a direct lookup, NotFound on miss.
func (e *Engine) AppsGet(appID int64) (*store.Application, error) {
	return e.st.GetApplication(appID)
}

func sortAppUsage(apps []AppUsage, sortBy, order string) {
	if sortBy == "" {
		sortBy = "totalBytes"
	}
	desc := order != "asc"

	less := func(i, j int) bool {
		a, b := apps[i], apps[j]
		switch sortBy {
		case "bytesIn":
			return cmp(a.BytesIn, b.BytesIn, desc)
		case "bytesOut":
			return cmp(a.BytesOut, b.BytesOut, desc)
		case "lastSeen":
			return cmp(a.LastSeen, b.LastSeen, desc)
		case "firstSeen":
			return cmp(a.FirstSeen, b.FirstSeen, desc)
		default:
			return cmp(a.TotalBytes, b.TotalBytes, desc)
		}
	}
	sort.SliceStable(apps, less)
}

func cmp(a, b int64, desc bool) bool {
	if desc {
		return a > b
	}
	return a < b
}
