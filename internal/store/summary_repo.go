package store

import (
	"context"
	"database/sql"

	"netwatch/internal/apperr"
)

// WindowTotals is one window's byte totals.
type WindowTotals struct {
	BytesOut int64
	BytesIn  int64
}

// Summary is the projection backing stats.summary (spec.md §4.9): totals
// for the requested/today window plus the week and month windows, and the
// top app and top domain within the requested window.
type Summary struct {
	Window WindowTotals
	Week   WindowTotals
	Month  WindowTotals

	HasTopApp  bool
	TopAppID   int64
	TopAppName string

	HasTopDomain  bool
	TopDomainID   int64
	TopDomainFQDN string
}

// Summarize computes every summary field inside one read-only transaction
// (spec.md §4.9: "A summary call MUST be a single read transaction;
// partial results are forbidden"), so a concurrent writer can never leave
// the caller with a total from one instant and a top entity from another.
func (s *Store) Summarize(windowFrom, weekFrom, monthFrom, to int64) (Summary, error) {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Summary{}, apperr.TransientIO("begin summary transaction", err)
	}
	defer tx.Rollback()

	var out Summary
	for _, w := range []struct {
		from int64
		dst  *WindowTotals
	}{
		{windowFrom, &out.Window},
		{weekFrom, &out.Week},
		{monthFrom, &out.Month},
	} {
		row := tx.QueryRow(`
			SELECT COALESCE(SUM(bytes_out), 0), COALESCE(SUM(bytes_in), 0)
			FROM raw_samples WHERE ts >= ? AND ts <= ?`, w.from, to)
		if err := row.Scan(&w.dst.BytesOut, &w.dst.BytesIn); err != nil {
			return Summary{}, apperr.TransientIO("summary totals", err)
		}
	}

	appRow := tx.QueryRow(`
		SELECT r.app_id, a.process_name
		FROM raw_samples r
		JOIN applications a ON a.app_id = r.app_id
		WHERE r.ts >= ? AND r.ts <= ?
		GROUP BY r.app_id
		ORDER BY SUM(r.bytes_out) + SUM(r.bytes_in) DESC
		LIMIT 1`, windowFrom, to)
	switch err := appRow.Scan(&out.TopAppID, &out.TopAppName); err {
	case nil:
		out.HasTopApp = true
	case sql.ErrNoRows:
	default:
		return Summary{}, apperr.TransientIO("summary top app", err)
	}

	// Byte sums on browser samples are zero until a byte source exists
	// (spec.md §9 open question 1), so sample count breaks the tie.
	domainRow := tx.QueryRow(`
		SELECT b.domain_id, d.fqdn
		FROM browser_domain_samples b
		JOIN domains d ON d.domain_id = b.domain_id
		WHERE b.ts >= ? AND b.ts <= ?
		GROUP BY b.domain_id
		ORDER BY SUM(b.bytes_out) + SUM(b.bytes_in) DESC, COUNT(*) DESC
		LIMIT 1`, windowFrom, to)
	switch err := domainRow.Scan(&out.TopDomainID, &out.TopDomainFQDN); err {
	case nil:
		out.HasTopDomain = true
	case sql.ErrNoRows:
	default:
		return Summary{}, apperr.TransientIO("summary top domain", err)
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, apperr.TransientIO("commit summary transaction", err)
	}
	return out, nil
}
