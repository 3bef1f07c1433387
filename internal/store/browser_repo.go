package store

import (
	"database/sql"

	"netwatch/internal/apperr"
)

// InsertBrowserDomainSample records one active-tab observation. The
// primary key (ts, domain_id, app_id) plus ON CONFLICT DO NOTHING gives
// the idempotent-by-uniqueness coalescing spec.md §4.6 requires for
// repeated identical posts within the same second.
func (s *Store) InsertBrowserDomainSample(sample BrowserDomainSample) error {
	return s.Write(func(db *sql.DB) error {
		_, err := db.Exec(`
			INSERT INTO browser_domain_samples(ts, domain_id, app_id, bytes_out, bytes_in)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(ts, domain_id, app_id) DO NOTHING`,
			sample.Ts, sample.DomainID, sample.AppID, sample.BytesOut, sample.BytesIn)
		return err
	})
}

// TopDomainsByBytes sums bytes_out+bytes_in per domain within range,
// restricted to registrable (parent) domains when parentOnly is set, and
// returns the top N descending. Byte fields are always zero today (spec.md
// §9 open question 1); sample_count is the practical ranking signal until
// a byte source is introduced.
func (s *Store) TopDomainsByBytes(fromTs, toTs int64, parentOnly bool, limit int) ([]DomainUsage, error) {
	q := `
		SELECT d.domain_id, d.fqdn, d.parent_domain,
		       COALESCE(SUM(b.bytes_out), 0), COALESCE(SUM(b.bytes_in), 0), COUNT(b.ts)
		FROM domains d
		JOIN browser_domain_samples b ON b.domain_id = d.domain_id
		WHERE b.ts >= ? AND b.ts <= ?`
	if parentOnly {
		q += ` AND d.fqdn = d.parent_domain`
	}
	q += ` GROUP BY d.domain_id ORDER BY (COALESCE(SUM(b.bytes_out),0) + COALESCE(SUM(b.bytes_in),0)) DESC, COUNT(b.ts) DESC LIMIT ?`

	rows, err := s.db.Query(q, fromTs, toTs, limit)
	if err != nil {
		return nil, apperr.TransientIO("top domains", err)
	}
	defer rows.Close()

	var out []DomainUsage
	for rows.Next() {
		var du DomainUsage
		if err := rows.Scan(&du.DomainID, &du.FQDN, &du.ParentDomain, &du.BytesOut, &du.BytesIn, &du.SampleCount); err != nil {
			return nil, apperr.TransientIO("scan top domain", err)
		}
		out = append(out, du)
	}
	return out, rows.Err()
}

// DomainUsage is the projection backing domains.list/domains.top.
type DomainUsage struct {
	DomainID     int64  `json:"domainId"`
	FQDN         string `json:"fqdn"`
	ParentDomain string `json:"parentDomain"`
	BytesOut     int64  `json:"bytesOut"`
	BytesIn      int64  `json:"bytesIn"`
	SampleCount  int64  `json:"sampleCount"`
}

func (t tier) browserTable() string {
	if t == TierDaily {
		return "browser_daily"
	}
	return "browser_hourly"
}

// BrowserHoursCovered returns the distinct hour starts present in
// browser_domain_samples within [fromTs, toTs], mirroring RawHoursCovered
// for the browser tier.
func (s *Store) BrowserHoursCovered(fromTs, toTs int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT (ts / 3600) * 3600 AS hour_start FROM browser_domain_samples WHERE ts >= ? AND ts <= ? ORDER BY hour_start`,
		fromTs, toTs,
	)
	if err != nil {
		return nil, apperr.TransientIO("query browser hours covered", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, apperr.TransientIO("scan browser hour", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// BrowserBucketStartsCovered is BucketStartsCovered for the browser
// aggregate tiers.
func (s *Store) BrowserBucketStartsCovered(t tier, fromTs, toTs int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT `+t.bucketCol()+` FROM `+t.browserTable()+` WHERE `+t.bucketCol()+` >= ? AND `+t.bucketCol()+` <= ?`, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("browser bucket starts covered", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var b int64
		if err := rows.Scan(&b); err != nil {
			return nil, apperr.TransientIO("scan browser bucket start", err)
		}
		out[b] = true
	}
	return out, rows.Err()
}

// RollupBrowserRawHour aggregates browser_domain_samples in
// [hourStart, hourStart+1h) into browser_hourly in one statement, keyed
// by (hour_start, domain_id, app_id). Byte sums stay zero until a byte
// source is introduced (spec.md §9 open question 1); sample_count is the
// live signal.
func (s *Store) RollupBrowserRawHour(hourStart int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`
			INSERT INTO browser_hourly(hour_start, domain_id, app_id, sum_bytes_out, sum_bytes_in, sample_count)
			SELECT ?, domain_id, app_id,
			       COALESCE(SUM(bytes_out), 0), COALESCE(SUM(bytes_in), 0), COUNT(*)
			FROM browser_domain_samples
			WHERE ts >= ? AND ts < ?
			GROUP BY domain_id, app_id
			ON CONFLICT(hour_start, domain_id, app_id) DO UPDATE SET
			  sum_bytes_out = excluded.sum_bytes_out,
			  sum_bytes_in = excluded.sum_bytes_in,
			  sample_count = excluded.sample_count`,
			hourStart, hourStart, hourStart+3600)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// RollupBrowserHourlyDay rolls browser_hourly rows up into browser_daily.
func (s *Store) RollupBrowserHourlyDay(dayStart int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`
			INSERT INTO browser_daily(day_start, domain_id, app_id, sum_bytes_out, sum_bytes_in, sample_count)
			SELECT ?, domain_id, app_id,
			       COALESCE(SUM(sum_bytes_out), 0), COALESCE(SUM(sum_bytes_in), 0), COALESCE(SUM(sample_count), 0)
			FROM browser_hourly
			WHERE hour_start >= ? AND hour_start < ?
			GROUP BY domain_id, app_id
			ON CONFLICT(day_start, domain_id, app_id) DO UPDATE SET
			  sum_bytes_out = excluded.sum_bytes_out,
			  sum_bytes_in = excluded.sum_bytes_in,
			  sample_count = excluded.sample_count`,
			dayStart, dayStart, dayStart+86400)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// DeleteBrowserSamplesBefore deletes browser_domain_samples rows with
// ts < cutoff. Same ordering contract as DeleteRawSamplesBefore: the
// caller checks aggregation coverage first.
func (s *Store) DeleteBrowserSamplesBefore(cutoff int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM browser_domain_samples WHERE ts < ?`, cutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// DeleteBrowserAggregatesBefore deletes browser tier rows with bucket
// start < cutoff.
func (s *Store) DeleteBrowserAggregatesBefore(t tier, cutoff int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM `+t.browserTable()+` WHERE `+t.bucketCol()+` < ?`, cutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
