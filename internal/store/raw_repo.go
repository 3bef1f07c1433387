package store

import (
	"database/sql"

	"netwatch/internal/apperr"
)

// InsertRawSamples batch-inserts one sampler tick's delta rows in a single
// transaction (spec.md §4.5 step 4). ON CONFLICT DO NOTHING enforces the
// "one row per (ts, appId) at most" invariant without the caller needing
// to pre-check.
func (s *Store) InsertRawSamples(samples []RawSample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.Write(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO raw_samples(ts, app_id, bytes_out, bytes_in, packets_out, packets_in, active_connections)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ts, app_id) DO NOTHING`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, r := range samples {
			if _, err := stmt.Exec(r.Ts, r.AppID, r.BytesOut, r.BytesIn, r.PacketsOut, r.PacketsIn, r.ActiveConnections); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// RawSamplesInRange returns raw rows with ts in [fromTs, toTs], optionally
// restricted to a single app.
func (s *Store) RawSamplesInRange(fromTs, toTs int64, appID *int64) ([]RawSample, error) {
	q := `SELECT ts, app_id, bytes_out, bytes_in, packets_out, packets_in, active_connections
	      FROM raw_samples WHERE ts >= ? AND ts <= ?`
	args := []any{fromTs, toTs}
	if appID != nil {
		q += ` AND app_id = ?`
		args = append(args, *appID)
	}
	q += ` ORDER BY ts ASC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, apperr.TransientIO("query raw samples", err)
	}
	defer rows.Close()

	var out []RawSample
	for rows.Next() {
		var r RawSample
		if err := rows.Scan(&r.Ts, &r.AppID, &r.BytesOut, &r.BytesIn, &r.PacketsOut, &r.PacketsIn, &r.ActiveConnections); err != nil {
			return nil, apperr.TransientIO("scan raw sample", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RawHoursCovered returns the distinct hour-start values present in
// raw_samples within [fromTs, toTs]. Used by the Aggregator to find
// candidate finalized hours and by Retention to check every raw row's
// hour has been aggregated before pruning.
func (s *Store) RawHoursCovered(fromTs, toTs int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT (ts / 3600) * 3600 AS hour_start FROM raw_samples WHERE ts >= ? AND ts <= ? ORDER BY hour_start`,
		fromTs, toTs,
	)
	if err != nil {
		return nil, apperr.TransientIO("query raw hours covered", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, apperr.TransientIO("scan hour", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// TickTotal is one tick's bytes summed across every app, used by the
// bandwidth endpoint and the raw-tier timeline bucketer.
type TickTotal struct {
	Ts       int64
	BytesOut int64
	BytesIn  int64
}

// RawBytesByTick returns bytes summed across apps, grouped by ts, within
// [fromTs, toTs], ordered ascending.
func (s *Store) RawBytesByTick(fromTs, toTs int64) ([]TickTotal, error) {
	rows, err := s.db.Query(`
		SELECT ts, COALESCE(SUM(bytes_out), 0), COALESCE(SUM(bytes_in), 0)
		FROM raw_samples WHERE ts >= ? AND ts <= ?
		GROUP BY ts ORDER BY ts ASC`, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("raw bytes by tick", err)
	}
	defer rows.Close()

	var out []TickTotal
	for rows.Next() {
		var t TickTotal
		if err := rows.Scan(&t.Ts, &t.BytesOut, &t.BytesIn); err != nil {
			return nil, apperr.TransientIO("scan tick total", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteRawSamplesBefore deletes every raw row with ts < cutoff, returning
// the number of rows removed. Callers (Retention) are responsible for
// only invoking this once the aggregation-ordering precondition holds.
func (s *Store) DeleteRawSamplesBefore(cutoff int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM raw_samples WHERE ts < ?`, cutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
