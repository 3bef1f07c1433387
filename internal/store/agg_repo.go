package store

import (
	"database/sql"

	"netwatch/internal/apperr"
)

// tier names the two aggregate resolutions. Using a closed type instead
// of letting callers pass table name strings keeps raw SQL from crossing
// the package boundary (spec.md §4.1).
type tier string

const (
	TierHourly tier = "hourly"
	TierDaily  tier = "daily"
)

func (t tier) table() string {
	if t == TierDaily {
		return "daily_aggregates"
	}
	return "hourly_aggregates"
}

func (t tier) bucketCol() string {
	if t == TierDaily {
		return "day_start"
	}
	return "hour_start"
}

// UpsertAggregate replaces (not adds to) the bucket row for (bucketStart,
// appId), making repeated Aggregator runs idempotent (spec.md §4.7 step 2,
// invariant #6).
func (s *Store) UpsertAggregate(t tier, b Bucket) error {
	return s.Write(func(db *sql.DB) error {
		q := `INSERT INTO ` + t.table() + `(` + t.bucketCol() + `, app_id, sum_bytes_out, sum_bytes_in, sum_packets_out, sum_packets_in, max_active_connections, sample_count)
		      VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		      ON CONFLICT(` + t.bucketCol() + `, app_id) DO UPDATE SET
		        sum_bytes_out = excluded.sum_bytes_out,
		        sum_bytes_in = excluded.sum_bytes_in,
		        sum_packets_out = excluded.sum_packets_out,
		        sum_packets_in = excluded.sum_packets_in,
		        max_active_connections = excluded.max_active_connections,
		        sample_count = excluded.sample_count`
		_, err := db.Exec(q, b.BucketStart, b.AppID, b.SumBytesOut, b.SumBytesIn, b.SumPacketsOut, b.SumPacketsIn, b.MaxActiveConnections, b.SampleCount)
		return err
	})
}

// RollupRawHour aggregates every raw row in [hourStart, hourStart+1h)
// into hourly_aggregates as a single statement — sum for byte/packet
// fields, max for active connections, count for samples — replacing (not
// adding to) any existing rows for the hour so repeated runs are
// idempotent (spec.md §4.7 step 2, invariant #6). One statement means one
// transaction per bucket, exactly the unit of work §4.7 prescribes.
func (s *Store) RollupRawHour(hourStart int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`
			INSERT INTO hourly_aggregates(hour_start, app_id, sum_bytes_out, sum_bytes_in, sum_packets_out, sum_packets_in, max_active_connections, sample_count)
			SELECT ?, app_id,
			       COALESCE(SUM(bytes_out), 0), COALESCE(SUM(bytes_in), 0),
			       COALESCE(SUM(packets_out), 0), COALESCE(SUM(packets_in), 0),
			       COALESCE(MAX(active_connections), 0), COUNT(*)
			FROM raw_samples
			WHERE ts >= ? AND ts < ?
			GROUP BY app_id
			ON CONFLICT(hour_start, app_id) DO UPDATE SET
			  sum_bytes_out = excluded.sum_bytes_out,
			  sum_bytes_in = excluded.sum_bytes_in,
			  sum_packets_out = excluded.sum_packets_out,
			  sum_packets_in = excluded.sum_packets_in,
			  max_active_connections = excluded.max_active_connections,
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

// RollupHourlyDay rolls hourly_aggregates rows in [dayStart, dayStart+1d)
// up into daily_aggregates, again as one statement (spec.md invariant #4:
// daily = sum of hourly constituents).
func (s *Store) RollupHourlyDay(dayStart int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`
			INSERT INTO daily_aggregates(day_start, app_id, sum_bytes_out, sum_bytes_in, sum_packets_out, sum_packets_in, max_active_connections, sample_count)
			SELECT ?, app_id,
			       COALESCE(SUM(sum_bytes_out), 0), COALESCE(SUM(sum_bytes_in), 0),
			       COALESCE(SUM(sum_packets_out), 0), COALESCE(SUM(sum_packets_in), 0),
			       COALESCE(MAX(max_active_connections), 0), COALESCE(SUM(sample_count), 0)
			FROM hourly_aggregates
			WHERE hour_start >= ? AND hour_start < ?
			GROUP BY app_id
			ON CONFLICT(day_start, app_id) DO UPDATE SET
			  sum_bytes_out = excluded.sum_bytes_out,
			  sum_bytes_in = excluded.sum_bytes_in,
			  sum_packets_out = excluded.sum_packets_out,
			  sum_packets_in = excluded.sum_packets_in,
			  max_active_connections = excluded.max_active_connections,
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

// BucketsInRange returns aggregate rows for tier t with bucket start in
// [fromTs, toTs], summed across apps and grouped by bucket (used by the
// timeline query tier).
func (s *Store) BucketsInRange(t tier, fromTs, toTs int64) ([]Bucket, error) {
	q := `SELECT ` + t.bucketCol() + `, 0,
	             COALESCE(SUM(sum_bytes_out), 0), COALESCE(SUM(sum_bytes_in), 0),
	             COALESCE(SUM(sum_packets_out), 0), COALESCE(SUM(sum_packets_in), 0),
	             COALESCE(MAX(max_active_connections), 0), COALESCE(SUM(sample_count), 0)
	      FROM ` + t.table() + `
	      WHERE ` + t.bucketCol() + ` >= ? AND ` + t.bucketCol() + ` <= ?
	      GROUP BY ` + t.bucketCol() + `
	      ORDER BY ` + t.bucketCol() + ` ASC`
	rows, err := s.db.Query(q, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("query bucket range", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.BucketStart, &b.AppID, &b.SumBytesOut, &b.SumBytesIn, &b.SumPacketsOut, &b.SumPacketsIn, &b.MaxActiveConnections, &b.SampleCount); err != nil {
			return nil, apperr.TransientIO("scan bucket", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BucketsByApp returns every bucket row for tier t restricted to one app,
// within range — used by per-app drilldowns (apps.timeline).
func (s *Store) BucketsByApp(t tier, appID, fromTs, toTs int64) ([]Bucket, error) {
	q := `SELECT ` + t.bucketCol() + `, app_id, sum_bytes_out, sum_bytes_in, sum_packets_out, sum_packets_in, max_active_connections, sample_count
	      FROM ` + t.table() + `
	      WHERE app_id = ? AND ` + t.bucketCol() + ` >= ? AND ` + t.bucketCol() + ` <= ?
	      ORDER BY ` + t.bucketCol() + ` ASC`
	rows, err := s.db.Query(q, appID, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("query app buckets", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.BucketStart, &b.AppID, &b.SumBytesOut, &b.SumBytesIn, &b.SumPacketsOut, &b.SumPacketsIn, &b.MaxActiveConnections, &b.SampleCount); err != nil {
			return nil, apperr.TransientIO("scan app bucket", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SumBytesByApp sums bytes_out/bytes_in across raw_samples for every app
// in range, used by apps.list totals.
func (s *Store) SumBytesByApp(fromTs, toTs int64) (map[int64][2]int64, error) {
	rows, err := s.db.Query(`
		SELECT app_id, COALESCE(SUM(bytes_out), 0), COALESCE(SUM(bytes_in), 0)
		FROM raw_samples WHERE ts >= ? AND ts <= ? GROUP BY app_id`, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("sum bytes by app", err)
	}
	defer rows.Close()

	out := make(map[int64][2]int64)
	for rows.Next() {
		var appID, out_, in_ int64
		if err := rows.Scan(&appID, &out_, &in_); err != nil {
			return nil, apperr.TransientIO("scan sum bytes by app", err)
		}
		out[appID] = [2]int64{out_, in_}
	}
	return out, rows.Err()
}

// DeleteAggregatesBefore deletes tier rows with bucket start < cutoff.
func (s *Store) DeleteAggregatesBefore(t tier, cutoff int64) (int64, error) {
	var affected int64
	err := s.Write(func(db *sql.DB) error {
		res, err := db.Exec(`DELETE FROM `+t.table()+` WHERE `+t.bucketCol()+` < ?`, cutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// BucketStartsCovered returns the distinct bucket starts present in tier
// t within [fromTs, toTs] — used by Retention to verify every hour is
// present in HourlyAggregate before pruning raw samples and every day is
// present in DailyAggregate before pruning HourlyAggregate.
func (s *Store) BucketStartsCovered(t tier, fromTs, toTs int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT `+t.bucketCol()+` FROM `+t.table()+` WHERE `+t.bucketCol()+` >= ? AND `+t.bucketCol()+` <= ?`, fromTs, toTs)
	if err != nil {
		return nil, apperr.TransientIO("bucket starts covered", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var b int64
		if err := rows.Scan(&b); err != nil {
			return nil, apperr.TransientIO("scan bucket start", err)
		}
		out[b] = true
	}
	return out, rows.Err()
}
