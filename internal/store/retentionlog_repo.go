package store

import "database/sql"

// AppendRetentionLog writes one audit entry. Both the Aggregator
// (spec.md §4.7 step 3) and Retention (§4.8) append here so the audit
// trail interleaves aggregate-then-prune in the order they actually ran.
func (s *Store) AppendRetentionLog(operation string, ts int64, recordsAffected int64, details string) error {
	return s.Write(func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO retention_log(operation, ts, records_affected, details) VALUES (?, ?, ?, ?)`,
			operation, ts, recordsAffected, details,
		)
		return err
	})
}

// RecentRetentionLog returns the most recent n audit entries, newest
// first, for the diagnostics/health surface.
func (s *Store) RecentRetentionLog(n int) ([]RetentionLogEntry, error) {
	rows, err := s.db.Query(`SELECT id, operation, ts, records_affected, details FROM retention_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RetentionLogEntry
	for rows.Next() {
		var e RetentionLogEntry
		if err := rows.Scan(&e.ID, &e.Operation, &e.Ts, &e.RecordsAffected, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
