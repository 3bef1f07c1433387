package store

import "database/sql"

// migration is one ordered, idempotent step applied within a single
// transaction. Schema evolution is gated by the schema_version row, the
// same idiom the teacher uses for its own `CREATE TABLE IF NOT EXISTS`
// ladder (cmd/server/db.go), formalized into an explicit migration list
// per spec.md §4.1.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateV1},
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			app_id INTEGER PRIMARY KEY AUTOINCREMENT,
			process_name TEXT NOT NULL,
			bundle_id TEXT NOT NULL DEFAULT '',
			first_seen INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			UNIQUE(process_name, bundle_id)
		)`,
		`CREATE TABLE IF NOT EXISTS domains (
			domain_id INTEGER PRIMARY KEY AUTOINCREMENT,
			fqdn TEXT NOT NULL UNIQUE,
			parent_domain TEXT NOT NULL,
			first_seen INTEGER NOT NULL,
			last_seen INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_domains_parent ON domains(parent_domain)`,
		`CREATE TABLE IF NOT EXISTS raw_samples (
			ts INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			bytes_out INTEGER NOT NULL,
			bytes_in INTEGER NOT NULL,
			packets_out INTEGER NOT NULL DEFAULT 0,
			packets_in INTEGER NOT NULL DEFAULT 0,
			active_connections INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ts, app_id)
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS idx_raw_samples_app_ts ON raw_samples(app_id, ts)`,
		`CREATE TABLE IF NOT EXISTS browser_domain_samples (
			ts INTEGER NOT NULL,
			domain_id INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			bytes_out INTEGER NOT NULL DEFAULT 0,
			bytes_in INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ts, domain_id, app_id)
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS idx_browser_samples_domain_ts ON browser_domain_samples(domain_id, ts)`,
		`CREATE TABLE IF NOT EXISTS hourly_aggregates (
			hour_start INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			sum_bytes_out INTEGER NOT NULL DEFAULT 0,
			sum_bytes_in INTEGER NOT NULL DEFAULT 0,
			sum_packets_out INTEGER NOT NULL DEFAULT 0,
			sum_packets_in INTEGER NOT NULL DEFAULT 0,
			max_active_connections INTEGER NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (hour_start, app_id)
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS idx_hourly_app ON hourly_aggregates(app_id, hour_start)`,
		`CREATE TABLE IF NOT EXISTS daily_aggregates (
			day_start INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			sum_bytes_out INTEGER NOT NULL DEFAULT 0,
			sum_bytes_in INTEGER NOT NULL DEFAULT 0,
			sum_packets_out INTEGER NOT NULL DEFAULT 0,
			sum_packets_in INTEGER NOT NULL DEFAULT 0,
			max_active_connections INTEGER NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (day_start, app_id)
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS idx_daily_app ON daily_aggregates(app_id, day_start)`,
		`CREATE TABLE IF NOT EXISTS browser_hourly (
			hour_start INTEGER NOT NULL,
			domain_id INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			sum_bytes_out INTEGER NOT NULL DEFAULT 0,
			sum_bytes_in INTEGER NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (hour_start, domain_id, app_id)
		) WITHOUT ROWID`,
		`CREATE TABLE IF NOT EXISTS browser_daily (
			day_start INTEGER NOT NULL,
			domain_id INTEGER NOT NULL,
			app_id INTEGER NOT NULL,
			sum_bytes_out INTEGER NOT NULL DEFAULT 0,
			sum_bytes_in INTEGER NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (day_start, domain_id, app_id)
		) WITHOUT ROWID`,
		`CREATE TABLE IF NOT EXISTS retention_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			ts INTEGER NOT NULL,
			records_affected INTEGER NOT NULL,
			details TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retention_log_ts ON retention_log(ts)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// currentVersion reads the single schema_version row, returning 0 if the
// table doesn't exist yet (fresh database).
func currentVersion(db *sql.DB) int {
	var v int
	row := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	if err := row.Scan(&v); err != nil {
		return 0
	}
	return v
}

// migrate runs every migration whose version exceeds the stored version,
// each within its own transaction, then updates schema_version. This is
// the idempotent-DDL + version-gate design spec.md §4.1 requires.
func migrate(db *sql.DB) error {
	have := currentVersion(db)
	for _, m := range migrations {
		if m.version <= have {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
