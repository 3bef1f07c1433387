package store

import (
	"database/sql"
	"errors"

	"netwatch/internal/apperr"
)

// UpsertApplication inserts a new application row with firstSeen=lastSeen=now
// on miss, or bumps lastSeen on hit, returning the stable appId either way.
// This backs AppCatalog's intern-on-miss / bump-on-hit contract (spec.md
// §4.2).
func (s *Store) UpsertApplication(processName, bundleID string, now int64) (int64, error) {
	var appID int64
	err := s.Write(func(db *sql.DB) error {
		row := db.QueryRow(
			`SELECT app_id FROM applications WHERE process_name = ? AND bundle_id = ?`,
			processName, bundleID,
		)
		if err := row.Scan(&appID); err == nil {
			_, err := db.Exec(`UPDATE applications SET last_seen = ? WHERE app_id = ?`, now, appID)
			return err
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		res, err := db.Exec(
			`INSERT INTO applications(process_name, bundle_id, first_seen, last_seen) VALUES (?, ?, ?, ?)`,
			processName, bundleID, now, now,
		)
		if err != nil {
			return err
		}
		appID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return appID, nil
}

// TouchApplicationLastSeen bumps lastSeen without the insert-on-miss path,
// used by the debounced write AppCatalog issues between sampling ticks.
func (s *Store) TouchApplicationLastSeen(appID, now int64) {
	s.WriteAsync(func(db *sql.DB) error {
		_, err := db.Exec(`UPDATE applications SET last_seen = ? WHERE app_id = ?`, now, appID)
		return err
	})
}

// GetApplication looks up a single application by id.
func (s *Store) GetApplication(appID int64) (*Application, error) {
	row := s.db.QueryRow(
		`SELECT app_id, process_name, bundle_id, first_seen, last_seen FROM applications WHERE app_id = ?`,
		appID,
	)
	var a Application
	if err := row.Scan(&a.AppID, &a.ProcessName, &a.BundleID, &a.FirstSeen, &a.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.TransientIO("get application", err)
	}
	return &a, nil
}

// ListApplications returns every known application, unordered; callers
// needing a sort apply it via the query layer's enumerated sort keys.
func (s *Store) ListApplications() ([]Application, error) {
	rows, err := s.db.Query(`SELECT app_id, process_name, bundle_id, first_seen, last_seen FROM applications`)
	if err != nil {
		return nil, apperr.TransientIO("list applications", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.AppID, &a.ProcessName, &a.BundleID, &a.FirstSeen, &a.LastSeen); err != nil {
			return nil, apperr.TransientIO("scan application", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
