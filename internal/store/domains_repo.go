package store

import (
	"database/sql"
	"errors"

	"netwatch/internal/apperr"
)

// UpsertDomain interns fqdn (already normalized by DomainCatalog) atomically,
// returning the stable domainId. parentDomain is recomputed by the caller
// on every call so a previously-seen domain whose parent heuristic changes
// (it never does today, but a future public-suffix upgrade could) gets
// refreshed on next sighting.
func (s *Store) UpsertDomain(fqdn, parentDomain string, now int64) (int64, error) {
	var domainID int64
	err := s.Write(func(db *sql.DB) error {
		row := db.QueryRow(`SELECT domain_id FROM domains WHERE fqdn = ?`, fqdn)
		if err := row.Scan(&domainID); err == nil {
			_, err := db.Exec(
				`UPDATE domains SET last_seen = ?, parent_domain = ? WHERE domain_id = ?`,
				now, parentDomain, domainID,
			)
			return err
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		res, err := db.Exec(
			`INSERT INTO domains(fqdn, parent_domain, first_seen, last_seen) VALUES (?, ?, ?, ?)`,
			fqdn, parentDomain, now, now,
		)
		if err != nil {
			return err
		}
		domainID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return domainID, nil
}

// GetDomain looks up a single domain by id.
func (s *Store) GetDomain(domainID int64) (*Domain, error) {
	row := s.db.QueryRow(
		`SELECT domain_id, fqdn, parent_domain, first_seen, last_seen FROM domains WHERE domain_id = ?`,
		domainID,
	)
	var d Domain
	if err := row.Scan(&d.DomainID, &d.FQDN, &d.ParentDomain, &d.FirstSeen, &d.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("domain not found")
		}
		return nil, apperr.TransientIO("get domain", err)
	}
	return &d, nil
}

// ListDomains returns domains, optionally restricted to registrable
// (parent) domains only (spec.md §4.3: fqdn == parent_domain).
func (s *Store) ListDomains(parentOnly bool) ([]Domain, error) {
	q := `SELECT domain_id, fqdn, parent_domain, first_seen, last_seen FROM domains`
	if parentOnly {
		q += ` WHERE fqdn = parent_domain`
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, apperr.TransientIO("list domains", err)
	}
	defer rows.Close()

	var out []Domain
	for rows.Next() {
		var d Domain
		if err := rows.Scan(&d.DomainID, &d.FQDN, &d.ParentDomain, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, apperr.TransientIO("scan domain", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
