// Package store is netwatch's embedded single-file relational store
// (spec.md §4.1, component C2). It owns schema DDL, migrations, and
// transactions, and is the only package in the module that imports
// database/sql or writes raw SQL — every other package talks to it
// through the typed repository methods in this package.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"netwatch/internal/apperr"
)

// Store owns the sqlite connection pool and the single serialized writer.
// Reads go straight through db (concurrent, consistent-snapshot per
// statement under WAL); writes are funneled through w.
type Store struct {
	db   *sql.DB
	w    *writer
	path string
}

// Open creates the data directory (mode 0700) if needed, opens or creates
// the store file (mode 0600), enables WAL, and runs pending migrations.
// Grounded on the teacher's InitDatabase (cmd/server/db.go) — same
// open-then-pragma sequence, extended with the directory/file permission
// and explicit migration-gate requirements of spec.md §4.1.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperr.Fatal("create data directory", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		return nil, apperr.Fatal("set data directory permissions", err)
	}

	// Touch the file first so we can fix its mode before sqlite ever
	// writes through it — database/sql's lazy-open means sql.Open alone
	// doesn't guarantee the file exists yet.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if ferr != nil {
			return nil, apperr.Fatal("create store file", ferr)
		}
		f.Close()
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return nil, apperr.Fatal("set store file permissions", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, apperr.Fatal("open store", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, apperr.Fatal("enable WAL", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL`); err != nil {
		db.Close()
		return nil, apperr.Fatal("set synchronous mode", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, apperr.Fatal("enable foreign keys", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, apperr.Fatal("run migrations", err)
	}

	// Single writer goroutine: concurrent writers would serialize at
	// the sqlite layer anyway, but routing every write through one
	// goroutine (writer) removes lock-wait stalls from the read path
	// entirely, per spec.md §9's "single-writer store" design note. The
	// pool itself holds up to 8 connections, shared by readers and the
	// writer goroutine.
	db.SetMaxOpenConns(8)

	return &Store{
		db:   db,
		w:    newWriter(db, 256),
		path: path,
	}, nil
}

// Close stops the writer (draining in-flight work) then closes the pool.
func (s *Store) Close() error {
	s.w.Close()
	return s.db.Close()
}

// Path returns the on-disk store file location (used by diagnostics).
func (s *Store) Path() string { return s.path }

// SchemaVersion reports the currently applied schema version.
func (s *Store) SchemaVersion() int { return currentVersion(s.db) }

// Write runs fn against the underlying *sql.DB on the single writer
// goroutine and blocks for the result. Every mutating repository method
// in this package is built on top of this.
func (s *Store) Write(fn func(*sql.DB) error) error {
	if err := s.w.Sync(fn); err != nil {
		return apperr.TransientIO("store write failed", err)
	}
	return nil
}

// WriteAsync is the fire-and-forget variant, used for debounced
// last-seen bumps where occasionally dropping an update under load is
// acceptable (spec.md §4.2).
func (s *Store) WriteAsync(fn func(*sql.DB) error) {
	s.w.Async(fn)
}

// DB exposes the read-only connection pool. Only repository files in this
// package should call this; it is unexported-equivalent in spirit but
// exported so _test.go files in this package (and only this package) can
// seed fixtures directly.
func (s *Store) DB() *sql.DB { return s.db }
