package store

import (
	"os"
	"path/filepath"
	"testing"
)

// openTestStore mirrors the teacher's TestHelper (cmd/server/db_test.go):
// a temp-file sqlite database with WAL enabled, cleaned up at test end.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "netwatch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestOpenCreatesPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "netwatch.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("expected data dir mode 0700, got %o", info.Mode().Perm())
	}

	finfo, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if finfo.Mode().Perm() != 0o600 {
		t.Errorf("expected store file mode 0600, got %o", finfo.Mode().Perm())
	}
}

func TestSchemaVersionGate(t *testing.T) {
	s := openTestStore(t)
	if v := s.SchemaVersion(); v != 1 {
		t.Errorf("expected schema version 1, got %d", v)
	}
}

func TestUpsertApplicationInternsAndBumpsLastSeen(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.UpsertApplication("chrome", "", 100)
	if err != nil {
		t.Fatalf("UpsertApplication: %v", err)
	}
	id2, err := s.UpsertApplication("chrome", "", 200)
	if err != nil {
		t.Fatalf("UpsertApplication: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected stable appId, got %d then %d", id1, id2)
	}

	app, err := s.GetApplication(id1)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if app.FirstSeen != 100 {
		t.Errorf("expected firstSeen 100, got %d", app.FirstSeen)
	}
	if app.LastSeen != 200 {
		t.Errorf("expected lastSeen bumped to 200, got %d", app.LastSeen)
	}
}

func TestRawSamplesUniquePerTsApp(t *testing.T) {
	s := openTestStore(t)
	appID, _ := s.UpsertApplication("A", "", 0)

	if err := s.InsertRawSamples([]RawSample{
		{Ts: 1, AppID: appID, BytesOut: 500, BytesIn: 0},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Duplicate (ts, appId) must be ignored, not overwritten.
	if err := s.InsertRawSamples([]RawSample{
		{Ts: 1, AppID: appID, BytesOut: 999, BytesIn: 999},
	}); err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}

	rows, err := s.RawSamplesInRange(0, 10, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].BytesOut != 500 {
		t.Errorf("expected original 500 to survive conflict, got %d", rows[0].BytesOut)
	}
}

func TestUpsertAggregateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	appID, _ := s.UpsertApplication("A", "", 0)

	b := Bucket{BucketStart: 3600, AppID: appID, SumBytesOut: 10, SumBytesIn: 5, SampleCount: 1}
	if err := s.UpsertAggregate(TierHourly, b); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertAggregate(TierHourly, b); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	got, err := s.BucketsByApp(TierHourly, appID, 0, 7200)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 bucket row after idempotent upsert, got %d", len(got))
	}
	if got[0].SumBytesOut != 10 {
		t.Errorf("expected sum_bytes_out 10, got %d", got[0].SumBytesOut)
	}
}
