package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "catalog.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("expected schema version %d, got %d", len(migrations), v)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSave(&Entry{Path: "/logs/a.mpl", Title: "A"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	e, err := s.Get("/logs/a.mpl")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Title != "A" {
		t.Fatalf("expected entry A after reopen, got %+v", e)
	}
}

func TestCloseNilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil db should not error: %v", err)
	}
}

func TestRecordSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	saved := time.Unix(1700000000, 0)
	e := &Entry{
		Path:          "/logs/bench.mpl",
		Title:         "Bench",
		Description:   "Rig widths",
		PositionCount: 3,
		DesktopCount:  2,
		Digest:        []byte{1, 2, 3},
		LastSaved:     saved,
	}
	if err := s.RecordSave(e); err != nil {
		t.Fatalf("RecordSave failed: %v", err)
	}

	got, err := s.Get(e.Path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry")
	}
	if got.Title != "Bench" || got.PositionCount != 3 || got.DesktopCount != 2 {
		t.Errorf("unexpected entry %+v", got)
	}
	if !got.LastSaved.Equal(saved) {
		t.Errorf("expected last saved %v, got %v", saved, got.LastSaved)
	}
	if !got.LastLoaded.IsZero() {
		t.Errorf("expected zero last loaded, got %v", got.LastLoaded)
	}

	loaded := saved.Add(time.Hour)
	if err := s.RecordLoad(&Entry{Path: e.Path, Title: "Bench 2", PositionCount: 4, LastLoaded: loaded}); err != nil {
		t.Fatalf("RecordLoad failed: %v", err)
	}
	got, _ = s.Get(e.Path)
	if got.Title != "Bench 2" || got.PositionCount != 4 {
		t.Errorf("load did not update entry: %+v", got)
	}
	if !got.LastSaved.Equal(saved) {
		t.Error("load must keep last saved time")
	}
	if !got.LastActivity().Equal(loaded) {
		t.Errorf("expected last activity %v, got %v", loaded, got.LastActivity())
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	e, err := s.Get("/nope.mpl")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil entry, got %+v", e)
	}
}

func TestRecentAndForget(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	s.RecordSave(&Entry{Path: "/a.mpl", LastSaved: base})
	s.RecordSave(&Entry{Path: "/b.mpl", LastSaved: base.Add(2 * time.Minute)})
	s.RecordLoad(&Entry{Path: "/c.mpl", LastLoaded: base.Add(time.Minute)})

	recent, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	want := []string{"/b.mpl", "/c.mpl", "/a.mpl"}
	if len(recent) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(recent))
	}
	for i, p := range want {
		if recent[i].Path != p {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].Path, p)
		}
	}

	limited, _ := s.Recent(1)
	if len(limited) != 1 {
		t.Errorf("expected 1 entry with limit, got %d", len(limited))
	}

	if err := s.Forget("/b.mpl"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if err := s.Forget("/unknown.mpl"); err != nil {
		t.Fatalf("Forget unknown failed: %v", err)
	}
	recent, _ = s.Recent(0)
	if len(recent) != 2 {
		t.Errorf("expected 2 entries after forget, got %d", len(recent))
	}
}

func TestLastDir(t *testing.T) {
	s := openTestStore(t)

	dir, err := s.LastDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "" {
		t.Errorf("expected empty dir, got %q", dir)
	}

	s.SetLastDir("/home/me/logs")
	s.SetLastDir("/home/me/other")
	dir, _ = s.LastDir()
	if dir != "/home/me/other" {
		t.Errorf("expected /home/me/other, got %q", dir)
	}
}

func TestRollbackMigration(t *testing.T) {
	s := openTestStore(t)
	if err := RollbackMigration(s.db); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	v, _ := s.SchemaVersion()
	if v != len(migrations)-1 {
		t.Errorf("expected version %d after rollback, got %d", len(migrations)-1, v)
	}
	if err := MigrateDB(s.db); err != nil {
		t.Fatalf("re-migrate failed: %v", err)
	}
}
