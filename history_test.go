package reminisce

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()
	// Nested path also exercises directory creation.
	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func historyEntry(id, patientID, query string, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:            id,
		SessionID:     "session-1",
		PatientID:     patientID,
		Query:         query,
		Effectiveness: 0.6,
		RoutineWeight: 0.55,
		StoryWeight:   0.45,
		ResultCount:   3,
		CreatedAt:     at,
	}
}

func TestHistoryStoreInsertAndRecent(t *testing.T) {
	store := newTestHistoryStore(t)
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"h1", "h2", "h3"} {
		e := historyEntry(id, "P001", "query "+id, base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := store.Insert(historyEntry("hx", "P002", "other patient", base)); err != nil {
		t.Fatalf("insert hx: %v", err)
	}

	got, err := store.RecentQueries("P001", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "h3" || got[1].ID != "h2" {
		t.Errorf("expected newest first (h3, h2), got (%s, %s)", got[0].ID, got[1].ID)
	}

	e := got[0]
	if e.SessionID != "session-1" || e.PatientID != "P001" || e.Query != "query h3" {
		t.Errorf("fields did not round-trip: %+v", e)
	}
	if e.Effectiveness != 0.6 || e.RoutineWeight != 0.55 || e.StoryWeight != 0.45 || e.ResultCount != 3 {
		t.Errorf("numeric fields did not round-trip: %+v", e)
	}
	if !e.CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected created_at %v, got %v", base.Add(2*time.Minute), e.CreatedAt)
	}
}

func TestHistoryStoreScopedByPatient(t *testing.T) {
	store := newTestHistoryStore(t)
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	store.Insert(historyEntry("a1", "P001", "mine", base))
	store.Insert(historyEntry("b1", "P002", "theirs", base))

	got, err := store.RecentQueries("P001", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("expected only P001 entries, got %+v", got)
	}
}

func TestHistoryStoreDefaultLimit(t *testing.T) {
	store := newTestHistoryStore(t)
	store.Insert(historyEntry("d1", "P001", "q", time.Now()))

	got, err := store.RecentQueries("P001", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("a non-positive limit should fall back to the default, got %d entries", len(got))
	}
}

func TestHistoryStorePrunesOldest(t *testing.T) {
	store := newTestHistoryStore(t)
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		if err := store.Insert(historyEntry(id, "P001", "q", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := store.enforceHistoryLimit("P001", 2); err != nil {
		t.Fatalf("enforce limit: %v", err)
	}

	got, err := store.RecentQueries("P001", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(got))
	}
	if got[0].ID != "p4" || got[1].ID != "p3" {
		t.Errorf("pruning should keep the newest rows, got (%s, %s)", got[0].ID, got[1].ID)
	}
}

func TestHistoryStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewHistoryStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Insert(historyEntry("r1", "P001", "persisted", time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewHistoryStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.RecentQueries("P001", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Query != "persisted" {
		t.Errorf("entries should survive a reopen, got %+v", got)
	}
}
