package reminisce

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// maxHistoryPerPatient caps persisted telemetry rows per patient; the
// oldest rows beyond the cap are pruned at insert time.
const maxHistoryPerPatient = 1000

// HistoryStore persists per-query telemetry to SQLite. Optional: the
// in-memory history slice on the agent stays authoritative for the
// session, this store exists for inspection across runs.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens (or creates) the SQLite database and runs
// migrations.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("reminisce: mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("reminisce: open history db: %w", err)
	}

	// Single connection avoids write contention for our scale
	db.SetMaxOpenConns(1)

	s := &HistoryStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reminisce: migrate history db: %w", err)
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)

	var version int
	s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS query_history (
				id             TEXT PRIMARY KEY,
				session_id     TEXT NOT NULL,
				patient_id     TEXT NOT NULL,
				query          TEXT NOT NULL,
				effectiveness  REAL NOT NULL,
				routine_weight REAL NOT NULL,
				story_weight   REAL NOT NULL,
				result_count   INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_history_patient ON query_history(patient_id);
			CREATE INDEX IF NOT EXISTS idx_history_session ON query_history(session_id);
			CREATE INDEX IF NOT EXISTS idx_history_created ON query_history(created_at);
		`); err != nil {
			return err
		}
		s.db.Exec(`INSERT INTO schema_version (version) VALUES (1)`)
	}

	return nil
}

// Insert stores one history entry and prunes the patient's oldest rows
// beyond the cap.
func (s *HistoryStore) Insert(e HistoryEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO query_history
			(id, session_id, patient_id, query, effectiveness, routine_weight, story_weight, result_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.PatientID, e.Query, e.Effectiveness,
		e.RoutineWeight, e.StoryWeight, e.ResultCount,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	return s.enforceHistoryLimit(e.PatientID, maxHistoryPerPatient)
}

// enforceHistoryLimit deletes the oldest rows beyond the per-patient cap.
func (s *HistoryStore) enforceHistoryLimit(patientID string, limit int) error {
	_, err := s.db.Exec(`
		DELETE FROM query_history
		WHERE patient_id = ? AND id NOT IN (
			SELECT id FROM query_history
			WHERE patient_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)`, patientID, patientID, limit)
	return err
}

// RecentQueries returns the newest entries for a patient, newest first.
func (s *HistoryStore) RecentQueries(patientID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, patient_id, query, effectiveness, routine_weight, story_weight, result_count, created_at
		FROM query_history
		WHERE patient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PatientID, &e.Query,
			&e.Effectiveness, &e.RoutineWeight, &e.StoryWeight, &e.ResultCount, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
