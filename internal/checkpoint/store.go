// Package checkpoint persists the reconciled run state in SQLite.
//
// Every join point produces a new immutable snapshot; the store records
// each one under a monotonically increasing sequence number per run, so a
// run's full reconciliation history can be replayed or inspected later.
// Adapted to SQLite with WAL journaling via modernc.org/sqlite (pure Go,
// no cgo).
package checkpoint

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/rejoin/internal/state"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// Run identifies one forked agent run.
type Run struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Entry is one persisted snapshot: the reconciled state after a join.
type Entry struct {
	RunID     string         `json:"run_id"`
	Seq       int64          `json:"seq"`
	Snapshot  state.Snapshot `json:"snapshot"`
	CreatedAt string         `json:"created_at"`
}

// Config holds checkpoint store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".rejoin")}
}

// Store is the snapshot persistence engine backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and bootstraps the schema.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("checkpoint: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "rejoin.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("checkpoint: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq        INTEGER NOT NULL,
			todos      TEXT NOT NULL,
			files      TEXT NOT NULL,
			messages   TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// --- Runs ---

// CreateRun registers a new run and returns it.
func (s *Store) CreateRun(name string) (*Run, error) {
	now := timeNow().UTC().Format(time.RFC3339)
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Name, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: create run: %w", err)
	}
	return run, nil
}

// GetRun loads a run by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	var run Run
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Name, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint: run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns all runs, most recently updated first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, name, created_at, updated_at FROM runs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Name, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("checkpoint: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Snapshots ---

// SaveSnapshot persists a reconciled snapshot under the run's next
// sequence number and returns that number. The sequence is assigned
// inside a transaction so concurrent writers cannot collide.
func (s *Store) SaveSnapshot(runID string, snap state.Snapshot) (int64, error) {
	todos, files, messages, err := encodeSnapshot(snap)
	if err != nil {
		return 0, fmt.Errorf("checkpoint: encode snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("checkpoint: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checkpoint: check run: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("checkpoint: run %q: %w", runID, ErrNotFound)
	}

	var seq int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots WHERE run_id = ?`, runID,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("checkpoint: next seq: %w", err)
	}

	now := timeNow().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO snapshots (run_id, seq, todos, files, messages, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, seq, todos, files, messages, now,
	); err != nil {
		return 0, fmt.Errorf("checkpoint: insert snapshot: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE runs SET updated_at = ? WHERE id = ?`, now, runID,
	); err != nil {
		return 0, fmt.Errorf("checkpoint: touch run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("checkpoint: commit: %w", err)
	}
	return seq, nil
}

// LoadLatest returns the most recent snapshot for a run, or ErrNotFound
// if the run has no snapshots yet.
func (s *Store) LoadLatest(runID string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT run_id, seq, todos, files, messages, created_at
		 FROM snapshots WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, runID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkpoint: no snapshots for run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load latest: %w", err)
	}
	return entry, nil
}

// History returns every snapshot for a run in sequence order.
func (s *Store) History(runID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT run_id, seq, todos, files, messages, created_at
		 FROM snapshots WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: scan snapshot: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// --- Encoding ---

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeSnapshot(snap state.Snapshot) (todos, files, messages string, err error) {
	t, err := json.Marshal(snap.Todos)
	if err != nil {
		return "", "", "", err
	}
	f, err := json.Marshal(snap.Files)
	if err != nil {
		return "", "", "", err
	}
	m, err := json.Marshal(snap.Messages)
	if err != nil {
		return "", "", "", err
	}
	return string(t), string(f), string(m), nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var todos, files, messages string
	if err := row.Scan(&entry.RunID, &entry.Seq, &todos, &files, &messages, &entry.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(todos), &entry.Snapshot.Todos); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &entry.Snapshot.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &entry.Snapshot.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &entry, nil
}
