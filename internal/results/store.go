// Package results persists run history to SQLite so experiment sweeps can
// be compared without re-parsing result CSVs.
package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one finished replay.
type Run struct {
	ID           string
	StartedAt    time.Time
	Dataset      string
	NIDS         string
	Strategy     string
	FPR          float64
	Eps          float64
	KPrompt      int
	UpdateTimeMs int64
	Seed         int
	Steps        int
	CBR          float64
	WBR          float64
	Rules        []string
	ResultFile   string
	Duration     float64 // seconds
}

// Store provides persistent storage for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run-history database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		dataset TEXT NOT NULL,
		nids TEXT NOT NULL,
		strategy TEXT NOT NULL,
		fpr REAL,
		eps REAL,
		k_prompt INTEGER,
		update_time_ms INTEGER,
		seed INTEGER,
		steps INTEGER,
		cbr REAL,
		wbr REAL,
		rules TEXT,
		result_file TEXT,
		duration_s REAL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Record persists a finished run. A missing ID is generated.
func (s *Store) Record(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, dataset, nids, strategy, fpr, eps, k_prompt,
			update_time_ms, seed, steps, cbr, wbr, rules, result_file, duration_s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.Unix(), r.Dataset, r.NIDS, r.Strategy, r.FPR, r.Eps, r.KPrompt,
		r.UpdateTimeMs, r.Seed, r.Steps, r.CBR, r.WBR, strings.Join(r.Rules, "\n"),
		r.ResultFile, r.Duration)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return r.ID, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, dataset, nids, strategy, fpr, eps, k_prompt,
			update_time_ms, seed, steps, cbr, wbr, rules, result_file, duration_s
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var rules string
		if err := rows.Scan(&r.ID, &started, &r.Dataset, &r.NIDS, &r.Strategy, &r.FPR,
			&r.Eps, &r.KPrompt, &r.UpdateTimeMs, &r.Seed, &r.Steps, &r.CBR, &r.WBR,
			&rules, &r.ResultFile, &r.Duration); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		if rules != "" {
			r.Rules = strings.Split(rules, "\n")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
