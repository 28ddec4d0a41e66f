// Package store persists emission factors, activities, calculation runs,
// carbon-credit projects, and users in SQLite.
//
// The engine never touches this package directly: Store satisfies
// engine.Lookup, and the run record written here is the caller-owned
// persistence of the engine's RunResult.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle. Safe for concurrent readers; SQLite
// serializes writers via WAL.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS emission_factors (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT '',
			value REAL,
			scope TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			activity_id_fields TEXT,
			gas_breakdown TEXT,
			gwp_version TEXT NOT NULL DEFAULT '',
			methodology TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			document_title TEXT NOT NULL DEFAULT '',
			valid_from TIMESTAMP,
			valid_to TIMESTAMP,
			uncertainty_value REAL,
			uncertainty_type TEXT NOT NULL DEFAULT '',
			meta TEXT NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL DEFAULT '',
			ef_key TEXT NOT NULL,
			inputs TEXT NOT NULL DEFAULT '{}',
			scope TEXT NOT NULL DEFAULT '',
			period TEXT,
			note TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calculation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id TEXT NOT NULL UNIQUE,
			run_type TEXT NOT NULL,
			total_kgco2e REAL NOT NULL,
			total_tco2e REAL NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			methodology TEXT NOT NULL DEFAULT '',
			baseline_tco2e REAL NOT NULL DEFAULT 0,
			project_tco2e REAL NOT NULL DEFAULT 0,
			leakage_tco2e REAL NOT NULL DEFAULT 0,
			buffer_pct REAL NOT NULL DEFAULT 0,
			vintage TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT '[]',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_ef_key ON activities(ef_key)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON calculation_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement: %w", err)
		}
	}
	return nil
}

// Counts reports table row counts for the dashboard.
type Counts struct {
	EmissionFactors int `json:"efs"`
	Activities      int `json:"activities"`
	Runs            int `json:"runs"`
	CreditProjects  int `json:"credit_projects"`
}

// DashboardCounts returns row counts across the main tables.
func (s *Store) DashboardCounts() (Counts, error) {
	var c Counts
	queries := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM emission_factors", &c.EmissionFactors},
		{"SELECT COUNT(*) FROM activities", &c.Activities},
		{"SELECT COUNT(*) FROM calculation_runs", &c.Runs},
		{"SELECT COUNT(*) FROM credit_projects", &c.CreditProjects},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dst); err != nil {
			return Counts{}, fmt.Errorf("count query: %w", err)
		}
	}
	return c, nil
}
