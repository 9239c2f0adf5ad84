// Package history persists run results to a local SQLite database so
// past runs and per-scenario pass rates can be queried later.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/runner"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	errored     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scenarios (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	file        TEXT NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	attempts    INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scenarios_run ON scenarios(run_id);
CREATE INDEX IF NOT EXISTS idx_scenarios_name ON scenarios(name);
`

// DefaultPath is where run history lands unless the config overrides it.
const DefaultPath = ".restspec/history.db"

type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run and returns its id.
func (s *Store) Record(run *runner.RunResult, environment string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	passed, failed, skipped, errored := run.Counts()
	res, err := tx.Exec(
		`INSERT INTO runs (started_at, duration_ms, environment, passed, failed, skipped, errored)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.Duration.Milliseconds(), environment, passed, failed, skipped, errored)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO scenarios (run_id, file, name, status, duration_ms, attempts, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, fr := range run.Files {
		for _, sr := range fr.Results {
			errMsg := ""
			if sr.Err != nil {
				errMsg = sr.Err.Error()
			}
			if _, err := stmt.Exec(runID, fr.File.Path, sr.Scenario.Name,
				sr.Status.String(), sr.Duration.Milliseconds(), sr.Attempts, errMsg); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

type RunSummary struct {
	ID          int64
	StartedAt   time.Time
	DurationMs  int64
	Environment string
	Passed      int
	Failed      int
	Skipped     int
	Errored     int
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, environment, passed, failed, skipped, errored
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationMs, &r.Environment,
			&r.Passed, &r.Failed, &r.Skipped, &r.Errored); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type ScenarioStat struct {
	Name          string
	Runs          int
	Passes        int
	PassRate      float64
	AvgDurationMs float64
}

// ScenarioStats aggregates pass rates per scenario over all recorded
// runs, worst pass rate first. Skipped runs do not count.
func (s *Store) ScenarioStats(limit int) ([]ScenarioStat, error) {
	rows, err := s.db.Query(
		`SELECT name,
		        COUNT(*) AS runs,
		        SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) AS passes,
		        AVG(duration_ms) AS avg_ms
		 FROM scenarios
		 WHERE status != 'skipped'
		 GROUP BY name
		 ORDER BY CAST(passes AS REAL) / runs ASC, runs DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []ScenarioStat
	for rows.Next() {
		var st ScenarioStat
		if err := rows.Scan(&st.Name, &st.Runs, &st.Passes, &st.AvgDurationMs); err != nil {
			return nil, err
		}
		if st.Runs > 0 {
			st.PassRate = float64(st.Passes) / float64(st.Runs)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
