package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.RunID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.SchemaVersion == 0 {
		run.SchemaVersion = SchemaVersion
	}
	if run.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported run schema version %d", run.SchemaVersion)
	}

	query := `
INSERT INTO runs (
  run_id, schema_version, ts_utc, file_count, edge_count, cycle_count,
  critical_count, moderate_count, low_count, unresolved_count, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  file_count=excluded.file_count,
  edge_count=excluded.edge_count,
  cycle_count=excluded.cycle_count,
  critical_count=excluded.critical_count,
  moderate_count=excluded.moderate_count,
  low_count=excluded.low_count,
  unresolved_count=excluded.unresolved_count,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			query,
			run.RunID,
			run.SchemaVersion,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.FileCount,
			run.EdgeCount,
			run.CycleCount,
			run.CriticalCount,
			run.ModerateCount,
			run.LowCount,
			run.UnresolvedCount,
			run.Duration.Milliseconds(),
		)
		return err
	})
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	query := `
SELECT
  run_id, schema_version, ts_utc, file_count, edge_count, cycle_count,
  critical_count, moderate_count, low_count, unresolved_count, duration_ms
FROM runs
ORDER BY ts_utc DESC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			tsRaw      string
			durationMS int64
			run        Run
		)
		if err := rows.Scan(
			&run.RunID,
			&run.SchemaVersion,
			&tsRaw,
			&run.FileCount,
			&run.EdgeCount,
			&run.CycleCount,
			&run.CriticalCount,
			&run.ModerateCount,
			&run.LowCount,
			&run.UnresolvedCount,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
