// Package history records one row per generator run in a local sqlite file,
// plus per-package detail rows, so regressions in warning or dependency counts
// can be traced across runs.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Run is one generator invocation over a repository root.
type Run struct {
	ID           string
	Timestamp    time.Time
	Root         string
	PackageCount int
	IndexedCount int
	WarningCount int
	ErrorCount   int
	Duration     time.Duration
	Packages     []PackageRecord
}

// PackageRecord is the per-package outcome within a run.
type PackageRecord struct {
	Package      string
	Namespace    string
	Contributes  int
	Depends      int
	Dependencies int
	WarningCount int
	Changed      bool
	Error        string
}

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

// SaveRun persists a run and its package rows. A zero ID or timestamp is
// filled in here so callers can pass a bare summary.
func (s *Store) SaveRun(run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
INSERT INTO runs (run_id, ts_utc, root, package_count, indexed_count, warning_count, error_count, duration_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
			run.ID,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.Root,
			run.PackageCount,
			run.IndexedCount,
			run.WarningCount,
			run.ErrorCount,
			run.Duration.Milliseconds(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		for _, p := range run.Packages {
			changed := 0
			if p.Changed {
				changed = 1
			}
			_, err = tx.Exec(`
INSERT INTO run_packages (run_id, package, namespace, contributes_count, depends_count, dependency_count, warning_count, changed, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
				run.ID, p.Package, p.Namespace,
				p.Contributes, p.Depends, p.Dependencies,
				p.WarningCount, changed, p.Error,
			)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecentRuns returns up to limit runs, newest first, without package rows.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT run_id, ts_utc, root, package_count, indexed_count, warning_count, error_count, duration_ms
FROM runs
ORDER BY ts_utc DESC
LIMIT ?
`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run        Run
			tsRaw      string
			durationMS int64
		)
		if err := rows.Scan(
			&run.ID, &tsRaw, &run.Root,
			&run.PackageCount, &run.IndexedCount,
			&run.WarningCount, &run.ErrorCount, &durationMS,
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
