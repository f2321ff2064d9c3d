package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	// Fixed-width so that ts_utc sorts chronologically as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
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

// SaveRun records a run and its diagnostics atomically. A missing ID or
// timestamp is filled in; the stored ID is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.Grammar) == "" {
		return "", fmt.Errorf("run grammar must not be empty")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Outcome == "" {
		run.Outcome = OutcomeOK
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, grammar, path, content_hash, ts_utc, outcome, error, rule_count, diagnostic_count, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Grammar,
			run.Path,
			run.ContentHash,
			run.Timestamp.UTC().Format(timestampLayout),
			string(run.Outcome),
			run.Error,
			run.RuleCount,
			len(run.Diagnostics),
			run.Duration.Nanoseconds(),
		); err != nil {
			return err
		}

		for i, d := range run.Diagnostics {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO run_diagnostics (run_id, seq, code, severity, rule, message) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, i, d.Code, d.Severity, d.Rule, d.Message,
			); err != nil {
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

// ListRuns returns the most recent runs, newest first. An empty grammar lists
// runs of every grammar; limit <= 0 means no limit. Diagnostics are loaded.
func (s *Store) ListRuns(ctx context.Context, grammar string, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, grammar, path, content_hash, ts_utc, outcome, error, rule_count, duration_ns
FROM runs`
	args := make([]any, 0, 2)
	if grammar = strings.TrimSpace(grammar); grammar != "" {
		query += " WHERE grammar = ?"
		args = append(args, grammar)
	}
	query += " ORDER BY ts_utc DESC, id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var runs []Run
	err := s.withRetry("list runs", func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs = runs[:0]
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for i := range runs {
		diags, err := s.loadDiagnostics(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Diagnostics = diags
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

var ErrRunNotFound = errors.New("run not found")

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run Run
	err := s.withRetry("get run", func() error {
		row := s.db.QueryRowContext(ctx, `
SELECT id, grammar, path, content_hash, ts_utc, outcome, error, rule_count, duration_ns
FROM runs WHERE id = ?`, id)
		var err error
		run, err = scanRun(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	if run.Diagnostics, err = s.loadDiagnostics(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Prune keeps only the newest keep runs of grammar and reports how many were
// removed. Diagnostics of removed runs cascade.
func (s *Store) Prune(ctx context.Context, grammar string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	var removed int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs WHERE grammar = ? AND id NOT IN (
  SELECT id FROM runs WHERE grammar = ? ORDER BY ts_utc DESC, id ASC LIMIT ?
)`, grammar, grammar, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		tsRaw      string
		outcome    string
		durationNS int64
	)
	if err := row.Scan(
		&run.ID,
		&run.Grammar,
		&run.Path,
		&run.ContentHash,
		&tsRaw,
		&outcome,
		&run.Error,
		&run.RuleCount,
		&durationNS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	run.Timestamp = ts.UTC()
	run.Outcome = Outcome(outcome)
	run.Duration = time.Duration(durationNS)
	return run, nil
}

func (s *Store) loadDiagnostics(ctx context.Context, runID string) ([]Diagnostic, error) {
	var diags []Diagnostic
	err := s.withRetry("load diagnostics", func() error {
		rows, err := s.db.QueryContext(ctx, `
SELECT code, severity, rule, message FROM run_diagnostics WHERE run_id = ? ORDER BY seq ASC`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		diags = diags[:0]
		for rows.Next() {
			var d Diagnostic
			if err := rows.Scan(&d.Code, &d.Severity, &d.Rule, &d.Message); err != nil {
				return fmt.Errorf("scan diagnostic row: %w", err)
			}
			diags = append(diags, d)
		}
		return rows.Err()
	})
	return diags, err
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

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func sortRunsAscending(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
}
