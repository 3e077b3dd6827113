// Package queue provides a SQLite-backed repository work queue with
// retry accounting and stuck-job recovery. One orchestrator process
// owns the database file at a time.
package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Status is a repository's position in the processing state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Repo is one queued repository.
type Repo struct {
	ID           int64
	URL          string
	Name         string
	Status       Status
	AttemptCount int
	LastAttempt  time.Time
	ErrorMessage string
}

// CompletionStats records the outcome of a successful mining run.
type CompletionStats struct {
	FilesProcessed    int
	FilesSkipped      int
	ParseErrors       int
	PatternsExtracted int
	TotalFrequency    int
	Duration          time.Duration
	SkipReasons       map[string]int
}

// Store wraps the queue database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the queue database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add enqueues repository URLs as pending, skipping ones already
// present. Returns the number actually inserted.
func (s *Store) Add(ctx context.Context, urls []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	added := 0
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO repos (url, name, status) VALUES (?, ?, ?)`,
			url, RepoName(url), StatusPending)
		if err != nil {
			return 0, fmt.Errorf("enqueuing %s: %w", url, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// NextPending returns the oldest pending repository, or nil when the
// queue is drained.
func (s *Store) NextPending(ctx context.Context) (*Repo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT repo_id, url, name, status, attempt_count, COALESCE(last_attempt, ''), COALESCE(error_message, '')
		 FROM repos WHERE status = ? ORDER BY repo_id LIMIT 1`, StatusPending)

	r, err := scanRepo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// MarkProcessing transitions a repository to processing and charges one
// attempt.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE repos SET status = ?, last_attempt = ?, attempt_count = attempt_count + 1 WHERE repo_id = ?`,
		StatusProcessing, now(), id)
	return err
}

// MarkCompleted records a successful run with its mining statistics.
func (s *Store) MarkCompleted(ctx context.Context, id int64, stats CompletionStats) error {
	reasons, err := json.Marshal(stats.SkipReasons)
	if err != nil {
		return fmt.Errorf("encoding skip reasons: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE repos SET status = ?, files_processed = ?, files_skipped = ?, parse_errors = ?,
		 patterns_extracted = ?, total_frequency = ?, duration_sec = ?, skip_reasons_json = ?, error_message = NULL
		 WHERE repo_id = ?`,
		StatusCompleted, stats.FilesProcessed, stats.FilesSkipped, stats.ParseErrors,
		stats.PatternsExtracted, stats.TotalFrequency, stats.Duration.Seconds(), string(reasons), id)
	return err
}

// MarkFailed records a failed run. Below maxAttempts the repository goes
// back to pending for a retry; at or above it, it is failed for good
// with the (truncated) error message. Returns whether a retry is queued.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) (bool, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`SELECT attempt_count FROM repos WHERE repo_id = ?`, id).Scan(&attempts)
	if err != nil {
		return false, err
	}

	if attempts < maxAttempts {
		_, err = s.db.ExecContext(ctx,
			`UPDATE repos SET status = ? WHERE repo_id = ?`, StatusPending, id)
		return true, err
	}

	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE repos SET status = ?, error_message = ? WHERE repo_id = ?`, StatusFailed, errMsg, id)
	return false, err
}

// RecoverStuck resets repositories stuck in processing longer than
// timeout back to pending. Returns how many were recovered.
func (s *Store) RecoverStuck(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE repos SET status = ? WHERE status = ? AND last_attempt < ?`,
		StatusPending, StatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Counts returns the number of repositories per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM repos GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// RepoName derives "owner/repo" from a clone URL, falling back to the
// URL itself when the shape is unexpected.
func RepoName(url string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return url
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepo(row rowScanner) (*Repo, error) {
	var r Repo
	var lastAttempt string
	if err := row.Scan(&r.ID, &r.URL, &r.Name, &r.Status, &r.AttemptCount, &lastAttempt, &r.ErrorMessage); err != nil {
		return nil, err
	}
	if lastAttempt != "" {
		if ts, err := time.Parse(time.RFC3339, lastAttempt); err == nil {
			r.LastAttempt = ts
		}
	}
	return &r, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
