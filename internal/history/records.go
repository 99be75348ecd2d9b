package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of a recorded job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusRejected marks items stopped by validation or configuration errors
	// before the encoder ran.
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return []Status{StatusSucceeded, StatusFailed, StatusRejected, StatusCancelled}
}

// Record is one ledger row.
type Record struct {
	ID           int64
	RunID        string
	Kind         string
	Source       string
	Output       string
	Status       Status
	ErrorKind    string
	ErrorMessage string
	ExitCode     int
	Command      string
	StartedAt    time.Time
	Duration     time.Duration
}

// timestampLayout has a fixed-width fraction so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, run_id, kind, source, output, status, error_kind, error_message, exit_code, command, started_at, duration_ms"

// Add inserts rec and returns its row id.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	if strings.TrimSpace(rec.RunID) == "" {
		return 0, errors.New("history: run id required")
	}
	if strings.TrimSpace(rec.Source) == "" {
		return 0, errors.New("history: source required")
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (run_id, kind, source, output, status, error_kind, error_message, exit_code, command, started_at, duration_ms)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Kind,
		rec.Source,
		nullIfEmpty(rec.Output),
		string(rec.Status),
		nullIfEmpty(rec.ErrorKind),
		nullIfEmpty(rec.ErrorMessage),
		rec.ExitCode,
		nullIfEmpty(rec.Command),
		started.UTC().Format(timestampLayout),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit rows, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM jobs ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ByRun returns the rows of one batch in insertion order.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Record, error) {
	return s.query(ctx, "SELECT "+recordColumns+" FROM jobs WHERE run_id = ? ORDER BY id", runID)
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// PruneBefore deletes rows that started before cutoff.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM jobs WHERE started_at < ?", cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every row.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM jobs")
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec          Record
		status       string
		output       sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		command      sql.NullString
		startedRaw   string
		durationMS   int64
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Kind,
		&rec.Source,
		&output,
		&status,
		&errorKind,
		&errorMessage,
		&rec.ExitCode,
		&command,
		&startedRaw,
		&durationMS,
	); err != nil {
		return Record{}, fmt.Errorf("scan job: %w", err)
	}
	rec.Status = Status(status)
	rec.Output = output.String
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMessage.String
	rec.Command = command.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := time.Parse(timestampLayout, startedRaw); err == nil {
		rec.StartedAt = ts
	}
	return rec, nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
