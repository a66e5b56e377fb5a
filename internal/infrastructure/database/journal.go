package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/upload"
)

// ErrInvalidLimit is returned by Recent for a non-positive limit.
var ErrInvalidLimit = errors.New("database: limit must be positive")

// timeLayout stores timestamps as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// CycleRecord is one row of the flush_cycles table.
type CycleRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Status        string    `json:"status"`
	Readings      int       `json:"readings"`
	OffsetSeconds float64   `json:"offset_seconds"`
	Format        string    `json:"format,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Journal persists flush cycle outcomes. It implements upload.Recorder.
type Journal struct {
	db *DB
}

// NewJournal returns a journal backed by db. Run Migrate first.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// RecordCycle inserts one row for c.
func (j *Journal) RecordCycle(ctx context.Context, c upload.Cycle) error {
	var errText sql.NullString
	if c.Err != nil {
		errText = sql.NullString{String: c.Err.Error(), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO flush_cycles
			(id, started_at, finished_at, status, readings, offset_seconds, format, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.StartedAt.UTC().Format(timeLayout),
		c.FinishedAt.UTC().Format(timeLayout),
		string(c.Status),
		len(c.Readings),
		c.Offset,
		c.Format,
		errText,
	)
	if err != nil {
		return fmt.Errorf("recording cycle %s: %w", c.ID, err)
	}
	return nil
}

// Recent returns up to limit cycles, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, readings, offset_seconds, format, error
		FROM flush_cycles
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var (
			r                 CycleRecord
			started, finished string
			errText           sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &r.Readings, &r.OffsetSeconds, &r.Format, &errText); err != nil {
			return nil, fmt.Errorf("scanning cycle row: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)   //nolint:errcheck // Format is controlled
		r.FinishedAt, _ = time.Parse(timeLayout, finished) //nolint:errcheck // Format is controlled
		r.Error = errText.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return out, nil
}
