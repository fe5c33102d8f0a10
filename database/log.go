package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LogEntryRow is one persisted slog record.
type LogEntryRow struct {
	ID        int64
	Timestamp time.Time
	Level     int
	Message   string
	Attrs     string
}

const (
	insertLogSQL = `INSERT INTO log (ts, level, message, attrs) VALUES (?, ?, ?, ?)`

	selectLogSQL = `
		SELECT id, ts, level, message, attrs
		FROM log
		WHERE level >= ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`

	// Keeps the newest entries.
	purgeLogSQL = `
		DELETE FROM log
		WHERE id NOT IN (SELECT id FROM log ORDER BY id DESC LIMIT ?)`
)

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	if _, err := d.write.ExecContext(ctx, insertLogSQL, r.Timestamp.UnixMilli(), r.Level, r.Message, r.Attrs); err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

// GetLogEntries returns a page of entries at or above minLvl, newest first.
// Pages start at 1.
func (d *Database) GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]LogEntryRow, error) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 10
	}

	rows, err := d.read.QueryContext(ctx, selectLogSQL, int(minLvl), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntryRow, 0, pageSize)
	for rows.Next() {
		var r LogEntryRow
		var ms int64
		if err := rows.Scan(&r.ID, &ms, &r.Level, &r.Message, &r.Attrs); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading log rows: %w", err)
	}
	return entries, nil
}

// PurgeLog deletes everything but the newest maxLogEntries entries.
func (d *Database) PurgeLog(ctx context.Context, maxLogEntries int) error {
	if maxLogEntries < 1 {
		return nil
	}
	res, err := d.write.ExecContext(ctx, purgeLogSQL, maxLogEntries)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.logger.Debug("purged log", slog.Int64("rows", n))
	}
	return nil
}
