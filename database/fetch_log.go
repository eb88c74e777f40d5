package database

import (
	"context"
	"fmt"
	"time"
)

// FetchLogRow is one line in the fetch audit trail, written after every
// attempt against the day-ahead API.
type FetchLogRow struct {
	FetchedAt    time.Time
	Area         string
	DeliveryDate string
	Slot         string
	Outcome      string
	Status       string
	RowCount     int
	Detail       string
}

const (
	FetchOutcomeUpdated      = "updated"
	FetchOutcomeNotPublished = "not_published"
	FetchOutcomeUnavailable  = "unavailable"
	FetchOutcomeError        = "error"
)

func (d *Database) SaveFetchLog(ctx context.Context, r FetchLogRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO fetch_log (fetched_at, area, delivery_date, slot, outcome, status, row_count, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FetchedAt.UTC().Format(time.RFC3339),
		r.Area,
		r.DeliveryDate,
		r.Slot,
		r.Outcome,
		r.Status,
		r.RowCount,
		r.Detail)
	if err != nil {
		return fmt.Errorf("saving fetch log entry: %w", err)
	}
	return nil
}

func (d *Database) GetFetchLog(ctx context.Context, area string, limit int) ([]FetchLogRow, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT fetched_at, area, delivery_date, slot, outcome, status, row_count, detail
		FROM fetch_log
		WHERE area = ? OR ? = ''
		ORDER BY id DESC
		LIMIT ?`,
		area, area, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching fetch log entries: %w", err)
	}
	defer rows.Close()

	var ts string
	var entries []FetchLogRow
	for rows.Next() {
		var r FetchLogRow
		err := rows.Scan(&ts, &r.Area, &r.DeliveryDate, &r.Slot, &r.Outcome, &r.Status, &r.RowCount, &r.Detail)
		if err != nil {
			return nil, err
		}
		r.FetchedAt, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading fetch log rows: %w", err)
	}

	return entries, nil
}

func (d *Database) PurgeFetchLog(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	d.logger.Debug("purging fetch log")
	before := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	res, err := d.write.ExecContext(ctx,
		`DELETE FROM fetch_log WHERE fetched_at < ?`,
		before.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("purging fetch log: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil {
		d.logger.Debug(fmt.Sprintf("purged %d rows from fetch_log", rows))
	}
	return nil
}
