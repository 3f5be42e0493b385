package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

// maxRebuildDays bounds a single RebuildSnapshots call.
const maxRebuildDays = 3660

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// upsertSnapshot recomputes the snapshot of t's UTC day from usage history,
// as it stood at the end of that day.
func upsertSnapshot(ctx context.Context, q querier, t time.Time) error {
	dayStart, dayEnd := dayBounds(t)
	start, end := db.Timestamp(dayStart), db.Timestamp(dayEnd)

	s := model.DailySnapshot{Date: dayStart.Format(model.DateLayout)}

	rows, err := q.QueryContext(ctx,
		`SELECT i.season, COUNT(*)
		 FROM (
		     SELECT item_id FROM usage_periods WHERE started_at < ? AND ended_at >= ?
		     UNION ALL
		     SELECT item_id FROM open_usages WHERE started_at < ?
		 ) u
		 JOIN items i ON i.id = u.item_id
		 GROUP BY i.season`,
		end, end, end,
	)
	if err != nil {
		return fmt.Errorf("counting items in use: %w", err)
	}
	for rows.Next() {
		var season model.Season
		var n int
		if err := rows.Scan(&season, &n); err != nil {
			rows.Close()
			return fmt.Errorf("scanning in-use count: %w", err)
		}
		switch season {
		case model.SeasonWinter:
			s.WinterInUse = n
		case model.SeasonSpringAutumn:
			s.SpringAutumnUse = n
		case model.SeasonSummer:
			s.SummerInUse = n
		}
		s.TotalInUse += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("counting items in use: %w", err)
	}

	var pool int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE deleted_at IS NULL AND status IN (?, ?)`,
		model.StatusAvailable, model.StatusInUse,
	).Scan(&pool)
	if err != nil {
		return fmt.Errorf("counting rotating items: %w", err)
	}
	s.TotalAvailable = max(pool-s.TotalInUse, 0)

	err = q.QueryRowContext(ctx,
		`SELECT
		     (SELECT COUNT(*) FROM usage_periods WHERE started_at >= ? AND started_at < ?) +
		     (SELECT COUNT(*) FROM open_usages WHERE started_at >= ? AND started_at < ?),
		     (SELECT COUNT(*) FROM usage_periods WHERE ended_at >= ? AND ended_at < ?)`,
		start, end, start, end, start, end,
	).Scan(&s.NewUsageStarted, &s.UsageEnded)
	if err != nil {
		return fmt.Errorf("counting usage starts and ends: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO daily_snapshots (date, total_in_use, total_available, winter_in_use,
		                              spring_autumn_in_use, summer_in_use, new_usage_started, usage_ended)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (date) DO UPDATE SET
		     total_in_use = excluded.total_in_use,
		     total_available = excluded.total_available,
		     winter_in_use = excluded.winter_in_use,
		     spring_autumn_in_use = excluded.spring_autumn_in_use,
		     summer_in_use = excluded.summer_in_use,
		     new_usage_started = excluded.new_usage_started,
		     usage_ended = excluded.usage_ended,
		     updated_at = CURRENT_TIMESTAMP`,
		s.Date, s.TotalInUse, s.TotalAvailable, s.WinterInUse,
		s.SpringAutumnUse, s.SummerInUse, s.NewUsageStarted, s.UsageEnded,
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot %s: %w", s.Date, err)
	}
	return nil
}

const snapshotColumns = `date, total_in_use, total_available, winter_in_use,
	spring_autumn_in_use, summer_in_use, new_usage_started, usage_ended, updated_at`

func scanSnapshot(s scanner) (*model.DailySnapshot, error) {
	snap := &model.DailySnapshot{}
	err := s.Scan(&snap.Date, &snap.TotalInUse, &snap.TotalAvailable, &snap.WinterInUse,
		&snap.SpringAutumnUse, &snap.SummerInUse, &snap.NewUsageStarted, &snap.UsageEnded, &snap.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GetSnapshot returns the snapshot for a YYYY-MM-DD date, or nil.
func GetSnapshot(ctx context.Context, database *sql.DB, date string) (*model.DailySnapshot, error) {
	snap, err := scanSnapshot(database.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM daily_snapshots WHERE date = ?`, date,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns snapshots between two YYYY-MM-DD dates, inclusive.
// Empty bounds are open.
func ListSnapshots(ctx context.Context, database *sql.DB, from, to string) ([]model.DailySnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM daily_snapshots WHERE 1=1`
	var args []any
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.DailySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// RebuildSnapshots recomputes every daily snapshot from `from` to `to`
// (inclusive) in one transaction and returns the number of days written.
func RebuildSnapshots(ctx context.Context, database *sql.DB, from, to time.Time) (int, error) {
	first, _ := dayBounds(from)
	last, _ := dayBounds(to)
	if last.Before(first) {
		return 0, &model.ValidationError{Field: "to", Message: "must not be before from"}
	}
	days := int(last.Sub(first)/model.Day) + 1
	if days > maxRebuildDays {
		return 0, &model.ValidationError{Field: "to", Message: fmt.Sprintf("range exceeds %d days", maxRebuildDays)}
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if err := upsertSnapshot(ctx, tx, d); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing snapshot rebuild: %w", err)
	}
	return days, nil
}

// FirstUsageStart returns the earliest recorded usage start, open or closed,
// or the zero time if nothing has been used yet.
func FirstUsageStart(ctx context.Context, database *sql.DB) (time.Time, error) {
	var first time.Time
	for _, table := range []string{"usage_periods", "open_usages"} {
		var t time.Time
		err := database.QueryRowContext(ctx,
			`SELECT started_at FROM `+table+` ORDER BY started_at LIMIT 1`,
		).Scan(&t)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("finding first usage: %w", err)
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
	}
	return first, nil
}
