package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

// StartUsageInput describes a usage being opened.
type StartUsageInput struct {
	StartedAt time.Time          `json:"started_at"`
	UsageType model.UsageType    `json:"usage_type"`
	Notes     string             `json:"notes"`
	Context   model.UsageContext `json:"context"`
}

// EndUsageInput describes how an open usage is closed.
type EndUsageInput struct {
	EndedAt      time.Time        `json:"ended_at"`
	Notes        string           `json:"notes"`
	Condition    *model.Condition `json:"condition"`
	Satisfaction *int             `json:"satisfaction"`
}

// StartUsage puts an AVAILABLE item in use. The status flip, the open usage
// row and the daily snapshot are written in one transaction. The status
// update is a compare-and-set and open_usages is unique per item, so of two
// concurrent calls for the same item exactly one succeeds.
func StartUsage(ctx context.Context, database *sql.DB, itemID int64, in StartUsageInput) (*model.OpenUsage, error) {
	if in.StartedAt.IsZero() {
		return nil, &model.ValidationError{Field: "started_at", Message: "required"}
	}
	if in.UsageType == "" {
		in.UsageType = model.UsageNormal
	}
	if !in.UsageType.Valid() {
		return nil, &model.ValidationError{Field: "usage_type", Message: fmt.Sprintf("unknown usage type %q", in.UsageType)}
	}
	if err := validateContext(in.Context); err != nil {
		return nil, err
	}
	start := in.StartedAt.UTC().Truncate(time.Second)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Writing first takes the database write lock before the precondition
	// is evaluated.
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status = ?`,
		model.StatusInUse, itemID, model.StatusAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, startConflict(ctx, tx, itemID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO open_usages (item_id, started_at, usage_type, notes, location, temperature, humidity)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, db.Timestamp(start), in.UsageType, in.Notes,
		in.Context.Location, in.Context.Temperature, in.Context.Humidity,
	)
	if isUniqueViolation(err) {
		return nil, &model.ConflictError{ItemID: itemID, Status: model.StatusAvailable, Message: "already has an open usage"}
	}
	if err != nil {
		return nil, fmt.Errorf("creating open usage: %w", err)
	}

	if err := upsertSnapshot(ctx, tx, start); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing usage start: %w", err)
	}

	return GetOpenUsage(ctx, database, itemID)
}

// startConflict explains why the AVAILABLE -> IN_USE compare-and-set matched
// no row.
func startConflict(ctx context.Context, tx *sql.Tx, itemID int64) error {
	var status model.ItemStatus
	var deletedAt *time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT status, deleted_at FROM items WHERE id = ?`, itemID,
	).Scan(&status, &deletedAt)
	if err == sql.ErrNoRows || (err == nil && deletedAt != nil) {
		return &model.NotFoundError{Resource: "item", ID: itemID}
	}
	if err != nil {
		return fmt.Errorf("checking item status: %w", err)
	}
	if status == model.StatusInUse {
		return &model.ConflictError{ItemID: itemID, Status: status, Message: "is already in use"}
	}
	return &model.ConflictError{ItemID: itemID, Status: status, Message: "is not available"}
}

// EndUsage closes the open usage of an item into a usage period and makes
// the item AVAILABLE again, in one transaction.
func EndUsage(ctx context.Context, database *sql.DB, itemID int64, in EndUsageInput) (*model.UsagePeriod, error) {
	open, err := GetOpenUsage(ctx, database, itemID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, &model.NotFoundError{Resource: "open usage for item", ID: itemID}
	}

	if in.EndedAt.IsZero() {
		return nil, &model.ValidationError{Field: "ended_at", Message: "required"}
	}
	end := in.EndedAt.UTC().Truncate(time.Second)
	if end.Before(open.StartedAt) {
		return nil, &model.ValidationError{
			Field:   "ended_at",
			Message: fmt.Sprintf("%s is before usage start %s", db.Timestamp(end), db.Timestamp(open.StartedAt)),
		}
	}
	if in.Satisfaction != nil && (*in.Satisfaction < 1 || *in.Satisfaction > 5) {
		return nil, &model.ValidationError{Field: "satisfaction", Message: "must be between 1 and 5"}
	}
	if in.Condition != nil && !in.Condition.Valid() {
		return nil, &model.ValidationError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", *in.Condition)}
	}

	notes := in.Notes
	if notes == "" {
		notes = open.Notes
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM open_usages WHERE id = ?`, open.ID)
	if err != nil {
		return nil, fmt.Errorf("deleting open usage: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Closed concurrently since it was read.
		return nil, &model.NotFoundError{Resource: "open usage for item", ID: itemID}
	}

	result, err = tx.ExecContext(ctx,
		`INSERT INTO usage_periods (item_id, started_at, ended_at, duration_days, season_used, usage_type,
		                            condition, satisfaction, notes, location, temperature, humidity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		itemID, db.Timestamp(open.StartedAt), db.Timestamp(end),
		model.DurationDays(open.StartedAt, end), model.SeasonOf(open.StartedAt), open.UsageType,
		in.Condition, in.Satisfaction, notes,
		open.Context.Location, open.Context.Temperature, open.Context.Humidity,
	)
	if err != nil {
		return nil, fmt.Errorf("recording usage period: %w", err)
	}
	periodID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting usage period id: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.StatusAvailable, itemID, model.StatusInUse,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var status model.ItemStatus
		_ = tx.QueryRowContext(ctx, `SELECT status FROM items WHERE id = ?`, itemID).Scan(&status)
		return nil, &model.ConflictError{ItemID: itemID, Status: status, Message: "has an open usage but is not in use"}
	}

	if err := upsertSnapshot(ctx, tx, end); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing usage end: %w", err)
	}

	return GetPeriod(ctx, database, periodID)
}

func validateContext(c model.UsageContext) error {
	if c.Humidity != nil && (*c.Humidity < 0 || *c.Humidity > 100) {
		return &model.ValidationError{Field: "context.humidity", Message: "must be between 0 and 100"}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}

const openUsageColumns = `o.id, o.item_id, o.started_at, o.usage_type, o.notes,
	o.location, o.temperature, o.humidity, i.name`

func scanOpenUsage(s scanner) (*model.OpenUsage, error) {
	u := &model.OpenUsage{}
	var notes, location sql.NullString
	err := s.Scan(&u.ID, &u.ItemID, &u.StartedAt, &u.UsageType, &notes,
		&location, &u.Context.Temperature, &u.Context.Humidity, &u.ItemName)
	if err != nil {
		return nil, err
	}
	u.Notes = notes.String
	u.Context.Location = location.String
	return u, nil
}

// GetOpenUsage returns the open usage of an item, or nil if it has none.
func GetOpenUsage(ctx context.Context, database *sql.DB, itemID int64) (*model.OpenUsage, error) {
	u, err := scanOpenUsage(database.QueryRowContext(ctx,
		`SELECT `+openUsageColumns+`
		 FROM open_usages o JOIN items i ON i.id = o.item_id
		 WHERE o.item_id = ?`, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting open usage: %w", err)
	}
	return u, nil
}

// ListOpenUsages returns every open usage, oldest first.
func ListOpenUsages(ctx context.Context, database *sql.DB) ([]model.OpenUsage, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT `+openUsageColumns+`
		 FROM open_usages o JOIN items i ON i.id = o.item_id
		 ORDER BY o.started_at, o.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing open usages: %w", err)
	}
	defer rows.Close()

	var usages []model.OpenUsage
	for rows.Next() {
		u, err := scanOpenUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning open usage: %w", err)
		}
		usages = append(usages, *u)
	}
	return usages, rows.Err()
}
