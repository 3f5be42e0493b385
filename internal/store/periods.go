package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/odeje/internal/model"
)

// PeriodEdit holds the user-editable fields of a usage period. Nil fields
// are left unchanged.
type PeriodEdit struct {
	Notes        *string          `json:"notes"`
	Condition    *model.Condition `json:"condition"`
	Satisfaction *int             `json:"satisfaction"`
}

const periodColumns = `id, item_id, started_at, ended_at, duration_days, season_used, usage_type,
	condition, satisfaction, notes, location, temperature, humidity, created_at`

func scanPeriod(s scanner) (*model.UsagePeriod, error) {
	p := &model.UsagePeriod{}
	var condition, notes, location sql.NullString
	var satisfaction sql.NullInt64
	err := s.Scan(&p.ID, &p.ItemID, &p.StartedAt, &p.EndedAt, &p.DurationDays, &p.SeasonUsed, &p.UsageType,
		&condition, &satisfaction, &notes, &location, &p.Context.Temperature, &p.Context.Humidity, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if condition.Valid {
		c := model.Condition(condition.String)
		p.Condition = &c
	}
	if satisfaction.Valid {
		v := int(satisfaction.Int64)
		p.Satisfaction = &v
	}
	p.Notes = notes.String
	p.Context.Location = location.String
	return p, nil
}

// GetPeriod returns a usage period by ID.
func GetPeriod(ctx context.Context, db *sql.DB, id int64) (*model.UsagePeriod, error) {
	p, err := scanPeriod(db.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM usage_periods WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting usage period: %w", err)
	}
	return p, nil
}

// ListPeriodsByItem returns an item's usage periods, oldest first.
func ListPeriodsByItem(ctx context.Context, db *sql.DB, itemID int64) ([]model.UsagePeriod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM usage_periods WHERE item_id = ? ORDER BY started_at, id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing usage periods: %w", err)
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// ListPeriods returns every usage period, oldest first.
func ListPeriods(ctx context.Context, db *sql.DB) ([]model.UsagePeriod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM usage_periods ORDER BY started_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing usage periods: %w", err)
	}
	defer rows.Close()
	return scanPeriods(rows)
}

func scanPeriods(rows *sql.Rows) ([]model.UsagePeriod, error) {
	var periods []model.UsagePeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning usage period: %w", err)
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

// UpdatePeriod applies a user edit to a closed usage period. Timestamps and
// derived fields are immutable.
func UpdatePeriod(ctx context.Context, db *sql.DB, id int64, edit PeriodEdit) (*model.UsagePeriod, error) {
	if edit.Satisfaction != nil && (*edit.Satisfaction < 1 || *edit.Satisfaction > 5) {
		return nil, &model.ValidationError{Field: "satisfaction", Message: "must be between 1 and 5"}
	}
	if edit.Condition != nil && !edit.Condition.Valid() {
		return nil, &model.ValidationError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", *edit.Condition)}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE usage_periods
		 SET notes = COALESCE(?, notes),
		     condition = COALESCE(?, condition),
		     satisfaction = COALESCE(?, satisfaction)
		 WHERE id = ?`,
		edit.Notes, edit.Condition, edit.Satisfaction, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating usage period: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, &model.NotFoundError{Resource: "usage period", ID: id}
	}
	return GetPeriod(ctx, db, id)
}

// DeletePeriod removes a usage period recorded by mistake and refreshes the
// snapshots of the days it touched.
func DeletePeriod(ctx context.Context, db *sql.DB, id int64) error {
	p, err := GetPeriod(ctx, db, id)
	if err != nil {
		return err
	}
	if p == nil {
		return &model.NotFoundError{Resource: "usage period", ID: id}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM usage_periods WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting usage period: %w", err)
	}
	if err := upsertSnapshot(ctx, tx, p.StartedAt); err != nil {
		return err
	}
	if err := upsertSnapshot(ctx, tx, p.EndedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing usage period deletion: %w", err)
	}
	return nil
}
