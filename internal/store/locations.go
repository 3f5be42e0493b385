package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/odeje/internal/model"
)

// CreateLocation creates a new place to keep quilts.
func CreateLocation(ctx context.Context, db *sql.DB, name, kind string) (*model.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &model.ValidationError{Field: "name", Message: "required"}
	}
	if !model.ValidLocationKind(kind) {
		return nil, &model.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", kind)}
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, kind) VALUES (?, ?)`,
		name, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	l := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, deleted_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Kind, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// ListLocations returns all non-deleted locations, optionally filtered by kind.
func ListLocations(ctx context.Context, db *sql.DB, kind string) ([]model.Location, error) {
	query := `SELECT id, name, kind, created_at, deleted_at
	          FROM locations WHERE deleted_at IS NULL`
	var args []any
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Kind, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation renames a location.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, name string) error {
	if strings.TrimSpace(name) == "" {
		return &model.ValidationError{Field: "name", Message: "required"}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE locations SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Resource: "location", ID: id}
	}
	return nil
}

// DeleteLocation soft-deletes a location. Fails while any item is kept there.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE location_id = ? AND deleted_at IS NULL`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking location items: %w", err)
	}
	if count > 0 {
		return &model.ValidationError{Field: "location", Message: fmt.Sprintf("still holds %d items", count)}
	}

	_, err = db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
