package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/odeje/internal/model"
)

// ItemInput holds the editable attributes of an item.
type ItemInput struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Season       model.Season `json:"season"`
	WeightGrams  float64      `json:"weight_grams"`
	FillMaterial string       `json:"fill_material"`
	Color        string       `json:"color"`
	LocationID   *int64       `json:"location_id"`
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &model.ValidationError{Field: "name", Message: "required"}
	}
	if !in.Season.Valid() {
		return &model.ValidationError{Field: "season", Message: fmt.Sprintf("unknown season %q", in.Season)}
	}
	if in.WeightGrams < 0 {
		return &model.ValidationError{Field: "weight_grams", Message: "must not be negative"}
	}
	return nil
}

const itemColumns = `i.id, i.name, i.description, i.season, i.status, i.weight_grams,
	i.fill_material, i.color, i.location_id, i.image_mime,
	i.created_at, i.updated_at, i.deleted_at, COALESCE(l.name, '')`

const itemFrom = ` FROM items i LEFT JOIN locations l ON l.id = i.location_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var description, fill, color, imageMime sql.NullString
	err := s.Scan(&item.ID, &item.Name, &description, &item.Season, &item.Status, &item.WeightGrams,
		&fill, &color, &item.LocationID, &imageMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &item.LocationName)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.FillMaterial = fill.String
	item.Color = color.String
	item.ImageMime = imageMime.String
	return item, nil
}

// CreateItem creates a new item. New items start AVAILABLE.
func CreateItem(ctx context.Context, db *sql.DB, in ItemInput) (*model.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description, season, weight_grams, fill_material, color, location_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Description, in.Season, in.WeightGrams, in.FillMaterial, in.Color, in.LocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items matching the filter.
func ListItems(ctx context.Context, db *sql.DB, filter model.ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.deleted_at IS NULL`
	var args []any

	if filter.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Season != "" {
		query += ` AND i.season = ?`
		args = append(args, filter.Season)
	}

	query += ` ORDER BY i.id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListAvailableItems returns the items usage can be started on.
func ListAvailableItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	return ListItems(ctx, db, model.ItemFilter{Status: model.StatusAvailable})
}

// UpdateItem updates an item's attributes. Status is not touched here.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, in ItemInput) error {
	if err := in.validate(); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, season = ?, weight_grams = ?,
		        fill_material = ?, color = ?, location_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.Name, in.Description, in.Season, in.WeightGrams, in.FillMaterial, in.Color, in.LocationID, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &model.NotFoundError{Resource: "item", ID: id}
	}
	return nil
}

// SetItemStatus moves an item between AVAILABLE, STORAGE and MAINTENANCE.
// IN_USE is owned by StartUsage/EndUsage and cannot be set or left here.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, status model.ItemStatus) error {
	if !status.Valid() {
		return &model.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	if status == model.StatusInUse {
		return &model.ValidationError{Field: "status", Message: "use start usage to put an item in use"}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status != ?`,
		status, id, model.StatusInUse,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	item, err := GetItem(ctx, db, id)
	if err != nil {
		return err
	}
	if item == nil || item.DeletedAt != nil {
		return &model.NotFoundError{Resource: "item", ID: id}
	}
	return &model.ConflictError{ItemID: id, Status: item.Status, Message: "is in use; end usage first"}
}

// DeleteItem soft-deletes an item. Items in use cannot be deleted.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status != ?`,
		id, model.StatusInUse,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	item, err := GetItem(ctx, db, id)
	if err != nil {
		return err
	}
	if item == nil || item.DeletedAt != nil {
		return &model.NotFoundError{Resource: "item", ID: id}
	}
	return &model.ConflictError{ItemID: id, Status: item.Status, Message: "is in use; end usage first"}
}

// SetItemImage sets an item's photo and thumbnail.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image, thumbnail []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, thumbnail = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, thumbnail, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo (or its thumbnail) and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64, thumbnail bool) ([]byte, string, error) {
	column := "image"
	if thumbnail {
		column = "thumbnail"
	}

	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT `+column+`, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
