package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

// MoveItem relocates an item and records the move in a single transaction.
func MoveItem(ctx context.Context, database *sql.DB, itemID, toLocationID int64, notes string, movedAt time.Time) (*model.Move, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var from *int64
	err = tx.QueryRowContext(ctx,
		`SELECT location_id FROM items WHERE id = ? AND deleted_at IS NULL`, itemID,
	).Scan(&from)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Resource: "item", ID: itemID}
	}
	if err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}
	if from != nil && *from == toLocationID {
		return nil, &model.ValidationError{Field: "to_location_id", Message: "item is already there"}
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE id = ? AND deleted_at IS NULL`, toLocationID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking location: %w", err)
	}
	if exists == 0 {
		return nil, &model.NotFoundError{Resource: "location", ID: toLocationID}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET location_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		toLocationID, itemID,
	); err != nil {
		return nil, fmt.Errorf("updating item location: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO moves (item_id, from_location_id, to_location_id, notes, moved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, from, toLocationID, notes, db.Timestamp(movedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("recording move: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing move: %w", err)
	}

	moveID, _ := result.LastInsertId()
	moves, err := listMoves(ctx, database, `WHERE m.id = ?`, moveID)
	if err != nil || len(moves) == 0 {
		return nil, err
	}
	return &moves[0], nil
}

// ListMoves returns moves, optionally filtered by item, newest first.
func ListMoves(ctx context.Context, database *sql.DB, itemID int64) ([]model.Move, error) {
	if itemID > 0 {
		return listMoves(ctx, database, `WHERE m.item_id = ?`, itemID)
	}
	return listMoves(ctx, database, ``)
}

func listMoves(ctx context.Context, database *sql.DB, where string, args ...any) ([]model.Move, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT m.id, m.item_id, m.from_location_id, m.to_location_id, m.notes, m.moved_at,
		        i.name, COALESCE(fl.name, ''), tl.name
		 FROM moves m
		 JOIN items i ON i.id = m.item_id
		 LEFT JOIN locations fl ON fl.id = m.from_location_id
		 JOIN locations tl ON tl.id = m.to_location_id
		 `+where+`
		 ORDER BY m.moved_at DESC, m.id DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing moves: %w", err)
	}
	defer rows.Close()

	var moves []model.Move
	for rows.Next() {
		var m model.Move
		var notes sql.NullString
		if err := rows.Scan(&m.ID, &m.ItemID, &m.FromLocationID, &m.ToLocationID, &notes, &m.MovedAt,
			&m.ItemName, &m.FromLocationName, &m.ToLocationName); err != nil {
			return nil, fmt.Errorf("scanning move: %w", err)
		}
		m.Notes = notes.String
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
