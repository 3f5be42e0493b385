package model

import "time"

// Location is a place where quilts are kept.
type Location struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Location kinds.
const (
	LocationKindRoom    = "room"
	LocationKindCloset  = "closet"
	LocationKindStorage = "storage"
)

// ValidLocationKind reports whether kind is a known location kind.
func ValidLocationKind(kind string) bool {
	return kind == LocationKindRoom || kind == LocationKindCloset || kind == LocationKindStorage
}

// Move records an item being relocated.
type Move struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	FromLocationID *int64    `json:"from_location_id,omitempty"`
	ToLocationID   int64     `json:"to_location_id"`
	Notes          string    `json:"notes,omitempty"`
	MovedAt        time.Time `json:"moved_at"`

	// Joined fields (not always populated).
	ItemName         string `json:"item_name,omitempty"`
	FromLocationName string `json:"from_location_name,omitempty"`
	ToLocationName   string `json:"to_location_name,omitempty"`
}
