package model

import "time"

// Item is a single quilt tracked individually.
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Season       Season     `json:"season"`
	Status       ItemStatus `json:"status"`
	WeightGrams  float64    `json:"weight_grams"`
	FillMaterial string     `json:"fill_material,omitempty"`
	Color        string     `json:"color,omitempty"`
	LocationID   *int64     `json:"location_id,omitempty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	LocationName string `json:"location_name,omitempty"`
}

// ItemStatus is the current state of an item.
type ItemStatus string

// Item statuses. Only AVAILABLE and IN_USE are driven by usage tracking.
const (
	StatusAvailable   ItemStatus = "AVAILABLE"
	StatusInUse       ItemStatus = "IN_USE"
	StatusStorage     ItemStatus = "STORAGE"
	StatusMaintenance ItemStatus = "MAINTENANCE"
)

// Statuses lists every item status in display order.
var Statuses = []ItemStatus{StatusAvailable, StatusInUse, StatusStorage, StatusMaintenance}

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Status ItemStatus
	Season Season
}
