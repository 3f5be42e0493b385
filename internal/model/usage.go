package model

import "time"

// Day is the length of a usage day.
const Day = 24 * time.Hour

// UsageType tags why an item was put into use.
type UsageType string

// Usage types.
const (
	UsageNormal           UsageType = "NORMAL"
	UsageGuest            UsageType = "GUEST"
	UsageSpecialOccasion  UsageType = "SPECIAL_OCCASION"
	UsageSeasonalRotation UsageType = "SEASONAL_ROTATION"
)

// Valid reports whether u is a known usage type.
func (u UsageType) Valid() bool {
	switch u {
	case UsageNormal, UsageGuest, UsageSpecialOccasion, UsageSeasonalRotation:
		return true
	}
	return false
}

// Condition is the post-use condition rating of an item.
type Condition string

// Conditions.
const (
	ConditionExcellent     Condition = "EXCELLENT"
	ConditionGood          Condition = "GOOD"
	ConditionFair          Condition = "FAIR"
	ConditionNeedsCleaning Condition = "NEEDS_CLEANING"
	ConditionNeedsRepair   Condition = "NEEDS_REPAIR"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionNeedsCleaning, ConditionNeedsRepair:
		return true
	}
	return false
}

// UsageContext holds optional readings taken when a usage starts.
type UsageContext struct {
	Location    string   `json:"location,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// OpenUsage is an in-progress usage. An item has one exactly while its
// status is IN_USE.
type OpenUsage struct {
	ID        int64        `json:"id"`
	ItemID    int64        `json:"item_id"`
	StartedAt time.Time    `json:"started_at"`
	UsageType UsageType    `json:"usage_type"`
	Notes     string       `json:"notes,omitempty"`
	Context   UsageContext `json:"context"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// UsagePeriod is a closed usage interval.
type UsagePeriod struct {
	ID           int64        `json:"id"`
	ItemID       int64        `json:"item_id"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      time.Time    `json:"ended_at"`
	DurationDays int          `json:"duration_days"`
	SeasonUsed   Season       `json:"season_used"`
	UsageType    UsageType    `json:"usage_type"`
	Condition    *Condition   `json:"condition,omitempty"`
	Satisfaction *int         `json:"satisfaction,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Context      UsageContext `json:"context"`
	CreatedAt    time.Time    `json:"created_at"`
}

// DurationDays returns the number of started days between start and end.
func DurationDays(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	days := d / Day
	if d%Day != 0 {
		days++
	}
	return int(days)
}
