package model

import "time"

// DateLayout is the key format of daily snapshots.
const DateLayout = "2006-01-02"

// DailySnapshot holds fleet-wide usage counts for one calendar day. It is
// derived data and can always be rebuilt from usage history.
type DailySnapshot struct {
	Date            string    `json:"date"`
	TotalInUse      int       `json:"total_in_use"`
	TotalAvailable  int       `json:"total_available"`
	WinterInUse     int       `json:"winter_in_use"`
	SpringAutumnUse int       `json:"spring_autumn_in_use"`
	SummerInUse     int       `json:"summer_in_use"`
	NewUsageStarted int       `json:"new_usage_started"`
	UsageEnded      int       `json:"usage_ended"`
	UpdatedAt       time.Time `json:"updated_at"`
}
