package model

import "time"

// Season is either an item's nominal season or the calendar bucket a usage
// started in. The two are kept as separate fields everywhere.
type Season string

// Seasons.
const (
	SeasonWinter       Season = "WINTER"
	SeasonSpringAutumn Season = "SPRING_AUTUMN"
	SeasonSummer       Season = "SUMMER"
)

// Seasons lists every season in display order.
var Seasons = []Season{SeasonWinter, SeasonSpringAutumn, SeasonSummer}

// Valid reports whether s is a known season.
func (s Season) Valid() bool {
	return s == SeasonWinter || s == SeasonSpringAutumn || s == SeasonSummer
}

// SeasonOf buckets a moment into a calendar season by month:
// December to February is winter, June to August is summer, the rest is
// spring/autumn.
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonSpringAutumn
	}
}
