// Package analytics aggregates usage history into per-item and fleet-wide
// statistics. The functions in this file are pure: they work on collections
// that were already fetched and never touch the database.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/erazemk/odeje/internal/model"
)

// ItemStats summarises the usage history of one item.
type ItemStats struct {
	ItemID               int64      `json:"item_id"`
	TotalUsages          int        `json:"total_usages"`
	TotalUsageDays       int        `json:"total_usage_days"`
	AverageUsageDuration float64    `json:"average_usage_duration"`
	UsageFrequency       float64    `json:"usage_frequency"`
	LastUsedDate         *time.Time `json:"last_used_date"`
	DaysSinceLastUse     *int       `json:"days_since_last_use"`
	IsCurrentlyInUse     bool       `json:"is_currently_in_use"`
}

// Overview holds fleet-wide totals.
type Overview struct {
	TotalItems        int `json:"total_items"`
	TotalUsagePeriods int `json:"total_usage_periods"`
	TotalUsageDays    int `json:"total_usage_days"`
	AverageUsageDays  int `json:"average_usage_days"`
	CurrentlyInUse    int `json:"currently_in_use"`
}

// StatusCount is one bucket of StatusDistribution.
type StatusCount struct {
	Status model.ItemStatus `json:"status"`
	Count  int              `json:"count"`
}

// SeasonCount is one bucket of a per-season grouping.
type SeasonCount struct {
	Season model.Season `json:"season"`
	Count  int          `json:"count"`
}

// MostUsedItem is one row of MostUsed.
type MostUsedItem struct {
	ItemID      int64        `json:"item_id"`
	Name        string       `json:"name"`
	Season      model.Season `json:"season"`
	UsageCount  int          `json:"usage_count"`
	TotalDays   int          `json:"total_days"`
	AverageDays int          `json:"average_days"`
}

// YearCount is one bucket of UsageByYear.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// MonthCount is one bucket of UsageByMonth. Month is formatted YYYY-MM.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Frequency holds windowed usage counts for one item.
type Frequency struct {
	Last30Days  int `json:"last_30_days"`
	Last90Days  int `json:"last_90_days"`
	Last365Days int `json:"last_365_days"`
	AllTime     int `json:"all_time"`
}

// round rounds half away from zero.
func round(v float64) int {
	return int(math.Round(v))
}

// StatsForItem computes the statistics of item from its closed periods and
// its open usage (nil when not in use).
func StatsForItem(item model.Item, periods []model.UsagePeriod, open *model.OpenUsage, now time.Time) ItemStats {
	s := ItemStats{ItemID: item.ID, IsCurrentlyInUse: open != nil}

	var last *time.Time
	for _, p := range periods {
		s.TotalUsages++
		s.TotalUsageDays += p.DurationDays
		if last == nil || p.EndedAt.After(*last) {
			end := p.EndedAt
			last = &end
		}
	}
	if open != nil && (last == nil || open.StartedAt.After(*last)) {
		start := open.StartedAt
		last = &start
	}

	if s.TotalUsages > 0 {
		s.AverageUsageDuration = float64(s.TotalUsageDays) / float64(s.TotalUsages)
	}

	ageDays := int(now.Sub(item.CreatedAt) / model.Day)
	if ageDays < 1 {
		ageDays = 1
	}
	s.UsageFrequency = float64(s.TotalUsages) / float64(ageDays) * 365

	s.LastUsedDate = last
	if last != nil {
		days := 0
		if open == nil {
			days = max(int(now.Sub(*last)/model.Day), 0)
		}
		s.DaysSinceLastUse = &days
	}
	return s
}

// FleetOverview aggregates totals across the fleet.
func FleetOverview(items []model.Item, periods []model.UsagePeriod, open []model.OpenUsage) Overview {
	live := itemSet(items)
	o := Overview{TotalItems: len(items)}
	for _, p := range periods {
		if live[p.ItemID] {
			o.TotalUsagePeriods++
			o.TotalUsageDays += p.DurationDays
		}
	}
	for _, u := range open {
		if live[u.ItemID] {
			o.CurrentlyInUse++
		}
	}
	if o.TotalUsagePeriods > 0 {
		o.AverageUsageDays = round(float64(o.TotalUsageDays) / float64(o.TotalUsagePeriods))
	}
	return o
}

func itemSet(items []model.Item) map[int64]bool {
	set := make(map[int64]bool, len(items))
	for _, item := range items {
		set[item.ID] = true
	}
	return set
}

// PeriodsOf keeps the periods that belong to one of items.
func PeriodsOf(items []model.Item, periods []model.UsagePeriod) []model.UsagePeriod {
	live := itemSet(items)
	out := make([]model.UsagePeriod, 0, len(periods))
	for _, p := range periods {
		if live[p.ItemID] {
			out = append(out, p)
		}
	}
	return out
}

// StatusDistribution counts items per status. Every status is present.
func StatusDistribution(items []model.Item) []StatusCount {
	counts := make(map[model.ItemStatus]int)
	for _, item := range items {
		counts[item.Status]++
	}
	out := make([]StatusCount, 0, len(model.Statuses))
	for _, status := range model.Statuses {
		out = append(out, StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// SeasonDistribution counts items per nominal season. Every season is present.
func SeasonDistribution(items []model.Item) []SeasonCount {
	counts := make(map[model.Season]int)
	for _, item := range items {
		counts[item.Season]++
	}
	return seasonCounts(counts)
}

// UsageBySeason counts usage periods by the nominal season of their item,
// not by the season they were used in.
func UsageBySeason(items []model.Item, periods []model.UsagePeriod) []SeasonCount {
	seasons := make(map[int64]model.Season, len(items))
	for _, item := range items {
		seasons[item.ID] = item.Season
	}
	counts := make(map[model.Season]int)
	for _, p := range periods {
		if season, ok := seasons[p.ItemID]; ok {
			counts[season]++
		}
	}
	return seasonCounts(counts)
}

func seasonCounts(counts map[model.Season]int) []SeasonCount {
	out := make([]SeasonCount, 0, len(model.Seasons))
	for _, season := range model.Seasons {
		out = append(out, SeasonCount{Season: season, Count: counts[season]})
	}
	return out
}

// MostUsed ranks items by usage count, then total days (both descending),
// then id. Items without usage are left out. A non-positive limit returns
// every used item.
func MostUsed(items []model.Item, periods []model.UsagePeriod, limit int) []MostUsedItem {
	byID := make(map[int64]*MostUsedItem, len(items))
	for _, item := range items {
		byID[item.ID] = &MostUsedItem{ItemID: item.ID, Name: item.Name, Season: item.Season}
	}
	for _, p := range periods {
		if row, ok := byID[p.ItemID]; ok {
			row.UsageCount++
			row.TotalDays += p.DurationDays
		}
	}

	var out []MostUsedItem
	for _, row := range byID {
		if row.UsageCount == 0 {
			continue
		}
		row.AverageDays = round(float64(row.TotalDays) / float64(row.UsageCount))
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		if out[i].TotalDays != out[j].TotalDays {
			return out[i].TotalDays > out[j].TotalDays
		}
		return out[i].ItemID < out[j].ItemID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UsageByYear counts usage periods by start year, ascending. Years without
// usage are omitted.
func UsageByYear(periods []model.UsagePeriod) []YearCount {
	counts := make(map[int]int)
	for _, p := range periods {
		counts[p.StartedAt.Year()]++
	}
	out := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		out = append(out, YearCount{Year: year, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// UsageByMonth counts usage periods by start month over the twelve months
// ending with now's month. The series is dense and ascending.
func UsageByMonth(periods []model.UsagePeriod, now time.Time) []MonthCount {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	out := make([]MonthCount, 12)
	index := make(map[string]int, 12)
	for i := range out {
		key := first.AddDate(0, i, 0).Format("2006-01")
		out[i].Month = key
		index[key] = i
	}
	for _, p := range periods {
		if i, ok := index[p.StartedAt.UTC().Format("2006-01")]; ok {
			out[i].Count++
		}
	}
	return out
}

// WindowedUsageCount counts the periods (and the open usage, once) that
// started within [now-windowDays, now]. A non-positive window counts all
// time.
func WindowedUsageCount(periods []model.UsagePeriod, open *model.OpenUsage, windowDays int, now time.Time) int {
	inWindow := func(t time.Time) bool {
		if t.After(now) {
			return false
		}
		return windowDays <= 0 || !t.Before(now.AddDate(0, 0, -windowDays))
	}

	n := 0
	for _, p := range periods {
		if inWindow(p.StartedAt) {
			n++
		}
	}
	if open != nil && inWindow(open.StartedAt) {
		n++
	}
	return n
}

// FrequencyBuckets returns the 30, 90 and 365 day and all-time usage counts.
func FrequencyBuckets(periods []model.UsagePeriod, open *model.OpenUsage, now time.Time) Frequency {
	return Frequency{
		Last30Days:  WindowedUsageCount(periods, open, 30, now),
		Last90Days:  WindowedUsageCount(periods, open, 90, now),
		Last365Days: WindowedUsageCount(periods, open, 365, now),
		AllTime:     WindowedUsageCount(periods, open, 0, now),
	}
}
