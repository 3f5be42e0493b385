package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/erazemk/odeje/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func period(itemID int64, start time.Time, days int) model.UsagePeriod {
	end := start.AddDate(0, 0, days)
	return model.UsagePeriod{
		ItemID:       itemID,
		StartedAt:    start,
		EndedAt:      end,
		DurationDays: model.DurationDays(start, end),
		SeasonUsed:   model.SeasonOf(start),
	}
}

func TestStatsForItemWithoutUsage(t *testing.T) {
	item := model.Item{ID: 1, CreatedAt: day(2024, 1, 1)}
	s := StatsForItem(item, nil, nil, day(2024, 1, 1))

	if s.AverageUsageDuration != 0 || s.UsageFrequency != 0 {
		t.Errorf("expected zero ratios, got %+v", s)
	}
	if math.IsNaN(s.AverageUsageDuration) || math.IsNaN(s.UsageFrequency) {
		t.Error("ratios must not be NaN")
	}
	if s.LastUsedDate != nil || s.DaysSinceLastUse != nil {
		t.Errorf("expected no last use, got %+v", s)
	}
}

func TestStatsForItem(t *testing.T) {
	item := model.Item{ID: 1, CreatedAt: day(2023, 1, 1)}
	periods := []model.UsagePeriod{
		period(1, day(2023, 1, 10), 10),
		period(1, day(2023, 11, 1), 20),
	}
	now := day(2024, 1, 1)

	s := StatsForItem(item, periods, nil, now)
	if s.TotalUsages != 2 || s.TotalUsageDays != 30 || s.AverageUsageDuration != 15 {
		t.Errorf("unexpected totals %+v", s)
	}
	if want := 2.0 / 365 * 365; s.UsageFrequency != want {
		t.Errorf("expected frequency %v, got %v", want, s.UsageFrequency)
	}
	if s.LastUsedDate == nil || !s.LastUsedDate.Equal(day(2023, 11, 21)) {
		t.Errorf("expected last use 2023-11-21, got %v", s.LastUsedDate)
	}
	if s.DaysSinceLastUse == nil || *s.DaysSinceLastUse != 41 {
		t.Errorf("expected 41 days since last use, got %v", s.DaysSinceLastUse)
	}
	if s.IsCurrentlyInUse {
		t.Error("item should not be in use")
	}

	open := &model.OpenUsage{ItemID: 1, StartedAt: day(2023, 12, 20)}
	s = StatsForItem(item, periods, open, now)
	if !s.IsCurrentlyInUse || *s.DaysSinceLastUse != 0 || !s.LastUsedDate.Equal(open.StartedAt) {
		t.Errorf("expected in-use stats, got %+v", s)
	}
}

func TestStatsForItemCreatedToday(t *testing.T) {
	now := day(2024, 3, 1).Add(10 * time.Hour)
	item := model.Item{ID: 1, CreatedAt: now.Add(-time.Hour)}
	s := StatsForItem(item, []model.UsagePeriod{period(1, now.Add(-time.Hour), 0)}, nil, now)
	if s.UsageFrequency != 365 {
		t.Errorf("expected age clamped to one day, got frequency %v", s.UsageFrequency)
	}
}

func TestFleetOverview(t *testing.T) {
	items := []model.Item{{ID: 1}, {ID: 2}, {ID: 3}}
	periods := []model.UsagePeriod{
		period(1, day(2024, 1, 1), 3),
		period(2, day(2024, 1, 1), 4),
	}
	open := []model.OpenUsage{{ItemID: 3}}

	o := FleetOverview(items, periods, open)
	want := Overview{TotalItems: 3, TotalUsagePeriods: 2, TotalUsageDays: 7, AverageUsageDays: 4, CurrentlyInUse: 1}
	if o != want {
		t.Errorf("FleetOverview = %+v, want %+v", o, want)
	}

	// Item 4 was deleted, so ListItems no longer returns it.
	withDeleted := append(periods, period(4, day(2023, 6, 1), 30))
	if o := FleetOverview(items, withDeleted, open); o != want {
		t.Errorf("FleetOverview counted a deleted item's history: %+v, want %+v", o, want)
	}
	if got := PeriodsOf(items, withDeleted); len(got) != 2 {
		t.Errorf("expected 2 periods of live items, got %d", len(got))
	}

	if empty := FleetOverview(nil, nil, nil); empty != (Overview{}) {
		t.Errorf("expected zero overview, got %+v", empty)
	}
}

func TestDistributionsZeroFilled(t *testing.T) {
	items := []model.Item{
		{ID: 1, Season: model.SeasonWinter, Status: model.StatusInUse},
		{ID: 2, Season: model.SeasonWinter, Status: model.StatusAvailable},
	}

	statuses := StatusDistribution(items)
	if len(statuses) != len(model.Statuses) {
		t.Fatalf("expected every status, got %+v", statuses)
	}
	for i, sc := range statuses {
		if sc.Status != model.Statuses[i] {
			t.Errorf("bucket %d is %s, want %s", i, sc.Status, model.Statuses[i])
		}
	}
	if statuses[2].Count != 0 || statuses[0].Count != 1 {
		t.Errorf("unexpected counts %+v", statuses)
	}

	seasons := SeasonDistribution(items)
	if len(seasons) != 3 || seasons[0].Count != 2 || seasons[1].Count != 0 || seasons[2].Count != 0 {
		t.Errorf("unexpected season distribution %+v", seasons)
	}
}

func TestUsageBySeasonUsesNominalSeason(t *testing.T) {
	items := []model.Item{{ID: 1, Season: model.SeasonSummer}}
	// Used in January, still counted under the item's summer season.
	periods := []model.UsagePeriod{period(1, day(2024, 1, 5), 2)}

	got := UsageBySeason(items, periods)
	if got[2].Season != model.SeasonSummer || got[2].Count != 1 || got[0].Count != 0 {
		t.Errorf("unexpected usage by season %+v", got)
	}
}

func TestMostUsedOrdering(t *testing.T) {
	items := []model.Item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}, {ID: 4, Name: "unused"}}
	periods := []model.UsagePeriod{
		period(3, day(2024, 1, 1), 5),
		period(3, day(2024, 2, 1), 6),
		period(1, day(2024, 1, 1), 10),
		period(2, day(2024, 1, 1), 10),
	}

	got := MostUsed(items, periods, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 used items, got %+v", got)
	}
	if got[0].ItemID != 3 || got[1].ItemID != 1 || got[2].ItemID != 2 {
		t.Errorf("unexpected order %+v", got)
	}
	if got[0].AverageDays != 6 {
		t.Errorf("expected average 11/2 rounded to 6, got %d", got[0].AverageDays)
	}

	if top := MostUsed(items, periods, 1); len(top) != 1 || top[0].ItemID != 3 {
		t.Errorf("expected limit 1, got %+v", top)
	}
}

func TestUsageByYear(t *testing.T) {
	periods := []model.UsagePeriod{
		period(1, day(2024, 3, 1), 1),
		period(1, day(2022, 3, 1), 1),
		period(2, day(2024, 5, 1), 1),
	}
	got := UsageByYear(periods)
	if len(got) != 2 || got[0] != (YearCount{2022, 1}) || got[1] != (YearCount{2024, 2}) {
		t.Errorf("unexpected usage by year %+v", got)
	}
}

func TestUsageByMonthIsDense(t *testing.T) {
	now := day(2024, 3, 15)
	periods := []model.UsagePeriod{
		period(1, day(2024, 3, 1), 1),
		period(1, day(2023, 4, 2), 1),
		period(1, day(2023, 3, 31), 1), // outside the window
		period(1, day(2024, 1, 1), 1),
		period(2, day(2024, 1, 20), 1),
	}

	got := UsageByMonth(periods, now)
	if len(got) != 12 {
		t.Fatalf("expected 12 months, got %d", len(got))
	}
	if got[0].Month != "2023-04" || got[11].Month != "2024-03" {
		t.Errorf("unexpected window %s..%s", got[0].Month, got[11].Month)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Month <= got[i-1].Month {
			t.Errorf("months not ascending at %d", i)
		}
	}
	counts := map[string]int{"2023-04": 1, "2024-01": 2, "2024-03": 1}
	for _, mc := range got {
		if mc.Count != counts[mc.Month] {
			t.Errorf("%s count = %d, want %d", mc.Month, mc.Count, counts[mc.Month])
		}
	}

	if empty := UsageByMonth(nil, now); len(empty) != 12 {
		t.Errorf("expected 12 empty months, got %d", len(empty))
	}
}

func TestWindowedUsageCount(t *testing.T) {
	now := day(2024, 6, 1)
	periods := []model.UsagePeriod{
		period(1, now.AddDate(0, 0, -10), 2),
		period(1, now.AddDate(0, 0, -60), 2),
		period(1, now.AddDate(0, 0, -200), 2),
		period(1, now.AddDate(-3, 0, 0), 2),
	}
	open := &model.OpenUsage{ItemID: 1, StartedAt: now.AddDate(0, 0, -2)}

	tests := []struct {
		window   int
		expected int
	}{
		{30, 2},
		{90, 3},
		{365, 4},
		{0, 5},
	}
	for _, tt := range tests {
		if got := WindowedUsageCount(periods, open, tt.window, now); got != tt.expected {
			t.Errorf("WindowedUsageCount(%d) = %d, want %d", tt.window, got, tt.expected)
		}
	}

	f := FrequencyBuckets(periods, open, now)
	if f != (Frequency{Last30Days: 2, Last90Days: 3, Last365Days: 4, AllTime: 5}) {
		t.Errorf("unexpected buckets %+v", f)
	}

	if got := WindowedUsageCount(periods, nil, 30, now); got != 1 {
		t.Errorf("expected 1 without open usage, got %d", got)
	}
}
