package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T, now time.Time) (*Engine, *store.Repository, *clock.Fixed) {
	t.Helper()
	repo := store.NewRepository(db.NewTestDB(t))
	clk := clock.NewFixed(now)
	return NewEngine(repo, repo, clk, quietLogger()), repo, clk
}

func createItem(t *testing.T, repo *store.Repository, name string) *model.Item {
	t.Helper()
	item, err := store.CreateItem(context.Background(), repo.DB, store.ItemInput{Name: name, Season: model.SeasonWinter, WeightGrams: 2000})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func notificationsOf(t *testing.T, repo *store.Repository, typ model.NotificationType) []model.Notification {
	t.Helper()
	all, err := store.ListNotifications(context.Background(), repo.DB, false)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	var out []model.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func TestWeatherChangeCreatesOneNotification(t *testing.T) {
	engine, repo, clk := setup(t, date(2024, 4, 10))
	ctx := context.Background()

	rep := engine.Run(ctx, RunOptions{Weather: &WeatherDelta{Current: 27, Previous: 20}, SkipMaintenance: true, SkipDisposal: true})
	if rep.WeatherChange != 1 || rep.Total != 1 || len(rep.Errors) != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}

	got := notificationsOf(t, repo, model.NotificationWeatherChange)
	if len(got) != 1 {
		t.Fatalf("expected 1 weather notification, got %d", len(got))
	}
	n := got[0]
	if n.ItemID != nil {
		t.Errorf("expected a global notification, got item %d", *n.ItemID)
	}
	if n.Metadata["tempChange"] != 7.0 || n.Metadata["direction"] != "warmer" {
		t.Errorf("unexpected metadata %v", n.Metadata)
	}
	if n.Metadata["runId"] != rep.RunID {
		t.Errorf("expected run id %s in metadata, got %v", rep.RunID, n.Metadata["runId"])
	}

	// Deduplicated within 24 hours.
	clk.Advance(23 * time.Hour)
	if n, err := engine.WeatherChange(ctx, 10, 20); err != nil || n != 0 {
		t.Errorf("expected dedup within window, got %d (%v)", n, err)
	}

	clk.Advance(2 * time.Hour)
	if n, err := engine.WeatherChange(ctx, 10, 20); err != nil || n != 1 {
		t.Errorf("expected a new notification after the window, got %d (%v)", n, err)
	}
}

func TestWeatherChangeBelowThreshold(t *testing.T) {
	engine, repo, _ := setup(t, date(2024, 4, 10))

	for _, pair := range [][2]float64{{25, 20}, {15, 20}, {20, 20}} {
		if n, err := engine.WeatherChange(context.Background(), pair[0], pair[1]); err != nil || n != 0 {
			t.Errorf("WeatherChange(%v, %v) = %d, %v; want 0", pair[0], pair[1], n, err)
		}
	}
	if got := notificationsOf(t, repo, model.NotificationWeatherChange); len(got) != 0 {
		t.Errorf("expected no notifications, got %d", len(got))
	}
}

func TestWeatherChangeThresholdUsesExactDelta(t *testing.T) {
	engine, repo, _ := setup(t, date(2024, 4, 10))
	ctx := context.Background()

	if n, err := engine.WeatherChange(ctx, 25, 20); err != nil || n != 0 {
		t.Fatalf("expected a change of exactly 5 to be ignored, got %d (%v)", n, err)
	}
	if n, err := engine.WeatherChange(ctx, 25.04, 20); err != nil || n != 1 {
		t.Fatalf("expected a change of 5.04 to notify, got %d (%v)", n, err)
	}

	got := notificationsOf(t, repo, model.NotificationWeatherChange)
	if len(got) != 1 {
		t.Fatalf("expected 1 weather notification, got %d", len(got))
	}
	if got[0].Metadata["tempChange"] != 5.0 {
		t.Errorf("expected tempChange rounded to 5.0, got %v", got[0].Metadata["tempChange"])
	}
}

func TestWeatherChangeFromStoredReadings(t *testing.T) {
	engine, repo, _ := setup(t, date(2024, 4, 10))
	ctx := context.Background()

	rep := engine.Run(ctx, RunOptions{})
	if rep.WeatherChange != 0 || len(rep.Errors) != 0 {
		t.Fatalf("expected nothing without readings, got %+v", rep)
	}

	store.RecordWeather(ctx, repo.DB, model.Weather{Temperature: 18, Humidity: 50}, date(2024, 4, 9))
	store.RecordWeather(ctx, repo.DB, model.Weather{Temperature: 9, Humidity: 60}, date(2024, 4, 10))

	rep = engine.Run(ctx, RunOptions{})
	if rep.WeatherChange != 1 {
		t.Fatalf("expected a weather notification, got %+v", rep)
	}
	n := notificationsOf(t, repo, model.NotificationWeatherChange)[0]
	if n.Metadata["direction"] != "colder" || n.Metadata["tempChange"] != 9.0 {
		t.Errorf("unexpected metadata %v", n.Metadata)
	}
}

func TestMaintenanceReminderDedup(t *testing.T) {
	engine, repo, clk := setup(t, date(2024, 2, 5))
	ctx := context.Background()

	long := createItem(t, repo, "Long")
	recent := createItem(t, repo, "Recent")
	store.StartUsage(ctx, repo.DB, long.ID, store.StartUsageInput{StartedAt: date(2024, 1, 1)})
	store.StartUsage(ctx, repo.DB, recent.ID, store.StartUsageInput{StartedAt: date(2024, 1, 10)})

	for range 2 {
		if _, err := engine.MaintenanceReminders(ctx); err != nil {
			t.Fatalf("MaintenanceReminders: %v", err)
		}
	}
	got := notificationsOf(t, repo, model.NotificationMaintenanceReminder)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 reminder, got %d", len(got))
	}
	if got[0].ItemID == nil || *got[0].ItemID != long.ID {
		t.Errorf("expected reminder for %d, got %v", long.ID, got[0].ItemID)
	}
	if got[0].Metadata["daysInUse"] != 35.0 {
		t.Errorf("expected 35 days in use, got %v", got[0].Metadata["daysInUse"])
	}

	// A week later both items qualify and the first reminder has expired.
	clk.Advance(8 * model.Day)
	n, err := engine.MaintenanceReminders(ctx)
	if err != nil || n != 2 {
		t.Errorf("expected 2 new reminders, got %d (%v)", n, err)
	}
}

func TestDisposalSuggestions(t *testing.T) {
	engine, repo, _ := setup(t, date(2024, 6, 1))
	ctx := context.Background()

	never := createItem(t, repo, "Never used")
	stale := createItem(t, repo, "Stale")
	fresh := createItem(t, repo, "Fresh")
	inUse := createItem(t, repo, "In use")

	store.StartUsage(ctx, repo.DB, stale.ID, store.StartUsageInput{StartedAt: date(2022, 12, 1)})
	store.EndUsage(ctx, repo.DB, stale.ID, store.EndUsageInput{EndedAt: date(2023, 2, 1)})
	store.StartUsage(ctx, repo.DB, fresh.ID, store.StartUsageInput{StartedAt: date(2022, 1, 1)})
	store.EndUsage(ctx, repo.DB, fresh.ID, store.EndUsageInput{EndedAt: date(2022, 2, 1)})
	store.StartUsage(ctx, repo.DB, fresh.ID, store.StartUsageInput{StartedAt: date(2024, 1, 1)})
	store.EndUsage(ctx, repo.DB, fresh.ID, store.EndUsageInput{EndedAt: date(2024, 2, 1)})
	store.StartUsage(ctx, repo.DB, inUse.ID, store.StartUsageInput{StartedAt: date(2022, 1, 1)})
	store.EndUsage(ctx, repo.DB, inUse.ID, store.EndUsageInput{EndedAt: date(2022, 2, 1)})
	store.StartUsage(ctx, repo.DB, inUse.ID, store.StartUsageInput{StartedAt: date(2022, 11, 1)})

	n, err := engine.DisposalSuggestions(ctx)
	if err != nil {
		t.Fatalf("DisposalSuggestions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 suggestion, got %d", n)
	}

	got := notificationsOf(t, repo, model.NotificationDisposalSuggestion)
	if len(got) != 1 || *got[0].ItemID != stale.ID {
		t.Fatalf("expected a suggestion for the stale item only, got %+v", got)
	}
	if got[0].Metadata["daysSinceLastUse"] != 486.0 {
		t.Errorf("expected 486 days since last use, got %v", got[0].Metadata["daysSinceLastUse"])
	}
	for _, n := range got {
		if *n.ItemID == never.ID {
			t.Error("item without history must not be flagged")
		}
	}

	if n, _ := engine.DisposalSuggestions(ctx); n != 0 {
		t.Errorf("expected dedup on second run, got %d", n)
	}
}

type failingItems struct {
	*store.Repository
}

func (failingItems) ListItems(context.Context) ([]model.Item, error) {
	return nil, errors.New("items table unavailable")
}

func TestRunIsolatesFailingRule(t *testing.T) {
	_, repo, clk := setup(t, date(2024, 2, 5))
	ctx := context.Background()
	engine := NewEngine(failingItems{repo}, repo, clk, quietLogger())

	item := createItem(t, repo, "Long")
	store.StartUsage(ctx, repo.DB, item.ID, store.StartUsageInput{StartedAt: date(2024, 1, 1)})

	rep := engine.Run(ctx, RunOptions{Weather: &WeatherDelta{Current: 0, Previous: 8}})
	if rep.WeatherChange != 1 || rep.Maintenance != 1 || rep.Disposal != 0 || rep.Total != 2 {
		t.Errorf("unexpected counts %+v", rep)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", rep.Errors)
	}
	var agg *model.AggregationError
	if !errors.As(rep.Errors[0], &agg) || agg.Component != RuleDisposal {
		t.Errorf("expected disposal AggregationError, got %v", rep.Errors[0])
	}
}

func TestRunSkipsRules(t *testing.T) {
	engine, _, _ := setup(t, date(2024, 2, 5))
	rep := engine.Run(context.Background(), RunOptions{
		Weather:         &WeatherDelta{Current: 30, Previous: 0},
		SkipWeather:     true,
		SkipMaintenance: true,
		SkipDisposal:    true,
	})
	if rep.Total != 0 || rep.RunID == "" {
		t.Errorf("expected empty report with a run id, got %+v", rep)
	}
}

// flakyStore stores the first `ok` notifications and fails after that.
type flakyStore struct {
	*store.Repository
	ok int
}

func (s *flakyStore) CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if s.ok == 0 {
		return nil, errors.New("disk full")
	}
	s.ok--
	return s.Repository.CreateNotification(ctx, n)
}

func TestRunReportsNotificationsStoredBeforeFailure(t *testing.T) {
	_, repo, clk := setup(t, date(2024, 2, 5))
	ctx := context.Background()
	engine := NewEngine(repo, &flakyStore{Repository: repo, ok: 1}, clk, quietLogger())

	for _, name := range []string{"First", "Second"} {
		item := createItem(t, repo, name)
		store.StartUsage(ctx, repo.DB, item.ID, store.StartUsageInput{StartedAt: date(2024, 1, 1)})
	}

	rep := engine.Run(ctx, RunOptions{SkipWeather: true, SkipDisposal: true})
	if rep.Maintenance != 1 || rep.Total != 1 {
		t.Errorf("expected the stored reminder to be counted, got %+v", rep)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", rep.Errors)
	}
	if got := notificationsOf(t, repo, model.NotificationMaintenanceReminder); len(got) != 1 {
		t.Errorf("expected 1 stored reminder, got %d", len(got))
	}
}
