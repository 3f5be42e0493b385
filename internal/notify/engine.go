// Package notify evaluates the standing notification rules against usage
// history and stores deduplicated notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
)

// Rule thresholds and dedup windows.
const (
	WeatherThreshold = 5.0
	WeatherWindow    = 24 * time.Hour

	MaintenanceAfter  = 30 * model.Day
	MaintenanceWindow = 7 * model.Day

	DisposalAfter  = 365 * model.Day
	DisposalWindow = 30 * model.Day
)

// Rule names, used in logs and as AggregationError components.
const (
	RuleWeather     = "weather_change"
	RuleMaintenance = "maintenance_reminder"
	RuleDisposal    = "disposal_suggestion"
)

// Source is the read side of the store the rules inspect.
type Source interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	ListPeriods(ctx context.Context) ([]model.UsagePeriod, error)
	ListOpenUsages(ctx context.Context) ([]model.OpenUsage, error)
	LatestTwoWeather(ctx context.Context) (*model.WeatherReading, *model.WeatherReading, error)
}

// Store persists notifications.
type Store interface {
	FindSimilarNotification(ctx context.Context, typ model.NotificationType, itemID *int64, since time.Time) (*model.Notification, error)
	CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error)
}

// Engine runs the notification rules.
type Engine struct {
	Source Source
	Store  Store
	Clock  clock.Clock
	Log    *slog.Logger
}

// NewEngine creates an engine. A nil clock or logger uses the defaults.
func NewEngine(src Source, st Store, clk clock.Clock, log *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Source: src, Store: st, Clock: clk, Log: log}
}

// WeatherDelta is a pair of temperatures to compare.
type WeatherDelta struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// RunOptions select what a Run evaluates.
type RunOptions struct {
	// Weather overrides the two latest stored readings.
	Weather *WeatherDelta `json:"weather,omitempty"`

	SkipWeather     bool `json:"skip_weather"`
	SkipMaintenance bool `json:"skip_maintenance"`
	SkipDisposal    bool `json:"skip_disposal"`
}

// Report summarises one Run.
type Report struct {
	RunID         string  `json:"run_id"`
	WeatherChange int     `json:"weather_change"`
	Maintenance   int     `json:"maintenance"`
	Disposal      int     `json:"disposal"`
	Total         int     `json:"total"`
	Errors        []error `json:"-"`
}

// MarshalJSON renders errors as strings.
func (r Report) MarshalJSON() ([]byte, error) {
	type report Report
	var msgs []string
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return json.Marshal(struct {
		report
		Errors []string `json:"errors,omitempty"`
	}{report(r), msgs})
}

// Run evaluates every enabled rule. A failing rule is logged, recorded in
// Report.Errors as a *model.AggregationError and does not stop the others.
// Its count is the number of notifications it stored before failing, which
// is 0 when the failure happens while loading its inputs.
func (e *Engine) Run(ctx context.Context, opts RunOptions) Report {
	rep := Report{RunID: uuid.NewString()}
	log := e.Log.With("run", rep.RunID)

	run := func(rule string, skip bool, fn func() (int, error)) int {
		if skip {
			return 0
		}
		n, err := fn()
		if err != nil {
			agg := &model.AggregationError{Component: rule, Err: err}
			log.Error("notification rule failed", "rule", rule, "error", err)
			rep.Errors = append(rep.Errors, agg)
		}
		return n
	}

	rep.WeatherChange = run(RuleWeather, opts.SkipWeather, func() (int, error) {
		delta := opts.Weather
		if delta == nil {
			current, previous, err := e.Source.LatestTwoWeather(ctx)
			if err != nil {
				return 0, fmt.Errorf("loading weather readings: %w", err)
			}
			if current == nil || previous == nil {
				return 0, nil
			}
			delta = &WeatherDelta{Current: current.Temperature, Previous: previous.Temperature}
		}
		return e.weatherChange(ctx, delta.Current, delta.Previous, rep.RunID)
	})
	rep.Maintenance = run(RuleMaintenance, opts.SkipMaintenance, func() (int, error) {
		return e.maintenanceReminders(ctx, rep.RunID)
	})
	rep.Disposal = run(RuleDisposal, opts.SkipDisposal, func() (int, error) {
		return e.disposalSuggestions(ctx, rep.RunID)
	})

	rep.Total = rep.WeatherChange + rep.Maintenance + rep.Disposal
	log.Info("notification rules evaluated",
		"weather_change", rep.WeatherChange,
		"maintenance", rep.Maintenance,
		"disposal", rep.Disposal,
		"errors", len(rep.Errors),
	)
	return rep
}

// WeatherChange notifies about a temperature swing larger than
// WeatherThreshold, at most once per WeatherWindow.
func (e *Engine) WeatherChange(ctx context.Context, current, previous float64) (int, error) {
	return e.weatherChange(ctx, current, previous, uuid.NewString())
}

// MaintenanceReminders notifies about items in use for longer than
// MaintenanceAfter, at most once per item per MaintenanceWindow.
func (e *Engine) MaintenanceReminders(ctx context.Context) (int, error) {
	return e.maintenanceReminders(ctx, uuid.NewString())
}

// DisposalSuggestions notifies about items with usage history but no use in
// DisposalAfter, at most once per item per DisposalWindow. Items that were
// never used are not flagged.
func (e *Engine) DisposalSuggestions(ctx context.Context) (int, error) {
	return e.disposalSuggestions(ctx, uuid.NewString())
}

func (e *Engine) weatherChange(ctx context.Context, current, previous float64, runID string) (int, error) {
	delta := math.Abs(current - previous)
	if delta <= WeatherThreshold {
		return 0, nil
	}
	change := math.Round(delta*10) / 10

	direction, advice := "warmer", "Consider switching to a lighter quilt."
	if current < previous {
		direction, advice = "colder", "Consider switching to a warmer quilt."
	}
	priority := model.PriorityMedium
	if delta > 2*WeatherThreshold {
		priority = model.PriorityHigh
	}

	return e.emit(ctx, &model.Notification{
		Type:     model.NotificationWeatherChange,
		Priority: priority,
		Title:    fmt.Sprintf("Weather got %.1f°C %s", change, direction),
		Message:  fmt.Sprintf("Temperature went from %.1f°C to %.1f°C. %s", previous, current, advice),
		Metadata: map[string]any{
			"tempChange":   change,
			"currentTemp":  current,
			"previousTemp": previous,
			"direction":    direction,
		},
	}, WeatherWindow, runID)
}

func (e *Engine) maintenanceReminders(ctx context.Context, runID string) (int, error) {
	open, err := e.Source.ListOpenUsages(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading open usages: %w", err)
	}

	now := e.Clock.Now()
	created := 0
	for _, u := range open {
		inUse := now.Sub(u.StartedAt)
		if inUse <= MaintenanceAfter {
			continue
		}
		days := int(inUse / model.Day)
		priority := model.PriorityMedium
		if inUse > 2*MaintenanceAfter {
			priority = model.PriorityHigh
		}

		itemID := u.ItemID
		n, err := e.emit(ctx, &model.Notification{
			Type:     model.NotificationMaintenanceReminder,
			Priority: priority,
			Title:    fmt.Sprintf("%s needs airing", itemLabel(u.ItemName, itemID)),
			Message:  fmt.Sprintf("%s has been in use for %d days. Air it out or wash the cover.", itemLabel(u.ItemName, itemID), days),
			ItemID:   &itemID,
			Metadata: map[string]any{
				"daysInUse": days,
				"usageId":   u.ID,
			},
		}, MaintenanceWindow, runID)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (e *Engine) disposalSuggestions(ctx context.Context, runID string) (int, error) {
	items, err := e.Source.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading items: %w", err)
	}
	periods, err := e.Source.ListPeriods(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading usage periods: %w", err)
	}
	open, err := e.Source.ListOpenUsages(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading open usages: %w", err)
	}

	lastEnd := make(map[int64]time.Time)
	for _, p := range periods {
		if p.EndedAt.After(lastEnd[p.ItemID]) {
			lastEnd[p.ItemID] = p.EndedAt
		}
	}
	inUse := make(map[int64]bool, len(open))
	for _, u := range open {
		inUse[u.ItemID] = true
	}

	now := e.Clock.Now()
	created := 0
	for _, item := range items {
		last, used := lastEnd[item.ID]
		if !used || inUse[item.ID] || now.Sub(last) <= DisposalAfter {
			continue
		}
		days := int(now.Sub(last) / model.Day)

		itemID := item.ID
		n, err := e.emit(ctx, &model.Notification{
			Type:     model.NotificationDisposalSuggestion,
			Priority: model.PriorityLow,
			Title:    fmt.Sprintf("%s has not been used in a year", itemLabel(item.Name, itemID)),
			Message:  fmt.Sprintf("%s was last used %d days ago. Consider donating or discarding it.", itemLabel(item.Name, itemID), days),
			ItemID:   &itemID,
			Metadata: map[string]any{
				"daysSinceLastUse": days,
				"lastUsedAt":       last.UTC().Format(time.RFC3339),
			},
		}, DisposalWindow, runID)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// emit stores n unless a notification of the same type and scope was
// created within window. It returns the number of notifications created.
func (e *Engine) emit(ctx context.Context, n *model.Notification, window time.Duration, runID string) (int, error) {
	now := e.Clock.Now()

	existing, err := e.Store.FindSimilarNotification(ctx, n.Type, n.ItemID, now.Add(-window))
	if err != nil {
		return 0, fmt.Errorf("checking for similar notification: %w", err)
	}
	if existing != nil {
		e.Log.Debug("notification deduplicated", "type", n.Type, "existing", existing.ID)
		return 0, nil
	}

	n.Metadata["runId"] = runID
	n.CreatedAt = now
	created, err := e.Store.CreateNotification(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("creating notification: %w", err)
	}
	e.Log.Info("notification created", "type", created.Type, "id", created.ID, "title", created.Title)
	return 1, nil
}

func itemLabel(name string, id int64) string {
	if name == "" {
		return fmt.Sprintf("Quilt #%d", id)
	}
	return name
}
