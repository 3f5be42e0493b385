package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
)

// Source is the read side of the store recommendations are built from.
type Source interface {
	ListAvailableItems(ctx context.Context) ([]model.Item, error)
	ListPeriods(ctx context.Context) ([]model.UsagePeriod, error)
	LatestWeather(ctx context.Context, limit int) ([]model.WeatherReading, error)
}

// Service loads scoring inputs and runs Score.
type Service struct {
	Source Source
	Clock  clock.Clock
	Log    *slog.Logger

	// MaxWeatherAge is how old the newest reading may be to count as current.
	MaxWeatherAge time.Duration
	// TopN is used when a request does not ask for a count.
	TopN int
}

// NewService creates a recommendation service returning DefaultTopN items
// and accepting readings of any age. Set MaxWeatherAge and TopN to change
// that.
func NewService(src Source, clk clock.Clock, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{Source: src, Clock: clk, Log: log, TopN: DefaultTopN}
}

// Recommend scores every available item. Passing topN <= 0 uses s.TopN.
func (s *Service) Recommend(ctx context.Context, prefs Preferences, topN int) (*Result, error) {
	items, err := s.Source.ListAvailableItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading available items: %w", err)
	}
	periods, err := s.Source.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading usage periods: %w", err)
	}
	readings, err := s.Source.LatestWeather(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("loading weather: %w", err)
	}

	now := s.Clock.Now()
	var weather *model.Weather
	if len(readings) > 0 && (s.MaxWeatherAge <= 0 || now.Sub(readings[0].RecordedAt) <= s.MaxWeatherAge) {
		w := readings[0].Weather()
		weather = &w
	} else if len(readings) > 0 {
		s.Log.Debug("ignoring stale weather reading", "recorded_at", readings[0].RecordedAt)
	}

	byItem := make(map[int64][]model.UsagePeriod)
	for _, p := range periods {
		byItem[p.ItemID] = append(byItem[p.ItemID], p)
	}

	if topN <= 0 {
		topN = s.TopN
	}
	res := Score(Input{
		Now:         now,
		Weather:     weather,
		Items:       items,
		Periods:     byItem,
		Preferences: prefs,
		TopN:        topN,
	})
	return &res, nil
}
