package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
)

type fakeSource struct {
	items    []model.Item
	periods  []model.UsagePeriod
	readings []model.WeatherReading
}

func (f *fakeSource) ListAvailableItems(context.Context) ([]model.Item, error) { return f.items, nil }
func (f *fakeSource) ListPeriods(context.Context) ([]model.UsagePeriod, error) {
	return f.periods, nil
}
func (f *fakeSource) LatestWeather(_ context.Context, limit int) ([]model.WeatherReading, error) {
	return f.readings[:min(limit, len(f.readings))], nil
}

func TestServiceUsesFreshReading(t *testing.T) {
	src := &fakeSource{
		items:    []model.Item{quilt(1, model.SeasonWinter, 2000, "")},
		readings: []model.WeatherReading{{Temperature: 30, Humidity: 50, RecordedAt: january.Add(-time.Hour)}},
	}
	svc := NewService(src, clock.NewFixed(january), nil)
	svc.MaxWeatherAge = 6 * time.Hour
	svc.TopN = 1

	res, err := svc.Recommend(context.Background(), Preferences{}, 0)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.WeatherSource != SourceReading || res.Weather.Temperature != 30 {
		t.Errorf("expected stored reading to be used, got %s %+v", res.WeatherSource, res.Weather)
	}
	if len(res.Top) != 1 {
		t.Errorf("expected service default top 1, got %d", len(res.Top))
	}
}

func TestServiceIgnoresStaleReading(t *testing.T) {
	src := &fakeSource{
		items:    []model.Item{quilt(1, model.SeasonWinter, 2000, "")},
		readings: []model.WeatherReading{{Temperature: 30, Humidity: 50, RecordedAt: january.Add(-48 * time.Hour)}},
	}
	svc := NewService(src, clock.NewFixed(january), nil)
	svc.MaxWeatherAge = 6 * time.Hour

	res, err := svc.Recommend(context.Background(), Preferences{}, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if res.WeatherSource != SourceSeasonal {
		t.Errorf("expected seasonal fallback for stale reading, got %s", res.WeatherSource)
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, nil)
	if svc.TopN != DefaultTopN || svc.MaxWeatherAge != 0 {
		t.Errorf("unexpected defaults TopN=%d MaxWeatherAge=%s", svc.TopN, svc.MaxWeatherAge)
	}
	if svc.Clock == nil || svc.Log == nil {
		t.Error("expected clock and logger defaults")
	}
}
