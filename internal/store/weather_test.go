package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

func TestRecordAndLatestWeather(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	current, previous, err := LatestTwoWeather(ctx, database)
	if err != nil || current != nil || previous != nil {
		t.Fatalf("expected no readings, got %v %v %v", current, previous, err)
	}

	RecordWeather(ctx, database, model.Weather{Temperature: 20, Humidity: 50}, jan(1))
	RecordWeather(ctx, database, model.Weather{Temperature: 27, Humidity: 40}, jan(2))

	current, previous, err = LatestTwoWeather(ctx, database)
	if err != nil {
		t.Fatalf("LatestTwoWeather: %v", err)
	}
	if current.Temperature != 27 || previous.Temperature != 20 {
		t.Errorf("expected 27 then 20, got %v then %v", current.Temperature, previous.Temperature)
	}
	if !current.RecordedAt.Equal(jan(2)) {
		t.Errorf("expected recorded_at %s, got %s", jan(2), current.RecordedAt)
	}
}

func TestRecordWeatherValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := RecordWeather(ctx, database, model.Weather{Temperature: 10, Humidity: 130}, jan(1)); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for humidity, got %v", err)
	}
	if _, err := RecordWeather(ctx, database, model.Weather{Temperature: 10, Humidity: 30}, time.Time{}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for missing time, got %v", err)
	}
}
