package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/odeje/internal/db"
	"github.com/erazemk/odeje/internal/model"
)

// RecordWeather stores a reading supplied by a weather provider.
func RecordWeather(ctx context.Context, database *sql.DB, w model.Weather, recordedAt time.Time) (*model.WeatherReading, error) {
	if w.Humidity < 0 || w.Humidity > 100 {
		return nil, &model.ValidationError{Field: "humidity", Message: "must be between 0 and 100"}
	}
	if recordedAt.IsZero() {
		return nil, &model.ValidationError{Field: "recorded_at", Message: "required"}
	}

	result, err := database.ExecContext(ctx,
		`INSERT INTO weather_readings (temperature, humidity, recorded_at) VALUES (?, ?, ?)`,
		w.Temperature, w.Humidity, db.Timestamp(recordedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("recording weather: %w", err)
	}

	id, _ := result.LastInsertId()
	return &model.WeatherReading{
		ID:          id,
		Temperature: w.Temperature,
		Humidity:    w.Humidity,
		RecordedAt:  recordedAt.UTC().Truncate(time.Second),
	}, nil
}

// LatestWeather returns up to limit readings, newest first.
func LatestWeather(ctx context.Context, database *sql.DB, limit int) ([]model.WeatherReading, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT id, temperature, humidity, recorded_at FROM weather_readings
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing weather readings: %w", err)
	}
	defer rows.Close()

	var readings []model.WeatherReading
	for rows.Next() {
		var r model.WeatherReading
		if err := rows.Scan(&r.ID, &r.Temperature, &r.Humidity, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning weather reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// LatestTwoWeather returns the newest reading and the one before it. Either
// may be nil when fewer readings are stored.
func LatestTwoWeather(ctx context.Context, database *sql.DB) (current, previous *model.WeatherReading, err error) {
	readings, err := LatestWeather(ctx, database, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(readings) > 0 {
		current = &readings[0]
	}
	if len(readings) > 1 {
		previous = &readings[1]
	}
	return current, previous, nil
}
