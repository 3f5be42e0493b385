package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

// WeatherHandler accepts readings from an external weather provider.
type WeatherHandler struct {
	DB    *sql.DB
	Clock clock.Clock
}

type weatherRequest struct {
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Record handles POST /api/weather.
func (h *WeatherHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Temperature == nil || req.Humidity == nil {
		jsonError(w, http.StatusBadRequest, "temperature and humidity required")
		return
	}
	if req.RecordedAt.IsZero() {
		req.RecordedAt = h.Clock.Now()
	}

	reading, err := store.RecordWeather(r.Context(), h.DB,
		model.Weather{Temperature: *req.Temperature, Humidity: *req.Humidity}, req.RecordedAt)
	if err != nil {
		writeError(w, err, 0, "failed to record weather")
		return
	}

	slog.Info("weather recorded", "temperature", reading.Temperature, "humidity", reading.Humidity)
	jsonResponse(w, http.StatusCreated, reading)
}

// Latest handles GET /api/weather?limit=N.
func (h *WeatherHandler) Latest(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	readings, err := store.LatestWeather(r.Context(), h.DB, limit)
	if err != nil {
		writeError(w, err, 0, "failed to list weather readings")
		return
	}
	if readings == nil {
		readings = []model.WeatherReading{}
	}
	jsonResponse(w, http.StatusOK, readings)
}
