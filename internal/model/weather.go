package model

import "time"

// Weather is a temperature (°C) and relative humidity (%) reading.
type Weather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// WeatherReading is a stored reading supplied by an external provider.
type WeatherReading struct {
	ID          int64     `json:"id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Weather returns the reading without its bookkeeping fields.
func (r WeatherReading) Weather() Weather {
	return Weather{Temperature: r.Temperature, Humidity: r.Humidity}
}

// SeasonalWeather returns a typical reading for t's calendar season. It is
// used when no recent reading is available.
func SeasonalWeather(t time.Time) Weather {
	switch SeasonOf(t) {
	case SeasonWinter:
		return Weather{Temperature: 5, Humidity: 45}
	case SeasonSummer:
		return Weather{Temperature: 28, Humidity: 65}
	default:
		return Weather{Temperature: 17, Humidity: 55}
	}
}
