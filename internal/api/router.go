package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/odeje/internal/analytics"
	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/notify"
	"github.com/erazemk/odeje/internal/recommend"
)

// Deps are the collaborators the handlers are built from.
type Deps struct {
	DB          *sql.DB
	Clock       clock.Clock
	Stats       *analytics.Service
	Recommender *recommend.Service
	Notifier    *notify.Engine
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = clock.SystemClock{}
	}
	mux := http.NewServeMux()

	items := &ItemsHandler{DB: d.DB, Stats: d.Stats}
	usage := &UsageHandler{DB: d.DB, Clock: d.Clock, Stats: d.Stats}
	locations := &LocationsHandler{DB: d.DB}
	moves := &MovesHandler{DB: d.DB, Clock: d.Clock}
	stats := &StatsHandler{Stats: d.Stats}
	recs := &RecommendationsHandler{Recommender: d.Recommender}
	weather := &WeatherHandler{DB: d.DB, Clock: d.Clock}
	notifications := &NotificationsHandler{DB: d.DB, Engine: d.Notifier}
	snapshots := &SnapshotsHandler{DB: d.DB, Clock: d.Clock}

	// Items.
	mux.HandleFunc("GET /api/items", items.List)
	mux.HandleFunc("POST /api/items", items.Create)
	mux.HandleFunc("GET /api/items/{id}", items.Get)
	mux.HandleFunc("PUT /api/items/{id}", items.Update)
	mux.HandleFunc("DELETE /api/items/{id}", items.Delete)
	mux.HandleFunc("PUT /api/items/{id}/status", items.SetStatus)
	mux.HandleFunc("PUT /api/items/{id}/image", items.UploadImage)
	mux.HandleFunc("GET /api/items/{id}/image", items.GetImage)
	mux.HandleFunc("GET /api/items/{id}/thumbnail", items.GetThumbnail)

	// Usage.
	mux.HandleFunc("POST /api/items/{id}/usage/start", usage.Start)
	mux.HandleFunc("POST /api/items/{id}/usage/end", usage.End)
	mux.HandleFunc("GET /api/items/{id}/usage", usage.ForItem)
	mux.HandleFunc("GET /api/usage/open", usage.ListOpen)
	mux.HandleFunc("PUT /api/usage/{id}", usage.UpdatePeriod)
	mux.HandleFunc("DELETE /api/usage/{id}", usage.DeletePeriod)

	// Locations and moves.
	mux.HandleFunc("GET /api/locations", locations.List)
	mux.HandleFunc("POST /api/locations", locations.Create)
	mux.HandleFunc("GET /api/locations/{id}", locations.Get)
	mux.HandleFunc("PUT /api/locations/{id}", locations.Update)
	mux.HandleFunc("DELETE /api/locations/{id}", locations.Delete)
	mux.HandleFunc("POST /api/items/{id}/move", moves.Create)
	mux.HandleFunc("GET /api/moves", moves.List)

	// Statistics.
	mux.HandleFunc("GET /api/stats", stats.Dashboard)
	mux.HandleFunc("GET /api/stats/overview", stats.Overview)
	mux.HandleFunc("GET /api/stats/status", stats.Status)
	mux.HandleFunc("GET /api/stats/seasons", stats.Seasons)
	mux.HandleFunc("GET /api/stats/usage-by-season", stats.UsageBySeason)
	mux.HandleFunc("GET /api/stats/most-used", stats.MostUsed)
	mux.HandleFunc("GET /api/stats/by-year", stats.ByYear)
	mux.HandleFunc("GET /api/stats/by-month", stats.ByMonth)

	// Recommendations and weather.
	mux.HandleFunc("GET /api/recommendations", recs.Get)
	mux.HandleFunc("POST /api/weather", weather.Record)
	mux.HandleFunc("GET /api/weather", weather.Latest)

	// Notifications.
	mux.HandleFunc("GET /api/notifications", notifications.List)
	mux.HandleFunc("PUT /api/notifications/read-all", notifications.ReadAll)
	mux.HandleFunc("PUT /api/notifications/{id}/read", notifications.Read)
	mux.HandleFunc("DELETE /api/notifications/{id}", notifications.Delete)
	mux.HandleFunc("POST /api/notifications/check", notifications.Check)

	// Snapshots.
	mux.HandleFunc("GET /api/snapshots", snapshots.List)
	mux.HandleFunc("POST /api/snapshots/rebuild", snapshots.Rebuild)

	return mux
}
