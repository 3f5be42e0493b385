package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

// SnapshotsHandler serves and rebuilds daily usage snapshots.
type SnapshotsHandler struct {
	DB    *sql.DB
	Clock clock.Clock
}

// List handles GET /api/snapshots?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *SnapshotsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for _, key := range []string{"from", "to"} {
		if _, err := queryDate(r, key); err != nil {
			writeError(w, err, 0, "invalid date")
			return
		}
	}

	snaps, err := store.ListSnapshots(r.Context(), h.DB, q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err, 0, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []model.DailySnapshot{}
	}
	jsonResponse(w, http.StatusOK, snaps)
}

// Rebuild handles POST /api/snapshots/rebuild?from=&to=. A missing from
// starts at the first recorded usage and a missing to is today.
func (h *SnapshotsHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, err, 0, "invalid date")
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, err, 0, "invalid date")
		return
	}
	if to.IsZero() {
		to = h.Clock.Now()
	}
	if from.IsZero() {
		if from, err = store.FirstUsageStart(r.Context(), h.DB); err != nil {
			writeError(w, err, 0, "failed to find first usage")
			return
		}
		if from.IsZero() {
			from = to
		}
	}

	days, err := store.RebuildSnapshots(r.Context(), h.DB, from, to)
	if err != nil {
		writeError(w, err, 0, "failed to rebuild snapshots")
		return
	}

	slog.Info("snapshots rebuilt", "from", from.Format(model.DateLayout), "to", to.Format(model.DateLayout), "days", days)
	jsonResponse(w, http.StatusOK, map[string]int{"days": days})
}
