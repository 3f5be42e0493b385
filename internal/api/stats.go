package api

import (
	"net/http"
	"strconv"

	"github.com/erazemk/odeje/internal/analytics"
)

// defaultMostUsed is the most-used list length when no limit is given.
const defaultMostUsed = 10

// StatsHandler serves usage statistics.
type StatsHandler struct {
	Stats *analytics.Service
}

func limitParam(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultMostUsed, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n > 0
}

// Dashboard handles GET /api/stats. Statistics that fail are listed in the
// errors field and the rest are still returned.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	jsonResponse(w, http.StatusOK, h.Stats.Dashboard(r.Context(), limit))
}

// Overview handles GET /api/stats/overview.
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Stats.Overview(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute overview")
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

// Status handles GET /api/stats/status.
func (h *StatsHandler) Status(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.StatusDistribution(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute status distribution")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Seasons handles GET /api/stats/seasons.
func (h *StatsHandler) Seasons(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.SeasonDistribution(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute season distribution")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// UsageBySeason handles GET /api/stats/usage-by-season.
func (h *StatsHandler) UsageBySeason(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.UsageBySeason(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute usage by season")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// MostUsed handles GET /api/stats/most-used?limit=N.
func (h *StatsHandler) MostUsed(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	d, err := h.Stats.MostUsed(r.Context(), limit)
	if err != nil {
		writeError(w, err, 0, "failed to compute most used items")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// ByYear handles GET /api/stats/by-year.
func (h *StatsHandler) ByYear(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.UsageByYear(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute usage by year")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// ByMonth handles GET /api/stats/by-month.
func (h *StatsHandler) ByMonth(w http.ResponseWriter, r *http.Request) {
	d, err := h.Stats.UsageByMonth(r.Context())
	if err != nil {
		writeError(w, err, 0, "failed to compute usage by month")
		return
	}
	jsonResponse(w, http.StatusOK, d)
}
