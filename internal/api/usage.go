package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/odeje/internal/analytics"
	"github.com/erazemk/odeje/internal/clock"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

// UsageHandler drives the usage state machine and exposes usage history.
type UsageHandler struct {
	DB    *sql.DB
	Clock clock.Clock
	Stats *analytics.Service
}

// Start handles POST /api/items/{id}/usage/start. A missing started_at
// means now.
func (h *UsageHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req store.StartUsageInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = h.Clock.Now()
	}

	open, err := store.StartUsage(r.Context(), h.DB, id, req)
	if err != nil {
		writeError(w, err, id, "failed to start usage")
		return
	}

	slog.Info("usage started", "item", id, "usage", open.ID, "type", open.UsageType)
	jsonResponse(w, http.StatusCreated, open)
}

// End handles POST /api/items/{id}/usage/end. A missing ended_at means now.
func (h *UsageHandler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req store.EndUsageInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EndedAt.IsZero() {
		req.EndedAt = h.Clock.Now()
	}

	period, err := store.EndUsage(r.Context(), h.DB, id, req)
	if err != nil {
		writeError(w, err, id, "failed to end usage")
		return
	}

	slog.Info("usage ended", "item", id, "period", period.ID, "days", period.DurationDays)
	jsonResponse(w, http.StatusOK, period)
}

// ForItem handles GET /api/items/{id}/usage.
func (h *UsageHandler) ForItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	usage, err := h.Stats.ItemUsage(r.Context(), id)
	if err != nil {
		writeError(w, err, id, "failed to get item usage")
		return
	}
	jsonResponse(w, http.StatusOK, usage)
}

// ListOpen handles GET /api/usage/open.
func (h *UsageHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	open, err := store.ListOpenUsages(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, 0, "failed to list open usages")
		return
	}
	if open == nil {
		open = []model.OpenUsage{}
	}
	jsonResponse(w, http.StatusOK, open)
}

// UpdatePeriod handles PUT /api/usage/{id}.
func (h *UsageHandler) UpdatePeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid usage id")
		return
	}

	var req store.PeriodEdit
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := store.UpdatePeriod(r.Context(), h.DB, id, req)
	if err != nil {
		writeError(w, err, 0, "failed to update usage period")
		return
	}
	jsonResponse(w, http.StatusOK, period)
}

// DeletePeriod handles DELETE /api/usage/{id}.
func (h *UsageHandler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid usage id")
		return
	}

	if err := store.DeletePeriod(r.Context(), h.DB, id); err != nil {
		writeError(w, err, 0, "failed to delete usage period")
		return
	}

	slog.Info("usage period deleted", "period", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "usage period deleted"})
}
