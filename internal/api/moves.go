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

// MovesHandler handles item relocation endpoints.
type MovesHandler struct {
	DB    *sql.DB
	Clock clock.Clock
}

type moveRequest struct {
	ToLocationID int64     `json:"to_location_id"`
	Notes        string    `json:"notes"`
	MovedAt      time.Time `json:"moved_at"`
}

// Create handles POST /api/items/{id}/move.
func (h *MovesHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ToLocationID <= 0 {
		jsonResponse(w, http.StatusBadRequest, errorBody{Error: "to_location_id required", Field: "to_location_id", ItemID: id})
		return
	}
	if req.MovedAt.IsZero() {
		req.MovedAt = h.Clock.Now()
	}

	move, err := store.MoveItem(r.Context(), h.DB, id, req.ToLocationID, req.Notes, req.MovedAt)
	if err != nil {
		writeError(w, err, id, "failed to move item")
		return
	}

	slog.Info("item moved", "item", id, "from", move.FromLocationName, "to", move.ToLocationName)
	jsonResponse(w, http.StatusCreated, move)
}

// List handles GET /api/moves.
func (h *MovesHandler) List(w http.ResponseWriter, r *http.Request) {
	var itemID int64
	if v := r.URL.Query().Get("item_id"); v != "" {
		var err error
		if itemID, err = strconv.ParseInt(v, 10, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
	}

	moves, err := store.ListMoves(r.Context(), h.DB, itemID)
	if err != nil {
		writeError(w, err, 0, "failed to list moves")
		return
	}
	if moves == nil {
		moves = []model.Move{}
	}
	jsonResponse(w, http.StatusOK, moves)
}
