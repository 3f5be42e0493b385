package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/odeje/internal/analytics"
	"github.com/erazemk/odeje/internal/imaging"
	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	DB    *sql.DB
	Stats *analytics.Service
}

type setStatusRequest struct {
	Status model.ItemStatus `json:"status"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ItemFilter{
		Status: model.ItemStatus(q.Get("status")),
		Season: model.Season(q.Get("season")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if filter.Season != "" && !filter.Season.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid season")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, err, 0, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req store.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req)
	if err != nil {
		writeError(w, err, 0, "failed to create item")
		return
	}

	slog.Info("item created", "item", item.ID, "name", item.Name, "season", item.Season)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}. The item is returned with its usage
// statistics.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, id, "failed to get item")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonResponse(w, http.StatusNotFound, errorBody{Error: "item not found", ItemID: id})
		return
	}

	usage, err := h.Stats.ItemUsage(r.Context(), id)
	if err != nil {
		writeError(w, err, id, "failed to compute item statistics")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item":  item,
		"stats": usage.Stats,
	})
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req store.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, req); err != nil {
		writeError(w, err, id, "failed to update item")
		return
	}

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		writeError(w, err, id, "failed to delete item")
		return
	}

	slog.Info("item deleted", "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// SetStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetItemStatus(r.Context(), h.DB, id, req.Status); err != nil {
		writeError(w, err, id, "failed to set item status")
		return
	}

	slog.Info("item status changed", "item", id, "status", req.Status)
	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, id, "failed to get item")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonResponse(w, http.StatusNotFound, errorBody{Error: "item not found", ItemID: id})
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Image, photo.Thumbnail, photo.MIME); err != nil {
		writeError(w, err, id, "failed to save image")
		return
	}

	slog.Info("item image uploaded", "item", id, "bytes", len(photo.Image))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, false)
}

// GetThumbnail handles GET /api/items/{id}/thumbnail.
func (h *ItemsHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, true)
}

func (h *ItemsHandler) serveImage(w http.ResponseWriter, r *http.Request, thumbnail bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id, thumbnail)
	if err != nil {
		writeError(w, err, id, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
