package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/odeje/internal/model"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string           `json:"error"`
	Field  string           `json:"field,omitempty"`
	ItemID int64            `json:"item_id,omitempty"`
	Status model.ItemStatus `json:"status,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// writeError maps domain errors to 400/404/409 and anything else to a logged
// 500 with msg. itemID, when non-zero, is reported alongside the error.
func writeError(w http.ResponseWriter, err error, itemID int64, msg string) {
	var (
		validation *model.ValidationError
		conflict   *model.ConflictError
		notFound   *model.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		jsonResponse(w, http.StatusBadRequest, errorBody{Error: validation.Error(), Field: validation.Field, ItemID: itemID})
	case errors.As(err, &conflict):
		jsonResponse(w, http.StatusConflict, errorBody{Error: conflict.Error(), ItemID: conflict.ItemID, Status: conflict.Status})
	case errors.As(err, &notFound):
		jsonResponse(w, http.StatusNotFound, errorBody{Error: notFound.Error(), ItemID: itemID})
	default:
		slog.Error(msg, "error", err, "item", itemID)
		jsonError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON decodes a JSON request body into the given target. An empty
// body leaves target untouched.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// queryDate parses a YYYY-MM-DD query parameter. An empty value is the zero
// time.
func queryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: key, Message: "must be YYYY-MM-DD"}
	}
	return t, nil
}
