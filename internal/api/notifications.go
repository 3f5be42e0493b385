package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/notify"
	"github.com/erazemk/odeje/internal/store"
)

// NotificationsHandler serves stored notifications and runs the rules on
// demand.
type NotificationsHandler struct {
	DB     *sql.DB
	Engine *notify.Engine
}

// List handles GET /api/notifications?unread=true.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := store.ListNotifications(r.Context(), h.DB, unreadOnly)
	if err != nil {
		writeError(w, err, 0, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	unread, err := store.CountUnread(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, 0, "failed to count notifications")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread":        unread,
	})
}

// Read handles PUT /api/notifications/{id}/read.
func (h *NotificationsHandler) Read(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := store.MarkNotificationRead(r.Context(), h.DB, id); err != nil {
		writeError(w, err, 0, "failed to mark notification read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification read"})
}

// ReadAll handles PUT /api/notifications/read-all.
func (h *NotificationsHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	n, err := store.MarkAllNotificationsRead(r.Context(), h.DB)
	if err != nil {
		writeError(w, err, 0, "failed to mark notifications read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/notifications/{id}.
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := store.DeleteNotification(r.Context(), h.DB, id); err != nil {
		writeError(w, err, 0, "failed to delete notification")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}

// Check handles POST /api/notifications/check. The body is an optional
// notify.RunOptions.
func (h *NotificationsHandler) Check(w http.ResponseWriter, r *http.Request) {
	var opts notify.RunOptions
	if err := decodeJSON(r, &opts); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	jsonResponse(w, http.StatusOK, h.Engine.Run(r.Context(), opts))
}
