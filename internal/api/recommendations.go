package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/odeje/internal/recommend"
)

// RecommendationsHandler serves quilt recommendations.
type RecommendationsHandler struct {
	Recommender *recommend.Service
}

// Get handles GET /api/recommendations?materials=a,b&top=N.
func (h *RecommendationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var prefs recommend.Preferences
	for _, m := range strings.Split(q.Get("materials"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			prefs.Materials = append(prefs.Materials, m)
		}
	}

	top := 0
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid top")
			return
		}
		top = n
	}

	res, err := h.Recommender.Recommend(r.Context(), prefs, top)
	if err != nil {
		writeError(w, err, 0, "failed to compute recommendations")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
