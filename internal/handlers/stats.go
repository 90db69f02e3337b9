package handlers

import (
	"net/http"

	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
)

// StatsHandler serves the public front page counters
type StatsHandler struct {
	stats StatsServiceInterface
}

func NewStatsHandler(stats StatsServiceInterface) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// @Router /stats [get]
func (h *StatsHandler) PublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.PublicStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toStatsResponse(stats))
}
