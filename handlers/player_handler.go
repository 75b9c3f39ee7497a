package handlers

import (
	"net/http"

	"github.com/Dosada05/tennis-standings/services"
)

type PlayerHandler struct {
	statsService services.StatsService
}

func NewPlayerHandler(ss services.StatsService) *PlayerHandler {
	return &PlayerHandler{statsService: ss}
}

// GetPlayerStats: GET /stats/players/{playerID}?season=2024. A player that
// never appeared in a lineup gets an empty record.
func (h *PlayerHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID, err := urlParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.statsService.GetPlayerStats(r.Context(), playerID, r.URL.Query().Get("season"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
