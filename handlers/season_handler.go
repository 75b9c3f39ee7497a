package handlers

import (
	"net/http"

	"github.com/Dosada05/tennis-standings/services"
)

type SeasonHandler struct {
	seasonService   services.SeasonService
	snapshotService services.SnapshotService
}

func NewSeasonHandler(ss services.SeasonService, snaps services.SnapshotService) *SeasonHandler {
	return &SeasonHandler{
		seasonService:   ss,
		snapshotService: snaps,
	}
}

func (h *SeasonHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasonService.ListSeasons(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"seasons": seasons}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PublishSnapshots: POST /seasons/{season}/snapshots?conference=
func (h *SeasonHandler) PublishSnapshots(w http.ResponseWriter, r *http.Request) {
	season, err := urlParam(r, "season")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.snapshotService.Publish(r.Context(), season, r.URL.Query().Get("conference"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"snapshots": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteSnapshot: DELETE /seasons/{season}/snapshots/{conference}
func (h *SeasonHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	season, err := urlParam(r, "season")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	conference, err := urlParam(r, "conference")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.snapshotService.Delete(r.Context(), season, conference); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
