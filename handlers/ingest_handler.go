package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/services"
)

// IngestHandler принимает данные от сборщика результатов.
type IngestHandler struct {
	ingestService services.IngestService
}

func NewIngestHandler(is services.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: is}
}

type lineupInput struct {
	Lineup []models.LineupEntry `json:"lineup"`
}

func (h *IngestHandler) PutTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := urlParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var team models.Team
	if err := readJSON(w, r, &team); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if team.ID != "" && team.ID != teamID {
		badRequestResponse(w, r, fmt.Errorf("body id %q does not match URL id %q", team.ID, teamID))
		return
	}
	team.ID = teamID

	if err := h.ingestService.UpsertTeam(r.Context(), &team); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *IngestHandler) PutMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var match models.Match
	if err := readJSON(w, r, &match); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if match.ID != "" && match.ID != matchID {
		badRequestResponse(w, r, fmt.Errorf("body id %q does not match URL id %q", match.ID, matchID))
		return
	}
	match.ID = matchID

	stored, err := h.ingestService.UpsertMatch(r.Context(), &match)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": stored}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PutLineup replaces the whole lineup of a match.
func (h *IngestHandler) PutLineup(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input lineupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	lineup, err := h.ingestService.ReplaceLineup(r.Context(), matchID, input.Lineup)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"lineup": lineup}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
