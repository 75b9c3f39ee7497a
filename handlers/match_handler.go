package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// ListMatches: GET /matches?date=YYYY-MM-DD&team_id=
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	filter := repositories.MatchFilter{TeamID: r.URL.Query().Get("team_id")}
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("date must be YYYY-MM-DD, got %q", raw))
			return
		}
		filter.Date = &day
	}

	matches, err := h.matchService.ListMatches(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchLineup(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	lineup, err := h.matchService.GetMatchLineup(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"lineup": lineup}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatchScore отвечает 409, пока матч не завершён, и 422, если данных
// состава не хватает для результата.
func (h *MatchHandler) GetMatchScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.matchService.GetMatchScore(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type batchScoresRequest struct {
	MatchIDs []string `json:"match_ids"`
}

// GetMatchScores: POST /batch/match-scores {"match_ids": [...]}, at most
// services.MaxBatchScores ids. Matches without a score are reported under
// "errors" instead of failing the request.
func (h *MatchHandler) GetMatchScores(w http.ResponseWriter, r *http.Request) {
	var req batchScoresRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	batch, err := h.matchService.GetMatchScores(r.Context(), req.MatchIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"scores": batch.Scores, "errors": batch.Errors}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
