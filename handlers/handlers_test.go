package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tennis-standings/cache"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/services"
	"github.com/Dosada05/tennis-standings/storage"
)

type stubMatchService struct {
	score      *models.MatchScore
	scoreErr   error
	lastFilter repositories.MatchFilter
	batchIDs   []string
}

func (s *stubMatchService) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	if id != "m1" {
		return nil, fmt.Errorf("%w: %s", services.ErrMatchNotFound, id)
	}
	return &models.Match{ID: id}, nil
}

func (s *stubMatchService) ListMatches(ctx context.Context, f repositories.MatchFilter) ([]*models.Match, error) {
	s.lastFilter = f
	return []*models.Match{{ID: "m1"}}, nil
}

func (s *stubMatchService) GetMatchLineup(ctx context.Context, id string) ([]models.LineupEntry, error) {
	return []models.LineupEntry{{ID: "l1", MatchID: id}}, nil
}

func (s *stubMatchService) GetMatchScore(ctx context.Context, id string) (*models.MatchScore, error) {
	return s.score, s.scoreErr
}

func (s *stubMatchService) GetMatchScores(ctx context.Context, ids []string) (*services.BatchScores, error) {
	s.batchIDs = ids
	if len(ids) > services.MaxBatchScores {
		return nil, fmt.Errorf("%w: too many ids", services.ErrValidationFailed)
	}
	batch := &services.BatchScores{
		Scores: map[string]*models.MatchScore{},
		Errors: map[string]string{},
	}
	for _, id := range ids {
		if id == "m1" {
			batch.Scores[id] = &models.MatchScore{MatchID: id, HomeTeamScore: 4, HomeTeamWon: true}
		} else {
			batch.Errors[id] = "match not found"
		}
	}
	return batch, nil
}

type stubIngestService struct {
	matchErr  error
	lineupErr error
	gotMatch  *models.Match
}

func (s *stubIngestService) UpsertTeam(ctx context.Context, team *models.Team) error { return nil }

func (s *stubIngestService) UpsertMatch(ctx context.Context, m *models.Match) (*models.Match, error) {
	s.gotMatch = m
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	return m, nil
}

func (s *stubIngestService) ReplaceLineup(ctx context.Context, id string, e []models.LineupEntry) ([]models.LineupEntry, error) {
	return e, s.lineupErr
}

type stubStatsService struct{ err error }

func (s *stubStatsService) GetTeamStats(ctx context.Context, teamID, season string) (*models.TeamStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.TeamStats{TeamID: teamID, Season: season, TotalWins: 3}, nil
}

func (s *stubStatsService) GetPlayerStats(ctx context.Context, playerID, season string) (*models.PlayerStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.PlayerStats{PlayerID: playerID, Season: season, SinglesWins: 2, TotalWins: 2, TotalMatches: 2}, nil
}

type stubSnapshotService struct{ err error }

func (s *stubSnapshotService) Publish(ctx context.Context, season, conf string) ([]*storage.UploadResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*storage.UploadResult{{Key: services.SnapshotKey(season, conf)}}, nil
}

func (s *stubSnapshotService) Delete(ctx context.Context, season, conf string) error { return s.err }

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

func newTestRouter(ms services.MatchService, is services.IngestService, ss services.StatsService, snaps services.SnapshotService) *chi.Mux {
	r := chi.NewRouter()
	mh := NewMatchHandler(ms)
	r.Get("/matches", mh.ListMatches)
	r.Get("/matches/{matchID}", mh.GetMatch)
	r.Get("/matches/{matchID}/score", mh.GetMatchScore)
	r.Post("/batch/match-scores", mh.GetMatchScores)

	th := NewTeamHandler(nil, ss)
	r.Get("/stats/teams/{teamID}", th.GetTeamStats)
	r.Get("/stats/players/{playerID}", NewPlayerHandler(ss).GetPlayerStats)

	sh := NewSeasonHandler(nil, snaps)
	r.Post("/seasons/{season}/snapshots", sh.PublishSnapshots)
	r.Delete("/seasons/{season}/snapshots/{conference}", sh.DeleteSnapshot)

	ih := NewIngestHandler(is)
	r.Put("/ingest/matches/{matchID}", ih.PutMatch)
	r.Put("/ingest/matches/{matchID}/lineup", ih.PutLineup)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	env := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: response is not a JSON object: %v (%s)", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func errorMessage(t *testing.T, env map[string]json.RawMessage) string {
	t.Helper()
	var msg string
	if err := json.Unmarshal(env["error"], &msg); err != nil {
		t.Fatalf("no error message in %v", env)
	}
	return msg
}

func TestGetMatchScoreStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"pending", fmt.Errorf("%w: m1", services.ErrMatchNotCompleted), http.StatusConflict, "match not completed"},
		{"incomplete", fmt.Errorf("resolve m1: %w", services.ErrIncompleteResultData), http.StatusUnprocessableEntity, "incomplete result data"},
		{"ambiguous", fmt.Errorf("resolve m1: %w", services.ErrAmbiguousResult), http.StatusUnprocessableEntity, "ambiguous result"},
		{"missing", fmt.Errorf("%w: m9", services.ErrMatchNotFound), http.StatusNotFound, "the requested resource could not be found"},
		{"timeout", fmt.Errorf("compute: %w", cache.ErrComputeTimeout), http.StatusGatewayTimeout, "the request timed out"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "the server encountered a problem and could not process your request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&stubMatchService{scoreErr: tt.err}, nil, nil, nil)
			rec, env := do(t, router, http.MethodGet, "/matches/m1/score", "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := errorMessage(t, env); got != tt.message {
				t.Errorf("error = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestGetMatchScoreOK(t *testing.T) {
	ms := &stubMatchService{score: &models.MatchScore{MatchID: "m1", HomeTeamScore: 4, AwayTeamScore: 2, HomeTeamWon: true}}
	rec, env := do(t, newTestRouter(ms, nil, nil, nil), http.MethodGet, "/matches/m1/score", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	var score models.MatchScore
	if err := json.Unmarshal(env["score"], &score); err != nil {
		t.Fatal(err)
	}
	if score.HomeTeamScore != 4 || score.AwayTeamScore != 2 || !score.HomeTeamWon {
		t.Errorf("score = %+v", score)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	rec, _ := do(t, newTestRouter(&stubMatchService{}, nil, nil, nil), http.MethodGet, "/matches/m9", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListMatchesDateFilter(t *testing.T) {
	ms := &stubMatchService{}
	router := newTestRouter(ms, nil, nil, nil)

	rec, _ := do(t, router, http.MethodGet, "/matches?date=2024-02-30", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid date: status = %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodGet, "/matches?date=2024-03-02&team_id=t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if ms.lastFilter.Date == nil || !ms.lastFilter.Date.Equal(want) || ms.lastFilter.TeamID != "t1" {
		t.Errorf("filter = %+v", ms.lastFilter)
	}
}

func TestGetTeamStats(t *testing.T) {
	rec, env := do(t, newTestRouter(nil, nil, &stubStatsService{}, nil), http.MethodGet, "/stats/teams/t1?season=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats models.TeamStats
	if err := json.Unmarshal(env["stats"], &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TeamID != "t1" || stats.Season != "2024" || stats.TotalWins != 3 {
		t.Errorf("stats = %+v", stats)
	}

	ss := &stubStatsService{err: fmt.Errorf("%w: %q", services.ErrInvalidSeason, "twenty")}
	rec, _ = do(t, newTestRouter(nil, nil, ss, nil), http.MethodGet, "/stats/teams/t1?season=twenty", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid season: status = %d", rec.Code)
	}
}

func TestPutMatch(t *testing.T) {
	is := &stubIngestService{}
	router := newTestRouter(nil, is, nil, nil)

	rec, env := do(t, router, http.MethodPut, "/ingest/matches/m1", `{"id":"m2","home_team_id":"a","away_team_id":"b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("id mismatch: status = %d", rec.Code)
	}
	if msg := errorMessage(t, env); !strings.Contains(msg, "does not match") {
		t.Errorf("error = %q", msg)
	}

	rec, _ = do(t, router, http.MethodPut, "/ingest/matches/m1", `{"home_team_id":"a","bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodPut, "/ingest/matches/m1", `{"home_team_id":"a","away_team_id":"b","completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if is.gotMatch == nil || is.gotMatch.ID != "m1" || !is.gotMatch.Completed {
		t.Errorf("upserted match = %+v", is.gotMatch)
	}

	is.matchErr = fmt.Errorf("%w: home team x", services.ErrMatchTeamInvalid)
	rec, _ = do(t, router, http.MethodPut, "/ingest/matches/m1", `{"home_team_id":"x","away_team_id":"b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown team: status = %d", rec.Code)
	}
}

func TestPutLineupSlotConflict(t *testing.T) {
	is := &stubIngestService{lineupErr: fmt.Errorf("%w: SINGLES 1", services.ErrLineupSlotConflict)}
	rec, _ := do(t, newTestRouter(nil, is, nil, nil), http.MethodPut, "/ingest/matches/m1/lineup",
		`{"lineup":[{"match_type":"SINGLES","position":1},{"match_type":"SINGLES","position":1}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSnapshots(t *testing.T) {
	rec, _ := do(t, newTestRouter(nil, nil, nil, &stubSnapshotService{err: services.ErrStorageNotConfigured}),
		http.MethodPost, "/seasons/2024/snapshots", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured: status = %d", rec.Code)
	}

	router := newTestRouter(nil, nil, nil, &stubSnapshotService{})
	rec, env := do(t, router, http.MethodPost, "/seasons/2024/snapshots?conference=SEC", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: status = %d", rec.Code)
	}
	var results []storage.UploadResult
	if err := json.Unmarshal(env["snapshots"], &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != services.SnapshotKey("2024", "SEC") {
		t.Errorf("results = %+v", results)
	}

	rec, _ = do(t, router, http.MethodDelete, "/seasons/2024/snapshots/SEC", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	c := cache.New[string, int]("match_scores", cache.Options{})
	c.Set("a", 1)
	if _, err := c.GetOrCompute(context.Background(), "a", func(ctx context.Context) (int, error) {
		return 0, errors.New("must not be called")
	}); err != nil {
		t.Fatal(err)
	}

	rec, env := do(t, http.HandlerFunc(NewHealthHandler(stubPinger{}, c).Health), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats []cache.Stats
	if err := json.Unmarshal(env["caches"], &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Name != "match_scores" || stats[0].Size != 1 || stats[0].Hits != 1 {
		t.Errorf("caches = %+v", stats)
	}

	rec, _ = do(t, http.HandlerFunc(NewHealthHandler(stubPinger{err: errors.New("down")}).Health), http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("db down: status = %d", rec.Code)
	}
}

func TestGetMatchScoresBatch(t *testing.T) {
	ms := &stubMatchService{}
	router := newTestRouter(ms, nil, nil, nil)

	rec, env := do(t, router, http.MethodPost, "/batch/match-scores", `{"match_ids":["m1","m9"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var scores map[string]models.MatchScore
	if err := json.Unmarshal(env["scores"], &scores); err != nil {
		t.Fatal(err)
	}
	var failed map[string]string
	if err := json.Unmarshal(env["errors"], &failed); err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || !scores["m1"].HomeTeamWon || failed["m9"] != "match not found" {
		t.Errorf("scores = %+v, errors = %v", scores, failed)
	}

	ids := make([]string, services.MaxBatchScores+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("%q", fmt.Sprintf("m%d", i))
	}
	rec, _ = do(t, router, http.MethodPost, "/batch/match-scores", `{"match_ids":[`+strings.Join(ids, ",")+`]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("too many ids: status = %d", rec.Code)
	}

	rec, _ = do(t, router, http.MethodPost, "/batch/match-scores", `["m1"]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bare array: status = %d", rec.Code)
	}
}

func TestGetPlayerStats(t *testing.T) {
	rec, env := do(t, newTestRouter(nil, nil, &stubStatsService{}, nil), http.MethodGet, "/stats/players/P-7?season=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats models.PlayerStats
	if err := json.Unmarshal(env["stats"], &stats); err != nil {
		t.Fatal(err)
	}
	if stats.PlayerID != "P-7" || stats.Season != "2024" || stats.SinglesWins != 2 {
		t.Errorf("stats = %+v", stats)
	}

	ss := &stubStatsService{err: fmt.Errorf("%w: %q", services.ErrInvalidSeason, "last")}
	rec, _ = do(t, newTestRouter(nil, nil, ss, nil), http.MethodGet, "/stats/players/P-7?season=last", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid season: status = %d", rec.Code)
	}
}

func TestClearCache(t *testing.T) {
	scores := cache.New[string, int]("match_scores", cache.Options{})
	players := cache.New[string, int]("player_stats", cache.Options{})
	scores.Set("m1", 1)
	players.Set("P-7", 2)

	h := NewHealthHandler(stubPinger{}, scores, players)
	rec, env := do(t, http.HandlerFunc(h.ClearCache), http.MethodDelete, "/health/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var msg string
	if err := json.Unmarshal(env["message"], &msg); err != nil || msg != "cache cleared" {
		t.Errorf("message = %q %v", msg, err)
	}
	if scores.Len() != 0 || players.Len() != 0 {
		t.Errorf("caches not cleared: %d %d", scores.Len(), players.Len())
	}
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "body must not be empty"},
		{"truncated", `{"name":`, "body contains badly-formed JSON"},
		{"syntax", `{"name" "x"}`, "body contains badly-formed JSON at offset"},
		{"wrong field type", `{"count":"three"}`, `field "count" must be a JSON number`},
		{"wrong list type", `{"tags":"a"}`, `field "tags" must be a JSON array`},
		{"unknown field", `{"name":"x","colour":"red"}`, `body contains unknown field "colour"`},
		{"two values", `{"name":"x"}{"name":"y"}`, "body must contain a single JSON value"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, fmt.Sprintf("body must not be larger than %d bytes", maxBodyBytes)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","count":3,"tags":["a"]}`+"\n"))
	var dst payload
	if err := readJSON(httptest.NewRecorder(), req, &dst); err != nil {
		t.Fatal(err)
	}
	if dst.Name != "x" || dst.Count != 3 || len(dst.Tags) != 1 {
		t.Errorf("decoded = %+v", dst)
	}
}
