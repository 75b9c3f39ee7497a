package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dosada05/tennis-standings/cache"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/scoring"
	"github.com/Dosada05/tennis-standings/storage"
)

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[string]*models.Team
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) List(ctx context.Context, conference string) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Team
	for _, t := range r.teams {
		if conference == "" || t.Conference == conference {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTeamRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *team
	r.teams[team.ID] = &cp
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
	teams   *fakeTeamRepo
}

func (r *fakeMatchRepo) withDivision(m *models.Match) *models.Match {
	cp := *m
	if t, err := r.teams.GetByID(context.Background(), m.HomeTeamID); err == nil {
		cp.Division = t.Division
	}
	return &cp
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return r.withDivision(m), nil
}

func (r *fakeMatchRepo) List(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if filter.TeamID != "" && !m.Involves(filter.TeamID) {
			continue
		}
		if filter.Date != nil {
			y1, m1, d1 := filter.Date.Date()
			y2, m2, d2 := m.StartDate.UTC().Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, r.withDivision(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListByTeamInWindow(ctx context.Context, teamID string, from, to time.Time) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.Involves(teamID) && !m.StartDate.Before(from) && m.StartDate.Before(to) {
			out = append(out, r.withDivision(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	for _, id := range []string{match.HomeTeamID, match.AwayTeamID} {
		if _, err := r.teams.GetByID(ctx, id); err != nil {
			return repositories.ErrMatchTeamInvalid
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *match
	if prev, ok := r.matches[match.ID]; ok && prev.Completed {
		cp.Completed = true
	}
	cp.UpdatedAt = time.Now()
	r.matches[match.ID] = &cp
	match.Completed = cp.Completed
	return nil
}

type fakeLineupRepo struct {
	mu        sync.Mutex
	lineups   map[string][]models.LineupEntry
	matches   *fakeMatchRepo
	listCalls int32
	gate      chan struct{} // when set, ListByMatch waits on it
}

func (r *fakeLineupRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string) ([]models.LineupEntry, error) {
	atomic.AddInt32(&r.listCalls, 1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.LineupEntry(nil), r.lineups[matchID]...)
	scoring.OrderLineup(out)
	return out, nil
}

func (r *fakeLineupRepo) ReplaceForMatch(ctx context.Context, exec repositories.SQLExecutor, matchID string, entries []models.LineupEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineups[matchID] = append([]models.LineupEntry(nil), entries...)
	return nil
}

func (r *fakeLineupRepo) ListByPlayerInWindow(ctx context.Context, playerID string, from, to time.Time) ([]models.PlayerSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PlayerSlot
	for matchID, lineup := range r.lineups {
		m, err := r.matches.GetByID(ctx, nil, matchID)
		if err != nil || m.StartDate.Before(from) || !m.StartDate.Before(to) {
			continue
		}
		for _, e := range lineup {
			if e.SideOf(playerID) != 0 {
				out = append(out, models.PlayerSlot{Match: *m, Entry: e})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.ID < out[j].Entry.ID })
	return out, nil
}

type fakeSeasonRepo struct {
	seasons map[string]*models.Season
	err     error // returned by ListContaining when set
}

func (r *fakeSeasonRepo) List(ctx context.Context) ([]*models.Season, error) {
	var out []*models.Season
	for _, s := range r.seasons {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSeasonRepo) GetByName(ctx context.Context, name string) (*models.Season, error) {
	s, ok := r.seasons[name]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSeasonRepo) ListContaining(ctx context.Context, at time.Time) ([]*models.Season, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Season
	for _, s := range r.seasons {
		if s.Contains(at) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type notification struct {
	MatchID, Home, Away, Season string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) NotifyMatchChanged(matchID, homeTeamID, awayTeamID, season string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{matchID, homeTeamID, awayTeamID, season})
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (s *fakeStore) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	return &storage.UploadResult{Key: key, Location: s.GetPublicURL(key)}, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type staticSchemes struct {
	scheme scoring.Scheme
}

func (s staticSchemes) SchemeFor(string) scoring.Scheme { return s.scheme }

// env wires the services over in-memory repositories.
type env struct {
	teams    *fakeTeamRepo
	matches  *fakeMatchRepo
	lineups  *fakeLineupRepo
	notifier *fakeNotifier
	store    *fakeStore

	scores  *ScoreCache
	stats   *StatsCache
	players *PlayerStatsCache

	seasonRepo *fakeSeasonRepo
	seasons    SeasonService
	match    MatchService
	team     TeamService
	stat     StatsService
	ingest   IngestService
	snapshot SnapshotService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv() *env {
	logger := discardLogger()
	teams := &fakeTeamRepo{teams: map[string]*models.Team{}}
	matches := &fakeMatchRepo{matches: map[string]*models.Match{}, teams: teams}
	e := &env{
		teams:      teams,
		matches:    matches,
		lineups:    &fakeLineupRepo{lineups: map[string][]models.LineupEntry{}, matches: matches},
		notifier:   &fakeNotifier{},
		store:      &fakeStore{objects: map[string][]byte{}},
		scores:     cache.New[string, *models.MatchScore]("match_scores", cache.Options{}),
		stats:      cache.New[StatsKey, *models.TeamStats]("team_stats", cache.Options{}),
		players:    cache.New[PlayerStatsKey, *models.PlayerStats]("player_stats", cache.Options{}),
		seasonRepo: &fakeSeasonRepo{seasons: map[string]*models.Season{}},
	}
	schemes := staticSchemes{scheme: scoring.NCAADualMatch()}
	now := func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }

	e.seasons = NewSeasonService(e.seasonRepo, now)
	e.match = NewMatchService(e.matches, e.lineups, schemes, e.scores, logger)
	e.team = NewTeamService(teams)
	e.stat = NewStatsService(teams, e.matches, e.lineups, e.match, schemes, e.seasons, e.stats, e.players, now, logger)
	e.ingest = NewIngestService(fakeTx{}, teams, e.matches, e.lineups, schemes, e.seasons, e.scores, e.stats, e.players, e.notifier, logger)
	e.snapshot = NewSnapshotService(teams, e.stat, e.seasons, e.store, logger)
	return e
}

func (e *env) addTeam(id, name, conference string) {
	e.teams.teams[id] = &models.Team{ID: id, Name: name, Conference: conference, Gender: "MALE", Division: "DIV1"}
}

func (e *env) addMatch(id, home, away string, day int, conference, completed bool, lineup ...models.LineupEntry) {
	e.matches.matches[id] = &models.Match{
		ID: id, HomeTeamID: home, AwayTeamID: away,
		StartDate:         time.Date(2025, 2, day, 18, 0, 0, 0, time.UTC),
		IsConferenceMatch: conference,
		Completed:         completed,
		Season:            "2024",
		HomeSide:          1,
	}
	for i := range lineup {
		lineup[i].MatchID = id
		if lineup[i].ID == "" {
			lineup[i].ID = id + "-" + string(lineup[i].MatchType) + "-" + string(rune('0'+lineup[i].Position))
		}
	}
	e.lineups.lineups[id] = lineup
}

func doubles(pos int, score string) models.LineupEntry {
	return models.LineupEntry{MatchType: models.MatchTypeDoubles, Position: pos, Score: score}
}

func singles(pos int, score string) models.LineupEntry {
	return models.LineupEntry{MatchType: models.MatchTypeSingles, Position: pos, Score: score}
}

// side1Clinch is a dual match side 1 wins 4-1 with two singles unfinished.
func side1Clinch() []models.LineupEntry {
	return []models.LineupEntry{
		doubles(1, "6-3"), doubles(2, "6-4"), doubles(3, "3-6"),
		singles(1, "6-4 6-3"), singles(2, "6-4 3-6 7-6(4)"), singles(3, "6-2 6-2"),
		singles(4, "4-6 2-6"), singles(5, ""), singles(6, "6-4 2-1"),
	}
}

// side2Clinch mirrors side1Clinch.
func side2Clinch() []models.LineupEntry {
	return []models.LineupEntry{
		doubles(1, "3-6"), doubles(2, "4-6"), doubles(3, "6-3"),
		singles(1, "4-6 3-6"), singles(2, "4-6 6-3 6-7(4)"), singles(3, "2-6 2-6"),
		singles(4, "6-4 6-2"), singles(5, ""), singles(6, "4-6 1-2"),
	}
}
