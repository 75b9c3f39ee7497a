package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tennis-standings/cache"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/scoring"
	"github.com/Dosada05/tennis-standings/standings"
)

// scoreLoadLimit bounds concurrent match score loads per stats computation.
const scoreLoadLimit = 8

// StatsKey identifies a team's season record in the cache.
type StatsKey struct {
	TeamID string
	Season string
}

type StatsCache = cache.Cache[StatsKey, *models.TeamStats]

// PlayerStatsKey identifies a player's season record in the cache. PlayerID
// is upper-cased, see PlayerKey.
type PlayerStatsKey struct {
	PlayerID string
	Season   string
}

type PlayerStatsCache = cache.Cache[PlayerStatsKey, *models.PlayerStats]

// PlayerKey builds the cache key of a player's season record.
func PlayerKey(playerID, season string) PlayerStatsKey {
	return PlayerStatsKey{PlayerID: strings.ToUpper(strings.TrimSpace(playerID)), Season: season}
}

type StatsService interface {
	// GetTeamStats returns the team's record for the season; an empty season
	// means the current one.
	GetTeamStats(ctx context.Context, teamID, season string) (*models.TeamStats, error)
	// GetPlayerStats returns the player's singles and doubles record for the
	// season. A player without slots gets an empty record.
	GetPlayerStats(ctx context.Context, playerID, season string) (*models.PlayerStats, error)
}

type statsService struct {
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	lineupRepo   repositories.LineupRepository
	matchService MatchService
	schemes      SchemeProvider
	seasons      SeasonService
	stats        *StatsCache
	players      *PlayerStatsCache
	now          func() time.Time
	logger       *slog.Logger
}

func NewStatsService(
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	lineupRepo repositories.LineupRepository,
	matchService MatchService,
	schemes SchemeProvider,
	seasons SeasonService,
	stats *StatsCache,
	players *PlayerStatsCache,
	now func() time.Time,
	logger *slog.Logger,
) StatsService {
	if now == nil {
		now = time.Now
	}
	return &statsService{
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		lineupRepo:   lineupRepo,
		matchService: matchService,
		schemes:      schemes,
		seasons:      seasons,
		stats:        stats,
		players:      players,
		now:          now,
		logger:       logger,
	}
}

func (s *statsService) GetTeamStats(ctx context.Context, teamID, seasonName string) (*models.TeamStats, error) {
	season, err := s.seasons.Resolve(ctx, seasonName)
	if err != nil {
		return nil, err
	}
	key := StatsKey{TeamID: teamID, Season: season.Name}
	return s.stats.GetOrCompute(ctx, key, func(ctx context.Context) (*models.TeamStats, error) {
		return s.computeStats(ctx, teamID, season)
	})
}

// computeStats replays every match of the team in the season window.
func (s *statsService) computeStats(ctx context.Context, teamID string, season models.Season) (*models.TeamStats, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}

	matches, err := s.matchRepo.ListByTeamInWindow(ctx, teamID, season.Start, season.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of team %s: %w", teamID, err)
	}

	var (
		mu     sync.Mutex
		scored = make([]standings.ScoredMatch, 0, len(matches))
		// not completed yet: no score to load, Aggregate decides if they are excluded
		pending []standings.ScoredMatch
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(scoreLoadLimit)
	for _, m := range matches {
		if !m.Completed {
			pending = append(pending, standings.ScoredMatch{Match: m})
			continue
		}
		g.Go(func() error {
			score, err := s.matchService.GetMatchScore(gCtx, m.ID)
			if err != nil && !excludable(err) {
				return fmt.Errorf("failed to score match %s: %w", m.ID, err)
			}
			mu.Lock()
			scored = append(scored, standings.ScoredMatch{Match: m, Score: score, Err: err})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := standings.Aggregate(teamID, season, append(scored, pending...), s.now())
	if stats.Excluded > 0 {
		s.logger.Info("matches excluded from team stats",
			slog.String("team_id", teamID),
			slog.String("season", season.Name),
			slog.Int("excluded", stats.Excluded),
		)
	}
	return &stats, nil
}

func (s *statsService) GetPlayerStats(ctx context.Context, playerID, seasonName string) (*models.PlayerStats, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrValidationFailed)
	}
	season, err := s.seasons.Resolve(ctx, seasonName)
	if err != nil {
		return nil, err
	}
	// Every spelling of the id shares one record, reported upper-cased.
	key := PlayerKey(playerID, season.Name)
	return s.players.GetOrCompute(ctx, key, func(ctx context.Context) (*models.PlayerStats, error) {
		return s.computePlayerStats(ctx, key.PlayerID, season)
	})
}

// computePlayerStats re-resolves every slot of the player with the scheme of
// its match, so stored side flags never leak a stale scheme into the record.
func (s *statsService) computePlayerStats(ctx context.Context, playerID string, season models.Season) (*models.PlayerStats, error) {
	slots, err := s.lineupRepo.ListByPlayerInWindow(ctx, playerID, season.Start, season.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots of player %s: %w", playerID, err)
	}

	for i := range slots {
		slot := &slots[i]
		format := s.schemes.SchemeFor(slot.Match.Division).FormatFor(slot.Entry.MatchType)
		outcome, err := scoring.ResolveEntry(slot.Entry, format)
		if err != nil {
			s.logger.Warn("malformed slot score treated as unfinished",
				slog.String("match_id", slot.Match.ID),
				slog.String("entry_id", slot.Entry.ID),
				slog.Any("error", err),
			)
		}
		slot.Entry.Side1Won, slot.Entry.Side2Won = outcome.Side1Won(), outcome.Side2Won()
	}

	stats := standings.AggregatePlayer(playerID, season, slots)
	return &stats, nil
}

// excludable errors leave a completed match out of the record instead of
// failing the whole computation.
func excludable(err error) bool {
	return errors.Is(err, ErrIncompleteResultData) ||
		errors.Is(err, ErrAmbiguousResult) ||
		errors.Is(err, ErrMatchNotCompleted) ||
		errors.Is(err, ErrMatchNotFound)
}
