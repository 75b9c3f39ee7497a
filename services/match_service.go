package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tennis-standings/cache"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/scoring"
)

// SchemeProvider picks the scoring scheme for a division.
type SchemeProvider interface {
	SchemeFor(division string) scoring.Scheme
}

// ScoreCache memoizes match scores by match id.
type ScoreCache = cache.Cache[string, *models.MatchScore]

// MaxBatchScores caps the number of match ids in one GetMatchScores call.
const MaxBatchScores = 50

// BatchScores holds the scores of a batch lookup. A match whose score is not
// available is listed in Errors with the reason instead.
type BatchScores struct {
	Scores map[string]*models.MatchScore `json:"scores"`
	Errors map[string]string             `json:"errors"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListMatches(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error)
	// GetMatchLineup returns the lineup ordered by match type and position,
	// with unfinished slots included.
	GetMatchLineup(ctx context.Context, matchID string) ([]models.LineupEntry, error)
	// GetMatchScore goes through the score cache. The match row is reloaded on
	// every miss so a score is never derived from a row read before an
	// invalidation.
	GetMatchScore(ctx context.Context, matchID string) (*models.MatchScore, error)
	// GetMatchScores looks up to MaxBatchScores scores through the same cache.
	GetMatchScores(ctx context.Context, matchIDs []string) (*BatchScores, error)
}

type matchService struct {
	matchRepo  repositories.MatchRepository
	lineupRepo repositories.LineupRepository
	schemes    SchemeProvider
	scores     *ScoreCache
	logger     *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	lineupRepo repositories.LineupRepository,
	schemes SchemeProvider,
	scores *ScoreCache,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		schemes:    schemes,
		scores:     scores,
		logger:     logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleMatchRepoError(err, matchID)
	}
	return match, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

func (s *matchService) GetMatchLineup(ctx context.Context, matchID string) ([]models.LineupEntry, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	lineup, err := s.lineupRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lineup for match %s: %w", matchID, err)
	}

	resolved, slotErrs := scoring.ResolveLineup(lineup, s.schemes.SchemeFor(match.Division))
	s.logSlotErrors(match.ID, slotErrs)
	return resolved, nil
}

func (s *matchService) GetMatchScore(ctx context.Context, matchID string) (*models.MatchScore, error) {
	return s.scores.GetOrCompute(ctx, matchID, func(ctx context.Context) (*models.MatchScore, error) {
		match, err := s.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return s.computeScore(ctx, match)
	})
}

func (s *matchService) GetMatchScores(ctx context.Context, matchIDs []string) (*BatchScores, error) {
	ids := make([]string, 0, len(matchIDs))
	seen := make(map[string]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: match ids must not be empty", ErrValidationFailed)
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	switch {
	case len(ids) == 0:
		return nil, fmt.Errorf("%w: at least one match id is required", ErrValidationFailed)
	case len(ids) > MaxBatchScores:
		return nil, fmt.Errorf("%w: at most %d matches per request, got %d", ErrValidationFailed, MaxBatchScores, len(ids))
	}

	var (
		mu     sync.Mutex
		result = &BatchScores{
			Scores: make(map[string]*models.MatchScore, len(ids)),
			Errors: make(map[string]string),
		}
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(scoreLoadLimit)
	for _, id := range ids {
		g.Go(func() error {
			score, err := s.GetMatchScore(gCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason, ok := scoreUnavailableReason(err)
				if !ok {
					return fmt.Errorf("failed to score match %s: %w", id, err)
				}
				result.Errors[id] = reason
				return nil
			}
			result.Scores[id] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// scoreUnavailableReason reports why a match has no score when the reason is
// a property of the match rather than a failure of the lookup.
func scoreUnavailableReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return "match not found", true
	case errors.Is(err, ErrMatchNotCompleted):
		return "match not completed", true
	case errors.Is(err, ErrIncompleteResultData):
		return "incomplete result data", true
	case errors.Is(err, ErrAmbiguousResult):
		return "ambiguous result", true
	}
	return "", false
}

// computeScore runs on a cache miss. Errors are never cached, so a match whose
// lineup is still arriving is re-resolved on the next read.
func (s *matchService) computeScore(ctx context.Context, match *models.Match) (*models.MatchScore, error) {
	if !match.Completed {
		return nil, fmt.Errorf("%w: match %s", ErrMatchNotCompleted, match.ID)
	}
	lineup, err := s.lineupRepo.ListByMatch(ctx, nil, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lineup for match %s: %w", match.ID, err)
	}

	res, err := scoring.ResolveMatch(match, lineup, s.schemes.SchemeFor(match.Division))
	if res != nil {
		s.logSlotErrors(match.ID, res.SlotErrors)
	}
	if err != nil {
		s.logger.Info("match score unavailable",
			slog.String("match_id", match.ID),
			slog.Any("error", err),
		)
		return nil, err
	}
	score := res.Score
	return &score, nil
}

func (s *matchService) logSlotErrors(matchID string, slotErrs []*scoring.SlotError) {
	for _, se := range slotErrs {
		s.logger.Warn("malformed slot score treated as unfinished",
			slog.String("match_id", matchID),
			slog.String("entry_id", se.EntryID),
			slog.String("match_type", string(se.MatchType)),
			slog.Int("position", se.Position),
			slog.Any("error", se.Err),
		)
	}
}

func handleMatchRepoError(err error, matchID string) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return fmt.Errorf("failed to load match %s: %w", matchID, err)
}
