package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tennis-standings/db"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/scoring"
)

// TxRunner runs fn in a single database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	conn *sql.DB
}

func NewSQLTxRunner(conn *sql.DB) TxRunner {
	return &sqlTxRunner{conn: conn}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return db.RunInTx(ctx, r.conn, func(tx *sql.Tx) error { return fn(tx) })
}

// ChangeNotifier is told about every write that changes a result.
type ChangeNotifier interface {
	NotifyMatchChanged(matchID, homeTeamID, awayTeamID, season string)
}

// seasonLookupTimeout bounds the season lookup done after a commit.
const seasonLookupTimeout = 5 * time.Second

// IngestService is the write path used by the results collector. Every write
// invalidates the cached score of the match, the season stats of both teams
// and the season records of the players in its lineup after the transaction
// commits.
type IngestService interface {
	UpsertTeam(ctx context.Context, team *models.Team) error
	UpsertMatch(ctx context.Context, match *models.Match) (*models.Match, error)
	// ReplaceLineup swaps the full lineup of a match and returns it resolved.
	ReplaceLineup(ctx context.Context, matchID string, entries []models.LineupEntry) ([]models.LineupEntry, error)
}

type ingestService struct {
	tx         TxRunner
	teamRepo   repositories.TeamRepository
	matchRepo  repositories.MatchRepository
	lineupRepo repositories.LineupRepository
	schemes    SchemeProvider
	seasons    SeasonService
	scores     *ScoreCache
	stats      *StatsCache
	players    *PlayerStatsCache
	notifier   ChangeNotifier
	logger     *slog.Logger
}

func NewIngestService(
	tx TxRunner,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	lineupRepo repositories.LineupRepository,
	schemes SchemeProvider,
	seasons SeasonService,
	scores *ScoreCache,
	stats *StatsCache,
	players *PlayerStatsCache,
	notifier ChangeNotifier,
	logger *slog.Logger,
) IngestService {
	return &ingestService{
		tx:         tx,
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		lineupRepo: lineupRepo,
		schemes:    schemes,
		seasons:    seasons,
		scores:     scores,
		stats:      stats,
		players:    players,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *ingestService) UpsertTeam(ctx context.Context, team *models.Team) error {
	team.ID = strings.TrimSpace(team.ID)
	team.Name = strings.TrimSpace(team.Name)
	if team.ID == "" || team.Name == "" {
		return fmt.Errorf("%w: team id and name are required", ErrValidationFailed)
	}

	prev, err := s.teamRepo.GetByID(ctx, team.ID)
	if err != nil && !errors.Is(err, repositories.ErrTeamNotFound) {
		return fmt.Errorf("failed to load team %s: %w", team.ID, err)
	}
	if err := s.teamRepo.Upsert(ctx, nil, team); err != nil {
		return err
	}

	// Division picks the scoring scheme of every home match of the team.
	if prev != nil && !strings.EqualFold(prev.Division, team.Division) {
		s.scores.Clear()
		s.stats.Clear()
		s.players.Clear()
		s.logger.Info("team division changed, derived results cleared",
			slog.String("team_id", team.ID),
			slog.String("from", prev.Division),
			slog.String("to", team.Division),
		)
	}
	return nil
}

func (s *ingestService) UpsertMatch(ctx context.Context, match *models.Match) (*models.Match, error) {
	if err := validateMatch(match); err != nil {
		return nil, err
	}

	var (
		prev, current *models.Match
		lineup        []models.LineupEntry
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		prev, err = s.matchRepo.GetByID(ctx, exec, match.ID)
		if err != nil && !errors.Is(err, repositories.ErrMatchNotFound) {
			return err
		}
		if err := s.matchRepo.Upsert(ctx, exec, match); err != nil {
			if errors.Is(err, repositories.ErrMatchTeamInvalid) {
				return fmt.Errorf("%w: %s vs %s", ErrMatchTeamInvalid, match.HomeTeamID, match.AwayTeamID)
			}
			return err
		}
		current, err = s.matchRepo.GetByID(ctx, exec, match.ID)
		if err != nil {
			return err
		}
		lineup, err = s.lineupRepo.ListByMatch(ctx, exec, match.ID)
		if err != nil {
			return err
		}
		return s.refreshSlotFlags(ctx, exec, current, lineup)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest match %s: %w", match.ID, err)
	}

	s.invalidate(ctx, current, prev, lineup)
	return current, nil
}

// refreshSlotFlags re-resolves a stored lineup when the scheme that applies
// to the match may have changed.
func (s *ingestService) refreshSlotFlags(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, lineup []models.LineupEntry) error {
	if len(lineup) == 0 {
		return nil
	}
	stored := make(map[string]models.LineupEntry, len(lineup))
	for _, e := range lineup {
		stored[e.ID] = e
	}
	resolved, _ := scoring.ResolveLineup(lineup, s.schemes.SchemeFor(match.Division))
	for _, e := range resolved {
		if old := stored[e.ID]; old.Side1Won != e.Side1Won || old.Side2Won != e.Side2Won {
			return s.lineupRepo.ReplaceForMatch(ctx, exec, match.ID, resolved)
		}
	}
	return nil
}

func (s *ingestService) ReplaceLineup(ctx context.Context, matchID string, entries []models.LineupEntry) ([]models.LineupEntry, error) {
	entries, err := normalizeLineup(matchID, entries)
	if err != nil {
		return nil, err
	}

	var (
		match    *models.Match
		previous []models.LineupEntry
		resolved []models.LineupEntry
	)
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return handleMatchRepoError(err, matchID)
		}
		// players dropped from the lineup lose the slot too
		previous, err = s.lineupRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}

		var slotErrs []*scoring.SlotError
		resolved, slotErrs = scoring.ResolveLineup(entries, s.schemes.SchemeFor(match.Division))
		for _, se := range slotErrs {
			s.logger.Warn("ingested slot score is malformed, stored as unfinished",
				slog.String("match_id", matchID),
				slog.String("entry_id", se.EntryID),
				slog.Any("error", se.Err),
			)
		}

		if err := s.lineupRepo.ReplaceForMatch(ctx, exec, matchID, resolved); err != nil {
			switch {
			case errors.Is(err, repositories.ErrLineupSlotConflict):
				return fmt.Errorf("%w: %v", ErrLineupSlotConflict, err)
			case errors.Is(err, repositories.ErrLineupMatchInvalid):
				return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest lineup of match %s: %w", matchID, err)
	}

	s.invalidate(ctx, match, nil, append(previous, resolved...))
	return resolved, nil
}

// invalidate drops every derived value the write can affect and notifies
// subscribers. prev is the row before the write and may be nil; lineup holds
// every slot whose players may have a changed record.
func (s *ingestService) invalidate(ctx context.Context, current, prev *models.Match, lineup []models.LineupEntry) {
	s.scores.Invalidate(current.ID)

	seasons, err := s.seasonsOf(ctx, current, prev)
	if err != nil {
		// Without the stored windows the affected keys are unknown.
		s.stats.Clear()
		s.players.Clear()
		s.logger.Warn("season lookup failed, all stats cleared",
			slog.String("match_id", current.ID),
			slog.Any("error", err),
		)
	} else {
		var (
			teamKeys   []StatsKey
			playerKeys []PlayerStatsKey
			seenTeam   = make(map[StatsKey]struct{})
			seenPlayer = make(map[PlayerStatsKey]struct{})
		)
		for _, season := range seasons {
			for _, m := range []*models.Match{current, prev} {
				if m == nil {
					continue
				}
				for _, teamID := range []string{m.HomeTeamID, m.AwayTeamID} {
					key := StatsKey{TeamID: teamID, Season: season}
					if _, ok := seenTeam[key]; !ok {
						seenTeam[key] = struct{}{}
						teamKeys = append(teamKeys, key)
					}
				}
			}
			for _, e := range lineup {
				for _, playerID := range e.PlayerIDs() {
					key := PlayerKey(playerID, season)
					if _, ok := seenPlayer[key]; !ok {
						seenPlayer[key] = struct{}{}
						playerKeys = append(playerKeys, key)
					}
				}
			}
		}
		s.stats.Invalidate(teamKeys...)
		s.players.Invalidate(playerKeys...)
	}

	if s.notifier != nil {
		s.notifier.NotifyMatchChanged(current.ID, current.HomeTeamID, current.AwayTeamID, SeasonNameFor(current.StartDate))
		if prev != nil && (prev.HomeTeamID != current.HomeTeamID || prev.AwayTeamID != current.AwayTeamID) {
			s.notifier.NotifyMatchChanged(prev.ID, prev.HomeTeamID, prev.AwayTeamID, SeasonNameFor(prev.StartDate))
		}
	}
}

// seasonsOf lists every season name the matches may be aggregated under: the
// default season of the start date, any stored season whose window holds it,
// and the season label of the row. The lookup outlives a cancelled request
// since the write is already committed.
func (s *ingestService) seasonsOf(ctx context.Context, matches ...*models.Match) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seasonLookupTimeout)
	defer cancel()

	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if _, ok := seen[name]; name != "" && !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, m := range matches {
		if m == nil {
			continue
		}
		containing, err := s.seasons.NamesContaining(ctx, m.StartDate)
		if err != nil {
			return nil, err
		}
		for _, name := range containing {
			add(name)
		}
		add(m.Season)
	}
	return names, nil
}

func validateMatch(m *models.Match) error {
	m.ID = strings.TrimSpace(m.ID)
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: match id is required", ErrValidationFailed)
	case m.HomeTeamID == "" || m.AwayTeamID == "":
		return fmt.Errorf("%w: home_team_id and away_team_id are required", ErrValidationFailed)
	case m.HomeTeamID == m.AwayTeamID:
		return fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
	case m.StartDate.IsZero():
		return fmt.Errorf("%w: start_date is required", ErrValidationFailed)
	case m.HomeSide != 0 && m.HomeSide != 1 && m.HomeSide != 2:
		return fmt.Errorf("%w: home_side must be 1 or 2, got %d", ErrValidationFailed, m.HomeSide)
	}
	m.StartDate = m.StartDate.UTC()
	m.HomeSide = m.HomeSideNumber()
	return nil
}

// normalizeLineup validates the slots and fills in missing entry ids.
func normalizeLineup(matchID string, entries []models.LineupEntry) ([]models.LineupEntry, error) {
	out := make([]models.LineupEntry, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		e.MatchID = matchID
		e.MatchType = models.MatchType(strings.ToUpper(string(e.MatchType)))
		if !e.MatchType.Valid() {
			return nil, fmt.Errorf("%w: entry %d has unknown match_type %q", ErrValidationFailed, i, e.MatchType)
		}
		if e.Position < 1 {
			return nil, fmt.Errorf("%w: entry %d has position %d", ErrValidationFailed, i, e.Position)
		}
		if e.DecidedSide != nil && *e.DecidedSide != 1 && *e.DecidedSide != 2 {
			return nil, fmt.Errorf("%w: entry %d has decided_side %d", ErrValidationFailed, i, *e.DecidedSide)
		}
		slot := fmt.Sprintf("%s-%d", strings.ToLower(string(e.MatchType)), e.Position)
		if _, dup := seen[slot]; dup {
			return nil, fmt.Errorf("%w: %s", ErrLineupSlotConflict, slot)
		}
		seen[slot] = struct{}{}
		if strings.TrimSpace(e.ID) == "" {
			e.ID = matchID + "-" + slot
		}
		e.Score = strings.TrimSpace(e.Score)
		out[i] = e
	}
	return out, nil
}
