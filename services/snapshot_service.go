package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	"github.com/Dosada05/tennis-standings/standings"
	"github.com/Dosada05/tennis-standings/storage"
)

const snapshotStatsLimit = 4

// StandingsSnapshot is the published document for one conference.
type StandingsSnapshot struct {
	Season      string                 `json:"season"`
	Conference  string                 `json:"conference"`
	GeneratedAt time.Time              `json:"generated_at"`
	Teams       []standings.TableEntry `json:"teams"`
}

type SnapshotService interface {
	// Publish uploads one standings document per conference. An empty
	// conference publishes every conference.
	Publish(ctx context.Context, season, conference string) ([]*storage.UploadResult, error)
	Delete(ctx context.Context, season, conference string) error
}

type snapshotService struct {
	teamRepo repositories.TeamRepository
	stats    StatsService
	seasons  SeasonService
	store    storage.ObjectStore // nil when storage is not configured
	now      func() time.Time
	logger   *slog.Logger
}

func NewSnapshotService(
	teamRepo repositories.TeamRepository,
	stats StatsService,
	seasons SeasonService,
	store storage.ObjectStore,
	logger *slog.Logger,
) SnapshotService {
	return &snapshotService{
		teamRepo: teamRepo,
		stats:    stats,
		seasons:  seasons,
		store:    store,
		now:      time.Now,
		logger:   logger,
	}
}

func SnapshotKey(season, conference string) string {
	return fmt.Sprintf("standings/%s/%s.json", season, conference)
}

func (s *snapshotService) Publish(ctx context.Context, seasonName, conference string) ([]*storage.UploadResult, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	season, err := s.seasons.Resolve(ctx, seasonName)
	if err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.List(ctx, conference)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	byConference := make(map[string][]*models.Team)
	for _, t := range teams {
		if t.Conference == "" {
			continue
		}
		byConference[t.Conference] = append(byConference[t.Conference], t)
	}
	if len(byConference) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrConferenceNotFound, conference)
	}

	conferences := make([]string, 0, len(byConference))
	for c := range byConference {
		conferences = append(conferences, c)
	}
	sort.Strings(conferences)

	results := make([]*storage.UploadResult, 0, len(conferences))
	for _, c := range conferences {
		snapshot, err := s.buildSnapshot(ctx, season, c, byConference[c])
		if err != nil {
			return nil, err
		}
		res, err := s.upload(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		s.logger.Info("standings snapshot published",
			slog.String("season", season.Name),
			slog.String("conference", c),
			slog.String("location", res.Location),
		)
		results = append(results, res)
	}
	return results, nil
}

func (s *snapshotService) buildSnapshot(ctx context.Context, season models.Season, conference string, teams []*models.Team) (*StandingsSnapshot, error) {
	var mu sync.Mutex
	entries := make([]standings.TableEntry, 0, len(teams))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotStatsLimit)
	for _, team := range teams {
		g.Go(func() error {
			stats, err := s.stats.GetTeamStats(gCtx, team.ID, season.Name)
			if err != nil {
				return fmt.Errorf("failed to compute stats of team %s: %w", team.ID, err)
			}
			mu.Lock()
			entries = append(entries, standings.TableEntry{Team: *team, Stats: *stats})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	standings.SortTable(entries)
	return &StandingsSnapshot{
		Season:      season.Name,
		Conference:  conference,
		GeneratedAt: s.now().UTC(),
		Teams:       entries,
	}, nil
}

func (s *snapshotService) upload(ctx context.Context, snapshot *StandingsSnapshot) (*storage.UploadResult, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := SnapshotKey(snapshot.Season, snapshot.Conference)
	return s.store.Upload(ctx, key, "application/json", bytes.NewReader(body))
}

func (s *snapshotService) Delete(ctx context.Context, seasonName, conference string) error {
	if s.store == nil {
		return ErrStorageNotConfigured
	}
	if conference == "" {
		return fmt.Errorf("%w: conference is required", ErrValidationFailed)
	}
	season, err := s.seasons.Resolve(ctx, seasonName)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, SnapshotKey(season.Name, conference))
}
