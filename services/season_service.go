package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
)

// Сезон начинается 1 августа и длится до 31 июля следующего года.
const seasonStartMonth = time.August

type SeasonService interface {
	ListSeasons(ctx context.Context) ([]*models.Season, error)
	// Resolve turns a season name into its window. An empty name means the
	// current season.
	Resolve(ctx context.Context, name string) (models.Season, error)
	// NamesContaining lists every season name whose window holds at: the
	// default season plus any stored season covering it.
	NamesContaining(ctx context.Context, at time.Time) ([]string, error)
}

type seasonService struct {
	seasonRepo repositories.SeasonRepository
	now        func() time.Time
}

func NewSeasonService(seasonRepo repositories.SeasonRepository, now func() time.Time) SeasonService {
	if now == nil {
		now = time.Now
	}
	return &seasonService{seasonRepo: seasonRepo, now: now}
}

func (s *seasonService) ListSeasons(ctx context.Context) ([]*models.Season, error) {
	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return seasons, nil
}

func (s *seasonService) Resolve(ctx context.Context, name string) (models.Season, error) {
	if name == "" {
		name = SeasonNameFor(s.now())
	}
	derived, err := DerivedSeason(name)
	if err != nil {
		return models.Season{}, err
	}

	stored, err := s.seasonRepo.GetByName(ctx, name)
	switch {
	case err == nil:
		stored.Start, stored.End = stored.Start.UTC(), stored.End.UTC()
		return *stored, nil
	case errors.Is(err, repositories.ErrSeasonNotFound):
		return derived, nil
	default:
		return models.Season{}, fmt.Errorf("failed to load season %s: %w", name, err)
	}
}

func (s *seasonService) NamesContaining(ctx context.Context, at time.Time) ([]string, error) {
	names := []string{SeasonNameFor(at)}
	stored, err := s.seasonRepo.ListContaining(ctx, at.UTC())
	if err != nil {
		return names, fmt.Errorf("failed to look up seasons at %s: %w", at.UTC().Format(time.RFC3339), err)
	}
	for _, season := range stored {
		if season.Name != names[0] {
			names = append(names, season.Name)
		}
	}
	return names, nil
}

// DerivedSeason builds the default window [Aug 1 year, Aug 1 year+1) in UTC.
func DerivedSeason(name string) (models.Season, error) {
	year, err := strconv.Atoi(name)
	if err != nil || year < 1900 || year > 9999 {
		return models.Season{}, fmt.Errorf("%w: %q is not a season year", ErrInvalidSeason, name)
	}
	start := time.Date(year, seasonStartMonth, 1, 0, 0, 0, 0, time.UTC)
	return models.Season{
		ID:    name,
		Name:  name,
		Start: start,
		End:   start.AddDate(1, 0, 0),
	}, nil
}

// SeasonNameFor returns the name of the default season containing t.
func SeasonNameFor(t time.Time) string {
	t = t.UTC()
	year := t.Year()
	if t.Month() < seasonStartMonth {
		year--
	}
	return strconv.Itoa(year)
}
