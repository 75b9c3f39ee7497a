package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/tennis-standings/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchTeamInvalid = errors.New("match team does not exist")
)

// MatchFilter narrows ListMatches. Zero values disable a filter.
type MatchFilter struct {
	Date   *time.Time // calendar day in UTC
	TeamID string
}

type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	List(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	// ListByTeamInWindow returns the team's matches with from <= start_date < to.
	ListByTeamInWindow(ctx context.Context, teamID string, from, to time.Time) ([]*models.Match, error)
	Upsert(ctx context.Context, exec SQLExecutor, match *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchSelect = `
	SELECT m.id, m.home_team_id, m.away_team_id, m.start_date, m.timezone, m.no_scheduled_time,
	       m.is_conference_match, m.gender, m.season, m.completed, m.home_side, m.updated_at,
	       COALESCE(ht.division, '')
	FROM matches m
	LEFT JOIN teams ht ON ht.id = m.home_team_id`

func scanMatch(s rowScanner) (*models.Match, error) {
	var m models.Match
	err := s.Scan(
		&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.StartDate, &m.Timezone, &m.NoScheduledTime,
		&m.IsConferenceMatch, &m.Gender, &m.Season, &m.Completed, &m.HomeSide, &m.UpdatedAt,
		&m.Division,
	)
	if err != nil {
		return nil, err
	}
	m.StartDate = m.StartDate.UTC()
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	query := matchSelect + ` WHERE m.id = $1`

	match, err := scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	query := matchSelect + ` WHERE ($1::text = '' OR m.home_team_id = $1 OR m.away_team_id = $1)`
	args := []interface{}{filter.TeamID}
	if filter.Date != nil {
		day := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, time.UTC)
		query += ` AND m.start_date >= $2 AND m.start_date < $3`
		args = append(args, day, day.AddDate(0, 0, 1))
	}
	query += ` ORDER BY m.start_date, m.id`

	return r.queryMatches(ctx, query, args...)
}

func (r *postgresMatchRepository) ListByTeamInWindow(ctx context.Context, teamID string, from, to time.Time) ([]*models.Match, error) {
	query := matchSelect + `
		WHERE (m.home_team_id = $1 OR m.away_team_id = $1)
		  AND m.start_date >= $2 AND m.start_date < $3
		ORDER BY m.start_date, m.id`

	return r.queryMatches(ctx, query, teamID, from, to)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

// Upsert writes the match row. completed never goes back from true to false.
func (r *postgresMatchRepository) Upsert(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(id, home_team_id, away_team_id, start_date, timezone, no_scheduled_time,
			 is_conference_match, gender, season, completed, home_side, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			start_date = EXCLUDED.start_date,
			timezone = EXCLUDED.timezone,
			no_scheduled_time = EXCLUDED.no_scheduled_time,
			is_conference_match = EXCLUDED.is_conference_match,
			gender = EXCLUDED.gender,
			season = EXCLUDED.season,
			completed = matches.completed OR EXCLUDED.completed,
			home_side = EXCLUDED.home_side,
			updated_at = NOW()
		RETURNING completed, updated_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		match.ID, match.HomeTeamID, match.AwayTeamID, match.StartDate.UTC(), match.Timezone,
		match.NoScheduledTime, match.IsConferenceMatch, match.Gender, match.Season,
		match.Completed, match.HomeSideNumber(),
	).Scan(&match.Completed, &match.UpdatedAt)
	if err != nil {
		return mapMatchError(err)
	}
	return nil
}

func mapMatchError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
		switch pqErr.Constraint {
		case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return fmt.Errorf("failed to upsert match: %w", err)
}
