package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tennis-standings/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context, conference string) ([]*models.Team, error)
	Upsert(ctx context.Context, exec SQLExecutor, team *models.Team) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, name, abbreviation, conference, gender, division, region`

func scanTeam(s rowScanner) (*models.Team, error) {
	var t models.Team
	if err := s.Scan(&t.ID, &t.Name, &t.Abbreviation, &t.Conference, &t.Gender, &t.Division, &t.Region); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return team, nil
}

// List returns teams ordered by name. An empty conference returns every team.
func (r *postgresTeamRepository) List(ctx context.Context, conference string) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE ($1::text = '' OR conference = $1) ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, conference)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) Upsert(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (id, name, abbreviation, conference, gender, division, region)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			abbreviation = EXCLUDED.abbreviation,
			conference = EXCLUDED.conference,
			gender = EXCLUDED.gender,
			division = EXCLUDED.division,
			region = EXCLUDED.region`

	_, err := executor(r.db, exec).ExecContext(ctx, query,
		team.ID, team.Name, team.Abbreviation, team.Conference, team.Gender, team.Division, team.Region,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
	}
	return nil
}
