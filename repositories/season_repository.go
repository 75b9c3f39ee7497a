package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tennis-standings/models"
)

var ErrSeasonNotFound = errors.New("season not found")

type SeasonRepository interface {
	List(ctx context.Context) ([]*models.Season, error)
	GetByName(ctx context.Context, name string) (*models.Season, error)
	// ListContaining returns the stored seasons whose window holds at.
	ListContaining(ctx context.Context, at time.Time) ([]*models.Season, error)
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) List(ctx context.Context) ([]*models.Season, error) {
	query := `SELECT id, name, status, start_date, end_date FROM seasons ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return scanSeasons(rows)
}

func (r *postgresSeasonRepository) ListContaining(ctx context.Context, at time.Time) ([]*models.Season, error) {
	query := `
		SELECT id, name, status, start_date, end_date
		FROM seasons
		WHERE start_date <= $1 AND end_date > $1
		ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons containing %s: %w", at.Format(time.RFC3339), err)
	}
	return scanSeasons(rows)
}

func scanSeasons(rows *sql.Rows) ([]*models.Season, error) {
	defer rows.Close()

	seasons := make([]*models.Season, 0)
	for rows.Next() {
		var s models.Season
		if err := rows.Scan(&s.ID, &s.Name, &s.Status, &s.Start, &s.End); err != nil {
			return nil, fmt.Errorf("failed to scan season row: %w", err)
		}
		seasons = append(seasons, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season rows: %w", err)
	}
	return seasons, nil
}

func (r *postgresSeasonRepository) GetByName(ctx context.Context, name string) (*models.Season, error) {
	query := `SELECT id, name, status, start_date, end_date FROM seasons WHERE name = $1`

	var s models.Season
	err := r.db.QueryRowContext(ctx, query, name).Scan(&s.ID, &s.Name, &s.Status, &s.Start, &s.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season %s: %w", name, err)
	}
	return &s, nil
}
