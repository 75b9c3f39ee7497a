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
	ErrLineupMatchInvalid = errors.New("lineup match does not exist")
	ErrLineupSlotConflict = errors.New("duplicate lineup slot")
)

type LineupRepository interface {
	// ListByMatch returns the lineup ordered by match type, then position.
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]models.LineupEntry, error)
	// ReplaceForMatch swaps the whole lineup of a match. Call inside a transaction.
	ReplaceForMatch(ctx context.Context, exec SQLExecutor, matchID string, entries []models.LineupEntry) error
	// ListByPlayerInWindow returns every slot the player is listed in, for
	// matches with from <= start_date < to. Player ids match case-insensitively.
	ListByPlayerInWindow(ctx context.Context, playerID string, from, to time.Time) ([]models.PlayerSlot, error)
}

type postgresLineupRepository struct {
	db *sql.DB
}

func NewPostgresLineupRepository(db *sql.DB) LineupRepository {
	return &postgresLineupRepository{db: db}
}

func (r *postgresLineupRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID string) ([]models.LineupEntry, error) {
	query := `SELECT ` + lineupColumns + `
		FROM match_lineups l
		WHERE l.match_id = $1
		ORDER BY l.match_type, l.position, l.id`

	rows, err := executor(r.db, exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineup for match %s: %w", matchID, err)
	}
	defer rows.Close()

	lineup := make([]models.LineupEntry, 0)
	for rows.Next() {
		var e models.LineupEntry
		var decided sql.NullInt64
		if err := rows.Scan(lineupDest(&e, &decided)...); err != nil {
			return nil, fmt.Errorf("failed to scan lineup row: %w", err)
		}
		setDecidedSide(&e, decided)
		lineup = append(lineup, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lineup rows: %w", err)
	}
	return lineup, nil
}

func (r *postgresLineupRepository) ListByPlayerInWindow(ctx context.Context, playerID string, from, to time.Time) ([]models.PlayerSlot, error) {
	query := `
		SELECT ` + lineupColumns + `,
		       m.id, m.home_team_id, m.away_team_id, m.start_date, m.is_conference_match,
		       m.season, m.completed, m.home_side, COALESCE(ht.division, '')
		FROM match_lineups l
		JOIN matches m ON m.id = l.match_id
		LEFT JOIN teams ht ON ht.id = m.home_team_id
		WHERE upper($1) IN (upper(l.side1_player1_id), upper(l.side1_player2_id),
		                    upper(l.side2_player1_id), upper(l.side2_player2_id))
		  AND m.start_date >= $2 AND m.start_date < $3
		ORDER BY m.start_date, m.id, l.match_type, l.position`

	rows, err := r.db.QueryContext(ctx, query, playerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots of player %s: %w", playerID, err)
	}
	defer rows.Close()

	slots := make([]models.PlayerSlot, 0)
	for rows.Next() {
		var s models.PlayerSlot
		var decided sql.NullInt64
		dest := append(lineupDest(&s.Entry, &decided),
			&s.Match.ID, &s.Match.HomeTeamID, &s.Match.AwayTeamID, &s.Match.StartDate, &s.Match.IsConferenceMatch,
			&s.Match.Season, &s.Match.Completed, &s.Match.HomeSide, &s.Match.Division,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan player slot row: %w", err)
		}
		setDecidedSide(&s.Entry, decided)
		s.Match.StartDate = s.Match.StartDate.UTC()
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player slot rows: %w", err)
	}
	return slots, nil
}

func (r *postgresLineupRepository) ReplaceForMatch(ctx context.Context, exec SQLExecutor, matchID string, entries []models.LineupEntry) error {
	ex := executor(r.db, exec)

	if _, err := ex.ExecContext(ctx, `DELETE FROM match_lineups WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to clear lineup for match %s: %w", matchID, err)
	}

	query := `
		INSERT INTO match_lineups
			(id, match_id, match_type, position,
			 side1_player1_id, side1_player2_id, side2_player1_id, side2_player2_id,
			 side1_name, side2_name, score, decided_side, decision_reason,
			 side1_won, side2_won, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())`

	for _, e := range entries {
		_, err := ex.ExecContext(ctx, query,
			e.ID, matchID, e.MatchType, e.Position,
			e.Side1Player1ID, e.Side1Player2ID, e.Side2Player1ID, e.Side2Player2ID,
			e.Side1Name, e.Side2Name, e.Score, e.DecidedSide, e.DecisionReason,
			e.Side1Won, e.Side2Won,
		)
		if err != nil {
			return mapLineupError(err, e)
		}
	}
	return nil
}

const lineupColumns = `
	l.id, l.match_id, l.match_type, l.position,
	l.side1_player1_id, l.side1_player2_id, l.side2_player1_id, l.side2_player2_id,
	l.side1_name, l.side2_name, l.score, l.decided_side, l.decision_reason,
	l.side1_won, l.side2_won, l.updated_at`

func lineupDest(e *models.LineupEntry, decided *sql.NullInt64) []interface{} {
	return []interface{}{
		&e.ID, &e.MatchID, &e.MatchType, &e.Position,
		&e.Side1Player1ID, &e.Side1Player2ID, &e.Side2Player1ID, &e.Side2Player2ID,
		&e.Side1Name, &e.Side2Name, &e.Score, decided, &e.DecisionReason,
		&e.Side1Won, &e.Side2Won, &e.UpdatedAt,
	}
}

func setDecidedSide(e *models.LineupEntry, decided sql.NullInt64) {
	if decided.Valid {
		side := int(decided.Int64)
		e.DecidedSide = &side
	}
}

func mapLineupError(err error, e models.LineupEntry) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23503" && pqErr.Constraint == "match_lineups_match_id_fkey":
			return ErrLineupMatchInvalid
		case pqErr.Code == "23505": // unique_violation
			return fmt.Errorf("%w: %s #%d", ErrLineupSlotConflict, e.MatchType, e.Position)
		}
	}
	return fmt.Errorf("failed to insert lineup entry %s: %w", e.ID, err)
}
