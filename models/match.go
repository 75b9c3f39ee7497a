package models

import "time"

type MatchType string

const (
	MatchTypeSingles MatchType = "SINGLES"
	MatchTypeDoubles MatchType = "DOUBLES"
)

func (t MatchType) Valid() bool {
	return t == MatchTypeSingles || t == MatchTypeDoubles
}

// Match is a dual match between two teams as written by the results collector.
type Match struct {
	ID                string    `json:"id" db:"id"`
	HomeTeamID        string    `json:"home_team_id" db:"home_team_id"`
	AwayTeamID        string    `json:"away_team_id" db:"away_team_id"`
	StartDate         time.Time `json:"start_date" db:"start_date"`
	Timezone          *string   `json:"timezone,omitempty" db:"timezone"`
	NoScheduledTime   bool      `json:"no_scheduled_time" db:"no_scheduled_time"`
	IsConferenceMatch bool      `json:"is_conference_match" db:"is_conference_match"`
	Gender            string    `json:"gender" db:"gender"`
	Season            string    `json:"season" db:"season"`
	Completed         bool      `json:"completed" db:"completed"`
	HomeSide          int       `json:"home_side" db:"home_side"` // lineup side (1 or 2) the home team plays on
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`

	// Joined from the home team on read, used to pick the scoring scheme.
	Division string `json:"division,omitempty" db:"-"`
}

// HomeSideNumber returns the lineup side of the home team, defaulting to side 1.
func (m *Match) HomeSideNumber() int {
	if m.HomeSide == 2 {
		return 2
	}
	return 1
}

// Involves reports whether the team plays in the match.
func (m *Match) Involves(teamID string) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}

// LineupEntry is one slot (a singles or doubles pairing) of a dual match.
type LineupEntry struct {
	ID             string    `json:"id" db:"id"`
	MatchID        string    `json:"match_id" db:"match_id"`
	MatchType      MatchType `json:"match_type" db:"match_type"`
	Position       int       `json:"position" db:"position"`
	Side1Player1ID *string   `json:"side1_player1_id,omitempty" db:"side1_player1_id"`
	Side1Player2ID *string   `json:"side1_player2_id,omitempty" db:"side1_player2_id"`
	Side2Player1ID *string   `json:"side2_player1_id,omitempty" db:"side2_player1_id"`
	Side2Player2ID *string   `json:"side2_player2_id,omitempty" db:"side2_player2_id"`
	Side1Name      *string   `json:"side1_name,omitempty" db:"side1_name"`
	Side2Name      *string   `json:"side2_name,omitempty" db:"side2_name"`
	Score          string    `json:"score" db:"score"`

	// Upstream decision for retired/defaulted slots; takes precedence over the score.
	DecidedSide    *int    `json:"decided_side,omitempty" db:"decided_side"`
	DecisionReason *string `json:"decision_reason,omitempty" db:"decision_reason"`

	// Derived by the slot resolver. Both false means unfinished (UF).
	Side1Won bool `json:"side1_won" db:"side1_won"`
	Side2Won bool `json:"side2_won" db:"side2_won"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Unfinished reports the UF state: no side has won the slot.
func (e *LineupEntry) Unfinished() bool {
	return !e.Side1Won && !e.Side2Won
}

// MatchScore is the derived team score of a match. Never stored as mutable state.
//
// Under a scheme with cap_at_clinch the scores are clinch-stage totals: the
// winner is reported at the clinch threshold and, when a played-out loser also
// passed it, the loser at threshold-1. Such a loser total is a display value,
// not a count of slots won.
type MatchScore struct {
	MatchID         string `json:"match_id"`
	HomeTeamScore   int    `json:"home_team_score"`
	AwayTeamScore   int    `json:"away_team_score"`
	HomeTeamWon     bool   `json:"home_team_won"`
	AwayTeamWon     bool   `json:"away_team_won"`
	Tie             bool   `json:"tie"`
	Clinched        bool   `json:"clinched"`
	ResolvedSlots   int    `json:"resolved_slots"`
	UnresolvedSlots int    `json:"unresolved_slots"`
}
