package models

// TeamStats is a team's win/loss record for a season, rebuilt by replaying
// completed matches. Never patched field by field.
type TeamStats struct {
	TeamID string `json:"team_id"`
	Season string `json:"season"`

	TotalWins   int `json:"total_wins"`
	TotalLosses int `json:"total_losses"`
	TotalTies   int `json:"total_ties"`

	ConferenceWins   int `json:"conference_wins"`
	ConferenceLosses int `json:"conference_losses"`
	ConferenceTies   int `json:"conference_ties"`

	HomeWins   int `json:"home_wins"`
	HomeLosses int `json:"home_losses"`
	HomeTies   int `json:"home_ties"`

	AwayWins   int `json:"away_wins"`
	AwayLosses int `json:"away_losses"`
	AwayTies   int `json:"away_ties"`

	TotalMatches int `json:"total_matches"` // matches counted in the record
	Excluded     int `json:"excluded"`      // completed matches without a usable score
}
