package models

import "strings"

// PlayerStats is a player's slot record for a season, rebuilt from the
// lineups of completed dual matches.
type PlayerStats struct {
	PlayerID string `json:"player_id"`
	Season   string `json:"season"`

	SinglesWins   int `json:"singles_wins"`
	SinglesLosses int `json:"singles_losses"`
	DoublesWins   int `json:"doubles_wins"`
	DoublesLosses int `json:"doubles_losses"`

	TotalWins    int `json:"total_wins"`
	TotalLosses  int `json:"total_losses"`
	TotalMatches int `json:"total_matches"` // decided slots counted in the record
	Excluded     int `json:"excluded"`      // slots of completed matches left unfinished
}

// PlayerSlot is a lineup entry together with the match it belongs to.
type PlayerSlot struct {
	Match Match
	Entry LineupEntry
}

// SideOf returns the lineup side (1 or 2) the player is listed on, or 0.
// Player ids compare case-insensitively.
func (e *LineupEntry) SideOf(playerID string) int {
	for side, ids := range [][2]*string{
		{e.Side1Player1ID, e.Side1Player2ID},
		{e.Side2Player1ID, e.Side2Player2ID},
	} {
		for _, id := range ids {
			if id != nil && *id != "" && strings.EqualFold(*id, playerID) {
				return side + 1
			}
		}
	}
	return 0
}

// PlayerIDs lists the player ids named in the entry.
func (e *LineupEntry) PlayerIDs() []string {
	var out []string
	for _, id := range []*string{e.Side1Player1ID, e.Side1Player2ID, e.Side2Player1ID, e.Side2Player2ID} {
		if id != nil && *id != "" {
			out = append(out, *id)
		}
	}
	return out
}
