package standings

import (
	"sort"
	"time"

	"github.com/Dosada05/tennis-standings/models"
)

// ScoredMatch pairs a match with its computed score. Score is nil when the
// score could not be derived; Err then carries the reason.
type ScoredMatch struct {
	Match *models.Match
	Score *models.MatchScore
	Err   error
}

// Aggregate folds a team's matches into its season record. Only completed
// matches inside the season window with a valid score are counted.
//
// Excluded counts the in-window matches that should have a result but do not:
// completed matches without a usable score, and matches that started at or
// before asOf and are still not completed. Matches scheduled after asOf are
// simply not played yet. The result depends only on the set of matches and
// asOf, not on the order of matches.
func Aggregate(teamID string, season models.Season, matches []ScoredMatch, asOf time.Time) models.TeamStats {
	stats := models.TeamStats{TeamID: teamID, Season: season.Name}

	ordered := make([]ScoredMatch, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, sm := range matches {
		if sm.Match == nil {
			continue
		}
		if _, dup := seen[sm.Match.ID]; dup {
			continue
		}
		seen[sm.Match.ID] = struct{}{}
		ordered = append(ordered, sm)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Match.ID < ordered[j].Match.ID
	})

	for _, sm := range ordered {
		m := sm.Match
		if !season.Contains(m.StartDate) {
			continue
		}
		if !m.Completed {
			if !m.StartDate.After(asOf) {
				stats.Excluded++
			}
			continue
		}
		if sm.Err != nil || sm.Score == nil || !validScore(sm.Score) {
			stats.Excluded++
			continue
		}

		var home bool
		switch teamID {
		case m.HomeTeamID:
			home = true
		case m.AwayTeamID:
			home = false
		default:
			stats.Excluded++
			continue
		}

		stats.TotalMatches++
		switch {
		case sm.Score.Tie:
			stats.TotalTies++
			if m.IsConferenceMatch {
				stats.ConferenceTies++
			}
			if home {
				stats.HomeTies++
			} else {
				stats.AwayTies++
			}
		case sm.Score.HomeTeamWon == home:
			stats.TotalWins++
			if m.IsConferenceMatch {
				stats.ConferenceWins++
			}
			if home {
				stats.HomeWins++
			} else {
				stats.AwayWins++
			}
		default:
			stats.TotalLosses++
			if m.IsConferenceMatch {
				stats.ConferenceLosses++
			}
			if home {
				stats.HomeLosses++
			} else {
				stats.AwayLosses++
			}
		}
	}
	return stats
}

// validScore requires exactly one outcome: a home win, an away win, or a tie.
func validScore(s *models.MatchScore) bool {
	outcomes := 0
	for _, b := range []bool{s.HomeTeamWon, s.AwayTeamWon, s.Tie} {
		if b {
			outcomes++
		}
	}
	return outcomes == 1
}
