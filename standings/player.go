package standings

import (
	"sort"

	"github.com/Dosada05/tennis-standings/models"
)

// AggregatePlayer folds a player's lineup slots into a season record. Slots
// must already be resolved. Only slots of completed matches inside the season
// window count; an unfinished slot of a completed match is Excluded. Like
// Aggregate, the result does not depend on the order of slots.
func AggregatePlayer(playerID string, season models.Season, slots []models.PlayerSlot) models.PlayerStats {
	stats := models.PlayerStats{PlayerID: playerID, Season: season.Name}

	ordered := make([]models.PlayerSlot, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if _, dup := seen[s.Entry.ID]; dup {
			continue
		}
		seen[s.Entry.ID] = struct{}{}
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Entry.ID < ordered[j].Entry.ID })

	for _, s := range ordered {
		if !s.Match.Completed || !season.Contains(s.Match.StartDate) {
			continue
		}
		side := s.Entry.SideOf(playerID)
		if side == 0 {
			continue
		}
		if s.Entry.Unfinished() {
			stats.Excluded++
			continue
		}

		won := (side == 1 && s.Entry.Side1Won) || (side == 2 && s.Entry.Side2Won)
		stats.TotalMatches++
		switch {
		case s.Entry.MatchType == models.MatchTypeDoubles && won:
			stats.DoublesWins++
		case s.Entry.MatchType == models.MatchTypeDoubles:
			stats.DoublesLosses++
		case won:
			stats.SinglesWins++
		default:
			stats.SinglesLosses++
		}
	}
	stats.TotalWins = stats.SinglesWins + stats.DoublesWins
	stats.TotalLosses = stats.SinglesLosses + stats.DoublesLosses
	return stats
}
