package standings

import (
	"sort"

	"github.com/Dosada05/tennis-standings/models"
)

// TableEntry is one row of a conference table.
type TableEntry struct {
	Team  models.Team      `json:"team"`
	Stats models.TeamStats `json:"stats"`
}

// SortTable orders a conference table: conference wins, fewest conference
// losses, overall wins, then team name for a stable order.
func SortTable(entries []TableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Stats, entries[j].Stats
		if a.ConferenceWins != b.ConferenceWins {
			return a.ConferenceWins > b.ConferenceWins
		}
		if a.ConferenceLosses != b.ConferenceLosses {
			return a.ConferenceLosses < b.ConferenceLosses
		}
		if a.TotalWins != b.TotalWins {
			return a.TotalWins > b.TotalWins
		}
		return entries[i].Team.Name < entries[j].Team.Name
	})
}
