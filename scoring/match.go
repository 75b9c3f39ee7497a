package scoring

import (
	"fmt"
	"sort"

	"github.com/Dosada05/tennis-standings/models"
)

// SlotError ties a malformed slot score to its lineup entry.
type SlotError struct {
	EntryID   string
	MatchType models.MatchType
	Position  int
	Err       error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s #%d (%s): %v", e.MatchType, e.Position, e.EntryID, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// Resolution is the derived view of a match: the lineup with won flags set and
// the team score.
type Resolution struct {
	Lineup     []models.LineupEntry
	Score      models.MatchScore
	Decided    bool
	SlotErrors []*SlotError
}

// OrderLineup sorts entries by match type, then position (doubles before singles).
func OrderLineup(lineup []models.LineupEntry) {
	sort.SliceStable(lineup, func(i, j int) bool {
		if lineup[i].MatchType != lineup[j].MatchType {
			return lineup[i].MatchType < lineup[j].MatchType
		}
		return lineup[i].Position < lineup[j].Position
	})
}

// ResolveLineup returns an ordered copy of the lineup with side1_won/side2_won
// derived from the scores. Malformed slots stay unfinished and are reported.
func ResolveLineup(lineup []models.LineupEntry, scheme Scheme) ([]models.LineupEntry, []*SlotError) {
	resolved := make([]models.LineupEntry, len(lineup))
	copy(resolved, lineup)
	OrderLineup(resolved)

	var slotErrs []*SlotError
	for i := range resolved {
		entry := &resolved[i]
		outcome, err := ResolveEntry(*entry, scheme.FormatFor(entry.MatchType))
		if err != nil {
			slotErrs = append(slotErrs, &SlotError{
				EntryID:   entry.ID,
				MatchType: entry.MatchType,
				Position:  entry.Position,
				Err:       err,
			})
		}
		entry.Side1Won = outcome.Side1Won()
		entry.Side2Won = outcome.Side2Won()
	}
	return resolved, slotErrs
}

// ResolveMatch derives the team score of a match from its lineup.
//
// A side that reaches the clinch threshold decides the match whether or not
// the remaining slots were played. For a match flagged completed upstream that
// nobody clinched, ErrIncompleteResultData is returned together with the
// partial resolution so the lineup can still be shown.
func ResolveMatch(match *models.Match, lineup []models.LineupEntry, scheme Scheme) (*Resolution, error) {
	resolved, slotErrs := ResolveLineup(lineup, scheme)
	res := &Resolution{
		Lineup:     resolved,
		SlotErrors: slotErrs,
		Score:      models.MatchScore{MatchID: match.ID},
	}

	var points [3]int // indexed by Side
	var doublesWins [3]int
	singlesSlots, doublesSlots := 0, 0
	for _, entry := range resolved {
		winner := SideNone
		switch {
		case entry.Side1Won:
			winner = Side1
		case entry.Side2Won:
			winner = Side2
		}
		if winner == SideNone {
			res.Score.UnresolvedSlots++
		} else {
			res.Score.ResolvedSlots++
		}

		switch entry.MatchType {
		case models.MatchTypeDoubles:
			doublesSlots++
			if winner == SideNone {
				continue
			}
			if scheme.DoublesMode == DoublesSinglePoint {
				doublesWins[winner]++
			} else {
				points[winner] += scheme.DoublesPoints
			}
		default:
			singlesSlots++
			if winner != SideNone {
				points[winner] += scheme.SinglesPoints
			}
		}
	}
	if scheme.DoublesMode == DoublesSinglePoint && doublesSlots > 0 {
		need := doublesSlots/2 + 1
		if doublesWins[Side1] >= need {
			points[Side1] += scheme.DoublesPoints
		} else if doublesWins[Side2] >= need {
			points[Side2] += scheme.DoublesPoints
		}
	}

	homeSide := Side(match.HomeSideNumber())
	home, away := points[homeSide], points[homeSide.Other()]
	threshold := scheme.clinchThreshold(scheme.availablePoints(singlesSlots, doublesSlots))

	homeClinched := home >= threshold
	awayClinched := away >= threshold
	switch {
	case homeClinched && !awayClinched:
		res.Score.HomeTeamWon = true
	case awayClinched && !homeClinched:
		res.Score.AwayTeamWon = true
	case homeClinched && awayClinched:
		// Played out past the clinch on both sides: the larger total wins.
		switch {
		case home > away:
			res.Score.HomeTeamWon = true
		case away > home:
			res.Score.AwayTeamWon = true
		case scheme.AllowTies:
			res.Score.Tie = true
		default:
			res.Score.HomeTeamScore, res.Score.AwayTeamScore = home, away
			return res, fmt.Errorf("%w: match %s level at %d-%d", ErrAmbiguousResult, match.ID, home, away)
		}
	default:
		if scheme.AllowTies && home == away && len(resolved) > 0 && res.Score.UnresolvedSlots == 0 {
			res.Score.Tie = true
		}
	}

	res.Decided = res.Score.HomeTeamWon || res.Score.AwayTeamWon || res.Score.Tie
	res.Score.Clinched = res.Score.HomeTeamWon || res.Score.AwayTeamWon

	if scheme.CapAtClinch && res.Score.Clinched {
		if res.Score.HomeTeamWon {
			home, away = capScores(home, away, threshold)
		} else {
			away, home = capScores(away, home, threshold)
		}
	}
	res.Score.HomeTeamScore, res.Score.AwayTeamScore = home, away

	if match.Completed && !res.Decided {
		return res, fmt.Errorf("%w: match %s has %d-%d with %d unresolved slots, clinch at %d",
			ErrIncompleteResultData, match.ID, home, away, res.Score.UnresolvedSlots, threshold)
	}
	return res, nil
}

// capScores clamps totals to clinch-stage values. A loser that also reached
// the threshold is shown one point short of it.
func capScores(winner, loser, threshold int) (int, int) {
	if winner > threshold {
		winner = threshold
	}
	if loser >= threshold {
		loser = threshold - 1
	}
	return winner, loser
}

// ScoreLine renders the winner-first team score, e.g. "4-1".
func ScoreLine(s models.MatchScore) string {
	if s.AwayTeamWon {
		return fmt.Sprintf("%d-%d", s.AwayTeamScore, s.HomeTeamScore)
	}
	return fmt.Sprintf("%d-%d", s.HomeTeamScore, s.AwayTeamScore)
}
