package scoring

import (
	"fmt"

	"github.com/Dosada05/tennis-standings/models"
)

// SetFormat describes how sets of one discipline are played.
type SetFormat struct {
	BestOf      int `yaml:"best_of" json:"best_of"`
	GamesPerSet int `yaml:"games_per_set" json:"games_per_set"`
	// TiebreakAt is the game count (each side) at which a set goes to a tiebreak.
	// Zero means advantage sets only.
	TiebreakAt int `yaml:"tiebreak_at" json:"tiebreak_at"`
	// FinalSetMatchTiebreak makes the deciding set a match tiebreak recorded as 1-0.
	FinalSetMatchTiebreak bool `yaml:"final_set_match_tiebreak" json:"final_set_match_tiebreak"`
}

// SetsToWin is the majority of BestOf.
func (f SetFormat) SetsToWin() int {
	return f.BestOf/2 + 1
}

func (f SetFormat) Validate() error {
	if f.BestOf < 1 || f.BestOf%2 == 0 {
		return fmt.Errorf("%w: best_of must be a positive odd number, got %d", ErrInvalidScheme, f.BestOf)
	}
	if f.GamesPerSet < 1 {
		return fmt.Errorf("%w: games_per_set must be positive, got %d", ErrInvalidScheme, f.GamesPerSet)
	}
	if f.TiebreakAt < 0 || f.TiebreakAt > f.GamesPerSet {
		return fmt.Errorf("%w: tiebreak_at must be between 0 and games_per_set, got %d", ErrInvalidScheme, f.TiebreakAt)
	}
	return nil
}

// IsTiebreakSet reports whether the set was decided by a tiebreak game.
func (f SetFormat) IsTiebreakSet(s ParsedSet) bool {
	if f.TiebreakAt == 0 {
		return false
	}
	hi, lo := s.Side1Games, s.Side2Games
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi == f.TiebreakAt+1 && lo == f.TiebreakAt
}

// setWinner returns the winner of a completed set, or SideNone when the set
// is level or still in progress. index is the zero-based set number.
func (f SetFormat) setWinner(s ParsedSet, index int) Side {
	leader := s.Leader()
	if leader == SideNone {
		return SideNone
	}
	hi, lo := s.Side1Games, s.Side2Games
	if lo > hi {
		hi, lo = lo, hi
	}
	if f.FinalSetMatchTiebreak && index == f.BestOf-1 && f.BestOf > 1 && hi == 1 && lo == 0 {
		return leader
	}
	if hi >= f.GamesPerSet && hi-lo >= 2 {
		return leader
	}
	if f.IsTiebreakSet(s) {
		return leader
	}
	return SideNone
}

type DoublesMode string

const (
	// DoublesPerSlot awards DoublesPoints for every doubles slot won.
	DoublesPerSlot DoublesMode = "per_slot"
	// DoublesSinglePoint awards DoublesPoints once, to the side winning most doubles slots.
	DoublesSinglePoint DoublesMode = "single_point"
)

// Scheme is the point system of a dual match.
type Scheme struct {
	Name          string      `yaml:"-" json:"name"`
	Singles       SetFormat   `yaml:"singles" json:"singles"`
	Doubles       SetFormat   `yaml:"doubles" json:"doubles"`
	SinglesPoints int         `yaml:"singles_points" json:"singles_points"`
	DoublesPoints int         `yaml:"doubles_points" json:"doubles_points"`
	DoublesMode   DoublesMode `yaml:"doubles_mode" json:"doubles_mode"`
	// ClinchAt is the team point total that decides the match. Zero means a
	// majority of the points available in the lineup.
	ClinchAt int `yaml:"clinch_at" json:"clinch_at"`
	// CapAtClinch reports the winner's score as ClinchAt even when more slots were played out.
	CapAtClinch bool `yaml:"cap_at_clinch" json:"cap_at_clinch"`
	AllowTies   bool `yaml:"allow_ties" json:"allow_ties"`
}

// NCAADualMatch is the college dual match format: a doubles point from three
// one-set doubles slots plus six best-of-three singles, first to four.
func NCAADualMatch() Scheme {
	return Scheme{
		Name:          "ncaa_dual",
		Singles:       SetFormat{BestOf: 3, GamesPerSet: 6, TiebreakAt: 6},
		Doubles:       SetFormat{BestOf: 1, GamesPerSet: 6, TiebreakAt: 6},
		SinglesPoints: 1,
		DoublesPoints: 1,
		DoublesMode:   DoublesSinglePoint,
		ClinchAt:      4,
		CapAtClinch:   true,
	}
}

func (s Scheme) FormatFor(t models.MatchType) SetFormat {
	if t == models.MatchTypeDoubles {
		return s.Doubles
	}
	return s.Singles
}

func (s Scheme) Validate() error {
	if err := s.Singles.Validate(); err != nil {
		return fmt.Errorf("singles: %w", err)
	}
	if err := s.Doubles.Validate(); err != nil {
		return fmt.Errorf("doubles: %w", err)
	}
	if s.SinglesPoints < 0 || s.DoublesPoints < 0 {
		return fmt.Errorf("%w: point weights must not be negative", ErrInvalidScheme)
	}
	if s.SinglesPoints == 0 && s.DoublesPoints == 0 {
		return fmt.Errorf("%w: at least one discipline must score points", ErrInvalidScheme)
	}
	switch s.DoublesMode {
	case DoublesPerSlot, DoublesSinglePoint:
	default:
		return fmt.Errorf("%w: unknown doubles_mode %q", ErrInvalidScheme, s.DoublesMode)
	}
	if s.ClinchAt < 0 {
		return fmt.Errorf("%w: clinch_at must not be negative", ErrInvalidScheme)
	}
	return nil
}

// availablePoints is the total a lineup can distribute under the scheme.
func (s Scheme) availablePoints(singlesSlots, doublesSlots int) int {
	total := singlesSlots * s.SinglesPoints
	switch s.DoublesMode {
	case DoublesSinglePoint:
		if doublesSlots > 0 {
			total += s.DoublesPoints
		}
	default:
		total += doublesSlots * s.DoublesPoints
	}
	return total
}

func (s Scheme) clinchThreshold(available int) int {
	if s.ClinchAt > 0 {
		return s.ClinchAt
	}
	return available/2 + 1
}
