package scoring

import "github.com/Dosada05/tennis-standings/models"

type Side int

const (
	SideNone Side = 0
	Side1    Side = 1
	Side2    Side = 2
)

func (s Side) Other() Side {
	switch s {
	case Side1:
		return Side2
	case Side2:
		return Side1
	default:
		return SideNone
	}
}

// SlotOutcome is the resolved state of one lineup slot.
type SlotOutcome struct {
	Winner     Side `json:"winner"`
	Side1Sets  int  `json:"side1_sets"`
	Side2Sets  int  `json:"side2_sets"`
	Overridden bool `json:"overridden"`
}

func (o SlotOutcome) Side1Won() bool { return o.Winner == Side1 }
func (o SlotOutcome) Side2Won() bool { return o.Winner == Side2 }
func (o SlotOutcome) Resolved() bool { return o.Winner != SideNone }

// ResolveSlot decides a slot from its sets. A side wins once it holds a
// majority of completed sets; anything short of that is unfinished. A
// non-zero override (an upstream retirement or default) wins regardless of sets.
func ResolveSlot(sets []ParsedSet, format SetFormat, override Side) SlotOutcome {
	var out SlotOutcome
	need := format.SetsToWin()
	for i, set := range sets {
		if out.Winner != SideNone {
			break
		}
		switch format.setWinner(set, i) {
		case Side1:
			out.Side1Sets++
		case Side2:
			out.Side2Sets++
		}
		if out.Side1Sets >= need {
			out.Winner = Side1
		} else if out.Side2Sets >= need {
			out.Winner = Side2
		}
	}
	if override == Side1 || override == Side2 {
		out.Winner = override
		out.Overridden = true
	}
	return out
}

// ResolveEntry parses the entry's score and resolves it. A malformed score
// leaves the slot unfinished (unless overridden) and the parse error is returned
// for the caller to log.
func ResolveEntry(entry models.LineupEntry, format SetFormat) (SlotOutcome, error) {
	override := SideNone
	if entry.DecidedSide != nil {
		override = Side(*entry.DecidedSide)
	}
	sets, err := ParseScore(entry.Score)
	if err != nil {
		return ResolveSlot(nil, format, override), err
	}
	return ResolveSlot(sets, format, override), nil
}
