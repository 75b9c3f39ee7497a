package scoring

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var setTokenPattern = regexp.MustCompile(`^(\d+)-(\d+)(?:\((\d+)\))?$`)

// ParsedSet is one set of a slot score. Tiebreak holds the tiebreak loser's
// points; the winner's count is not part of the notation.
type ParsedSet struct {
	Side1Games int  `json:"side1_games"`
	Side2Games int  `json:"side2_games"`
	Tiebreak   *int `json:"tiebreak,omitempty"`
}

// Leader returns the side with more games in the set, or SideNone when level.
// The tiebreak annotation does not take part.
func (s ParsedSet) Leader() Side {
	switch {
	case s.Side1Games > s.Side2Games:
		return Side1
	case s.Side2Games > s.Side1Games:
		return Side2
	default:
		return SideNone
	}
}

func (s ParsedSet) String() string {
	if s.Tiebreak != nil {
		return fmt.Sprintf("%d-%d(%d)", s.Side1Games, s.Side2Games, *s.Tiebreak)
	}
	return fmt.Sprintf("%d-%d", s.Side1Games, s.Side2Games)
}

// ParseScore splits a raw score such as "6-4 7-6(7) 6-3" into sets.
// A blank score yields no sets and no error: the slot has not been played.
// Commas and semicolons separate sets like any Unicode space does (scraped
// feeds often carry NBSP).
func ParseScore(raw string) ([]ParsedSet, error) {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
	sets := make([]ParsedSet, 0, len(tokens))
	for _, token := range tokens {
		set, err := parseSetToken(token)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func parseSetToken(token string) (ParsedSet, error) {
	m := setTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return ParsedSet{}, fmt.Errorf("%w: token %q", ErrMalformedScore, token)
	}
	side1, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedSet{}, fmt.Errorf("%w: token %q: %v", ErrMalformedScore, token, err)
	}
	side2, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedSet{}, fmt.Errorf("%w: token %q: %v", ErrMalformedScore, token, err)
	}
	set := ParsedSet{Side1Games: side1, Side2Games: side2}
	if m[3] != "" {
		tb, err := strconv.Atoi(m[3])
		if err != nil {
			return ParsedSet{}, fmt.Errorf("%w: token %q: %v", ErrMalformedScore, token, err)
		}
		set.Tiebreak = &tb
	}
	return set, nil
}

// FormatScore renders game counts only, space separated. Tiebreak annotations are dropped.
func FormatScore(sets []ParsedSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = strconv.Itoa(s.Side1Games) + "-" + strconv.Itoa(s.Side2Games)
	}
	return strings.Join(parts, " ")
}
