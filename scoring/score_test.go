package scoring

import (
	"errors"
	"testing"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     []ParsedSet
		wantErr  bool
		tiebreak map[int]int // set index -> loser's tiebreak points
	}{
		{name: "straight sets", raw: "6-4 6-3", want: []ParsedSet{{6, 4, nil}, {6, 3, nil}}},
		{name: "tiebreak decider", raw: "6-4 3-6 7-6(4)", want: []ParsedSet{{6, 4, nil}, {3, 6, nil}, {7, 6, nil}}, tiebreak: map[int]int{2: 4}},
		{name: "empty", raw: "", want: []ParsedSet{}},
		{name: "blank", raw: "   ", want: []ParsedSet{}},
		{name: "comma separated", raw: "6-4, 6-3", want: []ParsedSet{{6, 4, nil}, {6, 3, nil}}},
		{name: "extra whitespace", raw: " 7-6(7)\t6-3 ", want: []ParsedSet{{7, 6, nil}, {6, 3, nil}}, tiebreak: map[int]int{0: 7}},
		{name: "no-break space", raw: "6-4\u00a06-3", want: []ParsedSet{{6, 4, nil}, {6, 3, nil}}},
		{name: "vertical tab", raw: "6-4\v6-3", want: []ParsedSet{{6, 4, nil}, {6, 3, nil}}},
		{name: "form feed", raw: "6-4\f6-3", want: []ParsedSet{{6, 4, nil}, {6, 3, nil}}},
		{name: "semicolon and NBSP", raw: "6-4;\u00a07-6(2)", want: []ParsedSet{{6, 4, nil}, {7, 6, nil}}, tiebreak: map[int]int{1: 2}},
		{name: "garbage token", raw: "6-4 abc", wantErr: true},
		{name: "unclosed tiebreak", raw: "7-6(4", wantErr: true},
		{name: "double dash", raw: "6--4", wantErr: true},
		{name: "unfinished marker", raw: "UF", wantErr: true},
		{name: "negative games", raw: "-6-4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedScore) {
					t.Fatalf("expected ErrMalformedScore, got %v", err)
				}
				if got != nil {
					t.Fatalf("expected no sets on error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d sets, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i].Side1Games != tt.want[i].Side1Games || got[i].Side2Games != tt.want[i].Side2Games {
					t.Errorf("set %d: expected %d-%d, got %d-%d", i, tt.want[i].Side1Games, tt.want[i].Side2Games, got[i].Side1Games, got[i].Side2Games)
				}
				wantTB, hasTB := tt.tiebreak[i]
				switch {
				case hasTB && got[i].Tiebreak == nil:
					t.Errorf("set %d: expected tiebreak %d, got none", i, wantTB)
				case hasTB && *got[i].Tiebreak != wantTB:
					t.Errorf("set %d: expected tiebreak %d, got %d", i, wantTB, *got[i].Tiebreak)
				case !hasTB && got[i].Tiebreak != nil:
					t.Errorf("set %d: expected no tiebreak, got %d", i, *got[i].Tiebreak)
				}
			}
		})
	}
}

func TestFormatScoreRoundTrip(t *testing.T) {
	inputs := []string{
		"6-4 6-3",
		"6-4 3-6 7-6(4)",
		"7-6(7) 6-7(10) 1-0(5)",
		"6-0",
		"",
		"10-8  4-6",
	}
	for _, raw := range inputs {
		sets, err := ParseScore(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		once := FormatScore(sets)
		again, err := ParseScore(once)
		if err != nil {
			t.Fatalf("%q: reparse of %q failed: %v", raw, once, err)
		}
		if twice := FormatScore(again); twice != once {
			t.Errorf("%q: formatting not idempotent: %q then %q", raw, once, twice)
		}
	}

	sets, _ := ParseScore("6-4 3-6 7-6(4)")
	if got := FormatScore(sets); got != "6-4 3-6 7-6" {
		t.Errorf("expected tiebreak annotation dropped, got %q", got)
	}
	if got := sets[2].String(); got != "7-6(4)" {
		t.Errorf("expected set string with tiebreak, got %q", got)
	}
}

func TestParsedSetLeaderIgnoresTiebreak(t *testing.T) {
	tb := 9
	set := ParsedSet{Side1Games: 6, Side2Games: 7, Tiebreak: &tb}
	if set.Leader() != Side2 {
		t.Fatalf("expected side 2 to lead a 6-7 set, got %v", set.Leader())
	}
	if (ParsedSet{Side1Games: 3, Side2Games: 3}).Leader() != SideNone {
		t.Fatal("expected a level set to have no leader")
	}
}
