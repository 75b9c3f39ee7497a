package models

import "time"

// Season is a college tennis season. Name is the starting year ("2024").
// The window is half-open: Start <= t < End.
type Season struct {
	ID     string    `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Status string    `json:"status,omitempty" db:"status"`
	Start  time.Time `json:"start_date" db:"start_date"`
	End    time.Time `json:"end_date" db:"end_date"`
}

func (s Season) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}
