package models

// Team is a college program as identified by the results feed.
type Team struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Abbreviation *string `json:"abbreviation,omitempty" db:"abbreviation"`
	Conference   string  `json:"conference" db:"conference"`
	Gender       string  `json:"gender" db:"gender"`
	Division     string  `json:"division" db:"division"`
	Region       *string `json:"region,omitempty" db:"region"`
}
