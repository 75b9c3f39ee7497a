package services

import (
	"errors"

	"github.com/Dosada05/tennis-standings/scoring"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidSeason    = errors.New("invalid season")

	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrConferenceNotFound = errors.New("conference has no teams")

	// Матч ещё не завершён: счёт не опубликован (pending).
	ErrMatchNotCompleted = errors.New("match not completed")

	// Завершённый матч без решающего результата в составе.
	ErrIncompleteResultData = scoring.ErrIncompleteResultData
	ErrAmbiguousResult      = scoring.ErrAmbiguousResult

	ErrMatchTeamInvalid     = errors.New("match refers to an unknown team")
	ErrLineupSlotConflict   = errors.New("lineup slot is listed twice")
	ErrStorageNotConfigured = errors.New("snapshot storage is not configured")
)
