package scoring

import "errors"

var (
	// ErrMalformedScore is returned for a set token that does not match <int>-<int>[(<int>)].
	ErrMalformedScore = errors.New("malformed score")

	// ErrIncompleteResultData is returned for a match flagged completed upstream
	// whose resolved slots do not reach the clinch threshold.
	ErrIncompleteResultData = errors.New("incomplete result data")

	// ErrAmbiguousResult is returned when both sides passed the clinch threshold
	// with level totals and the scheme does not allow ties.
	ErrAmbiguousResult = errors.New("ambiguous match result")

	ErrInvalidScheme = errors.New("invalid scoring scheme")
)
