package board

import "errors"

// Engine errors.
var (
	// ErrOrderNotFound is returned when the board has no entry for an id.
	ErrOrderNotFound = errors.New("order not on board")
	// ErrUnknownStage is returned for a stage outside the five columns.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrStaleVersion is returned when a transition's base version no
	// longer matches the order's current version on the board.
	ErrStaleVersion = errors.New("stale order version")
)
