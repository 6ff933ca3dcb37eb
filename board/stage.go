// Package board implements the order-lifecycle synchronization engine
// behind the kanban board: projecting persisted statuses plus recorded
// side facts onto visual stages, reconciling drifted statuses after a
// load, and executing drag transitions optimistically with rollback.
package board

import (
	"github.com/linguaworks/orderdesk/orders"
)

// Stage is one of the five kanban columns.
type Stage string

const (
	StageNew        Stage = "new"
	StagePaid       Stage = "paid"
	StageInProgress Stage = "in_progress"
	StageReady      Stage = "ready"
	StageIssued     Stage = "issued"
)

// Stages lists the columns in board order.
var Stages = []Stage{StageNew, StagePaid, StageInProgress, StageReady, StageIssued}

// Valid reports whether s is one of the five columns.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StagePaid, StageInProgress, StageReady, StageIssued:
		return true
	}
	return false
}

// stageForStatus maps every known persisted status to its column when no
// side facts apply. Verbal orders have no column of their own and sit in
// the in-progress column.
var stageForStatus = map[orders.Status]Stage{
	orders.StatusNew:        StageNew,
	orders.StatusPaid:       StagePaid,
	orders.StatusInProgress: StageInProgress,
	orders.StatusVerbal:     StageInProgress,
	orders.StatusReady:      StageReady,
	orders.StatusClosed:     StageIssued,
}

// statusForStage is the reverse mapping: the persisted status written
// when a card is dragged into a column.
var statusForStage = map[Stage]orders.Status{
	StageNew:        orders.StatusNew,
	StagePaid:       orders.StatusPaid,
	StageInProgress: orders.StatusInProgress,
	StageReady:      orders.StatusReady,
	StageIssued:     orders.StatusClosed,
}

// StageForStatus returns the column a persisted status maps to without
// side facts. Unknown statuses fall open to the new column rather than
// erroring.
func StageForStatus(s orders.Status) Stage {
	if stage, ok := stageForStatus[s]; ok {
		return stage
	}
	return StageNew
}

// StatusForStage returns the persisted status written when an order is
// moved into the given column.
func StatusForStage(s Stage) (orders.Status, error) {
	status, ok := statusForStage[s]
	if !ok {
		return "", ErrUnknownStage
	}
	return status, nil
}
