package board

import (
	"github.com/linguaworks/orderdesk/orders"
)

// Project computes the column an order belongs in from its persisted
// status and side facts. Pure and total: every input resolves to exactly
// one stage, unknown statuses fall open to the new column.
//
// Precedence, highest first:
//  1. confirmed delivery on a non-closed order wins over everything
//  2. recorded income wins over the plain workflow status; a closed
//     order stays issued even with income recorded
//  3. direct status mapping
func Project(status orders.Status, facts SideFacts) Stage {
	if facts.Delivered() && status != orders.StatusClosed {
		return StageIssued
	}
	if facts.Income {
		if status == orders.StatusClosed {
			return StageIssued
		}
		return StagePaid
	}
	return StageForStatus(status)
}

// ProjectOrder is Project with fact extraction folded in, for callers
// holding a raw order.
func ProjectOrder(o orders.Order) Stage {
	return Project(o.Status, ExtractFacts(o))
}
