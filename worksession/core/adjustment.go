package core

import (
	"ropeaccess.com/crewtrack/worksession/model"
)

type DirectionTarget struct {
	Direction       model.Direction `json:"direction"`
	DesiredAbsolute int             `json:"desiredAbsolute"`
}

// ReconcileAdjustment returns the adjustment that makes a direction's completed
// count equal desiredAbsolute without touching the session rows it is summed from.
func ReconcileAdjustment(completed, currentAdjustment, desiredAbsolute int) int {
	sessionSum := completed - currentAdjustment
	return desiredAbsolute - sessionSum
}

func validateTargets(targets []DirectionTarget) error {
	if len(targets) == 0 {
		return newValidationError("adjustments", "at least one direction is required")
	}
	seen := make(map[model.Direction]bool)
	for _, t := range targets {
		if !t.Direction.Valid() {
			return newValidationError("direction", "unknown direction %q", t.Direction)
		}
		if seen[t.Direction] {
			return newValidationError("direction", "direction %q given more than once", t.Direction)
		}
		seen[t.Direction] = true
		if t.DesiredAbsolute < 0 {
			return newValidationError("desiredAbsolute", "%s must not be negative", t.Direction)
		}
	}
	return nil
}
