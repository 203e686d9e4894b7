package core

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"ropeaccess.com/crewtrack/utils"
	"ropeaccess.com/crewtrack/worksession/model"
)

// ProgressState is the value of a project's shared aggregates after replaying its ledger.
type ProgressState struct {
	Adjustments                 model.DirectionCounts
	OverallCompletionPercentage *int
	Events                      int
}

// FoldProgressEvents replays the ledger in Sequence order, then CreatedAt and
// id for rows written without a sequence. Later writes replace earlier ones.
func FoldProgressEvents(events []model.ProgressEvent) ProgressState {
	ordered := make([]model.ProgressEvent, len(events))
	copy(ordered, events)
	SortLedger(ordered)

	var state ProgressState
	for _, e := range ordered {
		switch e.Kind {
		case model.ProgressEventAdjustment:
			if e.Direction == nil || !e.Direction.Valid() {
				continue
			}
			state.Adjustments.Set(*e.Direction, e.Value)
		case model.ProgressEventOverallPercentage:
			state.OverallCompletionPercentage = utils.Ptr(e.Value)
		default:
			continue
		}
		state.Events++
	}
	return state
}

func ledgerBefore(a, b model.ProgressEvent) bool {
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortLedger orders events the way FoldProgressEvents replays them.
func SortLedger(events []model.ProgressEvent) {
	sort.SliceStable(events, func(i, j int) bool { return ledgerBefore(events[i], events[j]) })
}

// ApplyTo writes the folded state onto the project's cached columns.
func (s ProgressState) ApplyTo(p *model.Project) {
	for _, d := range model.Directions {
		p.SetAdjustment(d, s.Adjustments.Get(d))
	}
	p.OverallCompletionPercentage = s.OverallCompletionPercentage
}

func newProgressEvent(projectID, actorID string, kind model.ProgressEventKind, value int, previous *int, at time.Time, details map[string]any) *model.ProgressEvent {
	e := &model.ProgressEvent{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Kind:          kind,
		Value:         value,
		PreviousValue: previous,
		ActorID:       actorID,
		CreatedAt:     at,
	}
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			e.Details = datatypes.JSON(b)
		}
	}
	return e
}
