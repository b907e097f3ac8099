package task

import (
	"time"

	"taskboard/internal/model"
)

// TransitionEffects are the derived date changes implied by a status change.
// At most one of SetEndDate/ClearEndDate is produced for a single transition.
type TransitionEffects struct {
	SetStartDate *time.Time
	SetEndDate   *time.Time
	ClearEndDate bool
}

func (fx TransitionEffects) Empty() bool {
	return fx.SetStartDate == nil && fx.SetEndDate == nil && !fx.ClearEndDate
}

// StatusTransition computes the derived field changes for a move from one
// status to another at the given time. Last write wins for derived
// timestamps: a Blocked to Completed move overwrites the end date again.
func StatusTransition(from, to model.TaskStatus, now time.Time) TransitionEffects {
	var fx TransitionEffects

	if from == model.StatusTodo && to == model.StatusInProgress {
		t := now
		fx.SetStartDate = &t
	}

	if to == model.StatusCompleted || to == model.StatusBlocked {
		t := now
		fx.SetEndDate = &t
	}

	if (from == model.StatusCompleted || from == model.StatusBlocked) && to == model.StatusInProgress {
		fx.ClearEndDate = true
	}

	return fx
}
