package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/model"
)

const (
	dateLayout = "2006-01-02"

	subtaskCompleted   = "completed"
	subtaskUncompleted = "uncompleted"
)

func newEntry(taskID string, action model.HistoryAction, ts time.Time, actor model.Actor, ch *model.FieldChange) model.HistoryEntry {
	return model.HistoryEntry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Action:    action,
		Timestamp: ts,
		Changes:   ch,
		UserID:    actor.ID,
		UserName:  actor.Name,
	}
}

// RecordCreation produces the single Created entry for a new task. The entry
// snapshots the initial title, status, priority and due date.
func RecordCreation(t *model.Task, now time.Time, actor model.Actor) model.HistoryEntry {
	snapshot, _ := json.Marshal(map[string]string{
		"title":    t.Title,
		"status":   string(t.Status),
		"priority": string(t.Priority),
		"due_date": t.DueDate.Format(dateLayout),
	})
	return newEntry(t.ID, model.ActionCreated, now, actor, &model.FieldChange{
		Field:    "task",
		NewValue: string(snapshot),
	})
}

// RecordChanges diffs the prior snapshot against the merged update and emits
// one entry per distinct logical change. Entries come out in a fixed field
// order regardless of what the update touched: status, subtasks, title,
// description, priority, due date, then the derived start/end dates. A field
// equal to its current value emits nothing.
func RecordChanges(prev, next *model.Task, fx TransitionEffects, now time.Time, actor model.Actor) []model.HistoryEntry {
	var entries []model.HistoryEntry

	if prev.Status != next.Status {
		entries = append(entries, newEntry(prev.ID, model.ActionStatusChanged, now, actor, &model.FieldChange{
			Field:    "status",
			OldValue: string(prev.Status),
			NewValue: string(next.Status),
		}))
	}

	entries = append(entries, diffSubtasks(prev, next, now, actor)...)

	if prev.Title != next.Title {
		entries = append(entries, newEntry(prev.ID, model.ActionUpdated, now, actor, &model.FieldChange{
			Field:    "title",
			OldValue: prev.Title,
			NewValue: next.Title,
		}))
	}

	if prev.Description != next.Description {
		entries = append(entries, newEntry(prev.ID, model.ActionUpdated, now, actor, &model.FieldChange{
			Field:    "description",
			OldValue: prev.Description,
			NewValue: next.Description,
		}))
	}

	if prev.Priority != next.Priority {
		entries = append(entries, newEntry(prev.ID, model.ActionPriorityChanged, now, actor, &model.FieldChange{
			Field:    "priority",
			OldValue: string(prev.Priority),
			NewValue: string(next.Priority),
		}))
	}

	if !prev.DueDate.Equal(next.DueDate) {
		entries = append(entries, newEntry(prev.ID, model.ActionDueDateChanged, now, actor, &model.FieldChange{
			Field:    "due_date",
			OldValue: prev.DueDate.Format(dateLayout),
			NewValue: next.DueDate.Format(dateLayout),
		}))
	}

	if prev.ProjectID != next.ProjectID {
		entries = append(entries, newEntry(prev.ID, model.ActionProjectChanged, now, actor, &model.FieldChange{
			Field:    "project",
			OldValue: prev.ProjectID,
			NewValue: next.ProjectID,
		}))
	}

	if fx.SetStartDate != nil {
		entries = append(entries, newEntry(prev.ID, model.ActionUpdated, now, actor, &model.FieldChange{
			Field:    "Start Date",
			OldValue: formatOptionalTime(prev.StartDate),
			NewValue: fx.SetStartDate.Format(time.RFC3339),
		}))
	}

	switch {
	case fx.SetEndDate != nil:
		entries = append(entries, newEntry(prev.ID, model.ActionUpdated, now, actor, &model.FieldChange{
			Field:    "End Date",
			OldValue: formatOptionalTime(prev.EndDate),
			NewValue: fx.SetEndDate.Format(time.RFC3339),
		}))
	case fx.ClearEndDate:
		entries = append(entries, newEntry(prev.ID, model.ActionUpdated, now, actor, &model.FieldChange{
			Field:    "End Date",
			OldValue: formatOptionalTime(prev.EndDate),
		}))
	}

	return entries
}

// diffSubtasks compares the subtask collections as sets keyed by id.
// Additions and completion toggles follow the new collection's order,
// removals the old collection's order.
func diffSubtasks(prev, next *model.Task, now time.Time, actor model.Actor) []model.HistoryEntry {
	oldByID := make(map[string]model.Subtask, len(prev.Subtasks))
	for _, st := range prev.Subtasks {
		oldByID[st.ID] = st
	}
	newByID := make(map[string]model.Subtask, len(next.Subtasks))
	for _, st := range next.Subtasks {
		newByID[st.ID] = st
	}

	var entries []model.HistoryEntry

	for _, st := range next.Subtasks {
		old, existed := oldByID[st.ID]
		if !existed {
			entries = append(entries, newEntry(prev.ID, model.ActionSubtaskAdded, now, actor, &model.FieldChange{
				Field:    "subtasks",
				NewValue: st.Title,
			}))
			continue
		}
		if old.Completed != st.Completed {
			state := subtaskUncompleted
			if st.Completed {
				state = subtaskCompleted
			}
			entries = append(entries, newEntry(prev.ID, model.ActionSubtaskCompleted, now, actor, &model.FieldChange{
				Field:    "subtasks",
				OldValue: st.Title,
				NewValue: state,
			}))
		}
	}

	for _, st := range prev.Subtasks {
		if _, kept := newByID[st.ID]; !kept {
			entries = append(entries, newEntry(prev.ID, model.ActionSubtaskRemoved, now, actor, &model.FieldChange{
				Field:    "subtasks",
				OldValue: st.Title,
			}))
		}
	}

	return entries
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
