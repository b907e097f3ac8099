package model

import "time"

type HistoryAction string

const (
	ActionCreated          HistoryAction = "Created"
	ActionUpdated          HistoryAction = "Updated"
	ActionStatusChanged    HistoryAction = "StatusChanged"
	ActionSubtaskAdded     HistoryAction = "SubtaskAdded"
	ActionSubtaskCompleted HistoryAction = "SubtaskCompleted"
	ActionSubtaskRemoved   HistoryAction = "SubtaskRemoved"
	ActionPriorityChanged  HistoryAction = "PriorityChanged"
	ActionDueDateChanged   HistoryAction = "DueDateChanged"
	ActionProjectChanged   HistoryAction = "ProjectChanged"
)

func (a HistoryAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionStatusChanged, ActionSubtaskAdded,
		ActionSubtaskCompleted, ActionSubtaskRemoved, ActionPriorityChanged,
		ActionDueDateChanged, ActionProjectChanged:
		return true
	}
	return false
}

// FieldChange records one field-level transition inside a history entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

// HistoryEntry is an append-only audit record of one logical task change.
// Entries are never mutated or deleted except through task deletion.
type HistoryEntry struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"task_id"`
	Action    HistoryAction `json:"action_type"`
	Timestamp time.Time     `json:"timestamp"`
	Changes   *FieldChange  `json:"changes,omitempty"`
	UserID    string        `json:"user_id"`
	UserName  string        `json:"user_name"`
}
