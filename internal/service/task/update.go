package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/model"
)

// SubtaskInput carries one subtask in a create or update payload. An empty
// ID marks a subtask the store has not seen before.
type SubtaskInput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// CreateTaskInput is the typed payload for task creation. Status defaults to
// Todo and priority to Medium when absent.
type CreateTaskInput struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	ProjectID    string                   `json:"project_id"`
	Status       model.TaskStatus         `json:"status"`
	Priority     model.TaskPriority       `json:"priority"`
	DueDate      time.Time                `json:"due_date"`
	Subtasks     []SubtaskInput           `json:"subtasks"`
	ParentTaskID *string                  `json:"parent_task_id"`
	Recurrence   *model.RecurrencePattern `json:"recurrence"`
}

// UpdateTaskInput is a strictly-typed partial update: nil means "leave the
// field alone". Subtasks, when present, replace the whole collection; the
// diff against the prior snapshot decides what history that produces.
// Start and end dates are policy-owned and cannot be set here.
type UpdateTaskInput struct {
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	Status      *model.TaskStatus        `json:"status"`
	Priority    *model.TaskPriority      `json:"priority"`
	DueDate     *time.Time               `json:"due_date"`
	ProjectID   *string                  `json:"project_id"`
	Subtasks    *[]SubtaskInput          `json:"subtasks"`
	Recurrence  *model.RecurrencePattern `json:"recurrence"`
}

func (in UpdateTaskInput) validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", model.ErrValidation)
	}
	if in.Status != nil && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrValidation, *in.Status)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", model.ErrValidation, *in.Priority)
	}
	if in.ProjectID != nil && *in.ProjectID == "" {
		return fmt.Errorf("%w: project id must not be empty", model.ErrValidation)
	}
	return nil
}

// applyUpdate merges a partial update over the prior snapshot and returns the
// merged task together with the history entries describing the change. It is
// pure: no I/O, deterministic given (prev, in, actor, now) and the generated
// entry ids.
func applyUpdate(prev *model.Task, in UpdateTaskInput, actor model.Actor, now time.Time) (model.Task, []model.HistoryEntry, error) {
	if err := in.validate(); err != nil {
		return model.Task{}, nil, err
	}

	next := *prev
	next.Subtasks = prev.Subtasks

	if in.Title != nil {
		next.Title = *in.Title
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Priority != nil {
		next.Priority = *in.Priority
	}
	if in.DueDate != nil {
		next.DueDate = *in.DueDate
	}
	if in.ProjectID != nil {
		next.ProjectID = *in.ProjectID
	}
	if in.Recurrence != nil {
		next.Recurrence = in.Recurrence
	}
	if in.Subtasks != nil {
		next.Subtasks = mergeSubtasks(prev.Subtasks, *in.Subtasks, now)
	}

	var fx TransitionEffects
	if in.Status != nil && *in.Status != prev.Status {
		next.Status = *in.Status
		fx = StatusTransition(prev.Status, next.Status, now)
		if fx.SetStartDate != nil {
			next.StartDate = fx.SetStartDate
		}
		if fx.SetEndDate != nil {
			next.EndDate = fx.SetEndDate
		}
		if fx.ClearEndDate {
			next.EndDate = nil
		}
	}
	next.Completed = next.Status == model.StatusCompleted

	entries := RecordChanges(prev, &next, fx, now, actor)
	if len(entries) > 0 {
		next.UpdatedAt = now
	}
	return next, entries, nil
}

// mergeSubtasks replaces the collection, keeping the creation time of
// subtasks that survive and minting ids for ones the client sent without.
func mergeSubtasks(prev []model.Subtask, in []SubtaskInput, now time.Time) []model.Subtask {
	prevByID := make(map[string]model.Subtask, len(prev))
	for _, st := range prev {
		prevByID[st.ID] = st
	}

	out := make([]model.Subtask, 0, len(in))
	for _, s := range in {
		st := model.Subtask{
			ID:        s.ID,
			Title:     s.Title,
			Completed: s.Completed,
			CreatedAt: now,
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		} else if old, ok := prevByID[st.ID]; ok {
			st.CreatedAt = old.CreatedAt
		}
		out = append(out, st)
	}
	return out
}
