package task

import (
	"context"
	"fmt"
	"strings"

	"taskboard/internal/model"
)

// SubtaskPatch is a partial update for one subtask.
type SubtaskPatch struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// AddSubtask appends one subtask to the task's collection. The change flows
// through the normal update path so the SubtaskAdded entry comes from the
// same recorder as whole-collection replacements.
func (s *Service) AddSubtask(ctx context.Context, actor model.Actor, taskID, title string) (*model.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: subtask title is required", model.ErrValidation)
	}
	prev, err := s.store.GetTask(ctx, actor.ID, taskID)
	if err != nil {
		return nil, err
	}

	subtasks := subtaskInputs(prev.Subtasks)
	subtasks = append(subtasks, SubtaskInput{Title: title})
	return s.Update(ctx, actor, taskID, UpdateTaskInput{Subtasks: &subtasks})
}

// UpdateSubtask patches one subtask by id.
func (s *Service) UpdateSubtask(ctx context.Context, actor model.Actor, taskID, subtaskID string, patch SubtaskPatch) (*model.Task, error) {
	prev, err := s.store.GetTask(ctx, actor.ID, taskID)
	if err != nil {
		return nil, err
	}

	subtasks := subtaskInputs(prev.Subtasks)
	found := false
	for i := range subtasks {
		if subtasks[i].ID != subtaskID {
			continue
		}
		found = true
		if patch.Title != nil {
			subtasks[i].Title = *patch.Title
		}
		if patch.Completed != nil {
			subtasks[i].Completed = *patch.Completed
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: subtask %s", model.ErrNotFound, subtaskID)
	}
	return s.Update(ctx, actor, taskID, UpdateTaskInput{Subtasks: &subtasks})
}

// DeleteSubtask removes one subtask by id.
func (s *Service) DeleteSubtask(ctx context.Context, actor model.Actor, taskID, subtaskID string) (*model.Task, error) {
	prev, err := s.store.GetTask(ctx, actor.ID, taskID)
	if err != nil {
		return nil, err
	}

	subtasks := make([]SubtaskInput, 0, len(prev.Subtasks))
	found := false
	for _, st := range prev.Subtasks {
		if st.ID == subtaskID {
			found = true
			continue
		}
		subtasks = append(subtasks, SubtaskInput{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	if !found {
		return nil, fmt.Errorf("%w: subtask %s", model.ErrNotFound, subtaskID)
	}
	return s.Update(ctx, actor, taskID, UpdateTaskInput{Subtasks: &subtasks})
}

func subtaskInputs(subtasks []model.Subtask) []SubtaskInput {
	out := make([]SubtaskInput, 0, len(subtasks))
	for _, st := range subtasks {
		out = append(out, SubtaskInput{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	return out
}
