package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

// Store is the persistence collaborator for tasks. UpdateTask must persist
// the field merge and the history append atomically: a reader either sees
// both or neither.
type Store interface {
	GetTask(ctx context.Context, userID, taskID string) (*model.Task, error)
	InsertTask(ctx context.Context, t *model.Task, entries []model.HistoryEntry) error
	UpdateTask(ctx context.Context, t *model.Task, entries []model.HistoryEntry) error
	DeleteTask(ctx context.Context, userID, taskID string) error
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	ListTasksByProject(ctx context.Context, userID, projectID string) ([]model.Task, error)
	ListHistory(ctx context.Context, taskID string, f HistoryFilter) ([]model.HistoryEntry, int, error)
}

// ProjectStore is the slice of the project layer the task service needs for
// referential checks and list projections.
type ProjectStore interface {
	GetProject(ctx context.Context, userID, projectID string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
}

// Clock supplies the current time for derived fields and history timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventPublisher emits task lifecycle events. Publishing is best-effort:
// failures are logged and never fail the mutation.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// DetailCache caches assembled task detail views.
type DetailCache interface {
	Get(ctx context.Context, taskID string) (*model.Task, bool)
	Set(ctx context.Context, t *model.Task)
	Invalidate(ctx context.Context, taskID string)
}

type Service struct {
	store    Store
	projects ProjectStore
	cache    DetailCache
	events   EventPublisher
	clock    Clock
	logger   *zap.Logger
}

// NewService wires the task service. cache and events may be nil when the
// caller runs without redis or the message broker (tests, worker tools).
func NewService(store Store, projects ProjectStore, cache DetailCache, events EventPublisher, clock Clock, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		projects: projects,
		cache:    cache,
		events:   events,
		clock:    clock,
		logger:   logger,
	}
}

// Create validates the input, persists the task together with its single
// Created history entry and returns the stored task with details.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateTaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project id is required", model.ErrValidation)
	}
	if in.Status == "" {
		in.Status = model.StatusTodo
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, in.Status)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", model.ErrValidation, in.Priority)
	}
	if _, err := s.projects.GetProject(ctx, actor.ID, in.ProjectID); err != nil {
		return nil, fmt.Errorf("%w: project %s does not exist", model.ErrValidation, in.ProjectID)
	}

	now := s.clock.Now()
	t := &model.Task{
		ID:           uuid.NewString(),
		UserID:       actor.ID,
		Title:        in.Title,
		Description:  in.Description,
		ProjectID:    in.ProjectID,
		Status:       in.Status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		Completed:    in.Status == model.StatusCompleted,
		ParentTaskID: in.ParentTaskID,
		Recurrence:   in.Recurrence,
		Subtasks:     mergeSubtasks(nil, in.Subtasks, now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created := RecordCreation(t, now, actor)

	if err := s.store.InsertTask(ctx, t, []model.HistoryEntry{created}); err != nil {
		return nil, err
	}
	s.logger.Info("Task created",
		zap.String("task_id", t.ID),
		zap.String("user_id", actor.ID),
		zap.String("project_id", t.ProjectID),
	)
	s.publish("task.created", map[string]any{
		"task_id":  t.ID,
		"user_id":  actor.ID,
		"title":    t.Title,
		"due_date": t.DueDate.Format(dateLayout),
	})

	return s.store.GetTask(ctx, actor.ID, t.ID)
}

// Get returns the task with subtasks and history, read through the cache.
func (s *Service) Get(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, taskID); ok && t.UserID == actor.ID {
			return t, nil
		}
	}
	t, err := s.store.GetTask(ctx, actor.ID, taskID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, t)
	}
	return t, nil
}

// Update is the single mutation entry point: it fetches the snapshot, runs
// the transition policy and the history recorder, and persists the merged
// fields with the appended entries in one transaction.
func (s *Service) Update(ctx context.Context, actor model.Actor, taskID string, in UpdateTaskInput) (*model.Task, error) {
	prev, err := s.store.GetTask(ctx, actor.ID, taskID)
	if err != nil {
		return nil, err
	}

	if in.ProjectID != nil && *in.ProjectID != prev.ProjectID {
		if _, err := s.projects.GetProject(ctx, actor.ID, *in.ProjectID); err != nil {
			return nil, fmt.Errorf("%w: project %s does not exist", model.ErrValidation, *in.ProjectID)
		}
	}

	next, entries, err := applyUpdate(prev, in, actor, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		s.logger.Debug("Update is a no-op, skipping persist", zap.String("task_id", taskID))
		return prev, nil
	}

	if err := s.store.UpdateTask(ctx, &next, entries); err != nil {
		return nil, err
	}
	s.invalidate(ctx, taskID)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, string(e.Action))
	}
	s.logger.Info("Task updated",
		zap.String("task_id", taskID),
		zap.String("user_id", actor.ID),
		zap.Strings("actions", actions),
	)
	s.publish("task.updated", map[string]any{
		"task_id": taskID,
		"user_id": actor.ID,
		"actions": actions,
	})

	return s.store.GetTask(ctx, actor.ID, taskID)
}

// Delete removes the task with its subtasks and history rows.
func (s *Service) Delete(ctx context.Context, actor model.Actor, taskID string) error {
	if err := s.store.DeleteTask(ctx, actor.ID, taskID); err != nil {
		return err
	}
	s.invalidate(ctx, taskID)
	s.logger.Info("Task deleted",
		zap.String("task_id", taskID),
		zap.String("user_id", actor.ID),
	)
	s.publish("task.deleted", map[string]any{
		"task_id": taskID,
		"user_id": actor.ID,
	})
	return nil
}

// List returns the actor's tasks after applying the filter conjunctively and
// sorting by the requested key.
func (s *Service) List(ctx context.Context, actor model.Actor, f Filter, sort Sort) ([]model.Task, error) {
	tasks, err := s.store.ListTasks(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projectIndex(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := FilterTasks(tasks, projects, f, s.clock.Now())
	SortTasks(out, projects, sort)
	return out, nil
}

// ListByProject returns the actor's tasks in one project, newest first.
func (s *Service) ListByProject(ctx context.Context, actor model.Actor, projectID string) ([]model.Task, error) {
	if _, err := s.projects.GetProject(ctx, actor.ID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasksByProject(ctx, actor.ID, projectID)
}

// History returns a page of the task's audit trail, most recent first.
func (s *Service) History(ctx context.Context, actor model.Actor, taskID string, f HistoryFilter) (*HistoryPage, error) {
	if _, err := s.store.GetTask(ctx, actor.ID, taskID); err != nil {
		return nil, err
	}
	f = f.withDefaults()
	entries, total, err := s.store.ListHistory(ctx, taskID, f)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		History: entries,
	}, nil
}

func (s *Service) projectIndex(ctx context.Context, userID string) (map[string]model.Project, error) {
	list, err := s.projects.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]model.Project, len(list))
	for _, p := range list {
		idx[p.ID] = p
	}
	return idx, nil
}

func (s *Service) invalidate(ctx context.Context, taskID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, taskID)
	}
}

func (s *Service) publish(routingKey string, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(routingKey, payload); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

// HistoryFilter narrows and pages a task's history feed.
type HistoryFilter struct {
	Action model.HistoryAction
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

func (f HistoryFilter) withDefaults() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type HistoryPage struct {
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	History []model.HistoryEntry `json:"history"`
}
