package task

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeStore struct {
	tasks   map[string]*model.Task
	history map[string][]model.HistoryEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:   map[string]*model.Task{},
		history: map[string][]model.HistoryEntry{},
	}
}

func (s *fakeStore) GetTask(_ context.Context, userID, taskID string) (*model.Task, error) {
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
	}
	cp := *t
	cp.History = s.history[taskID]
	return &cp, nil
}

func (s *fakeStore) InsertTask(_ context.Context, t *model.Task, entries []model.HistoryEntry) error {
	cp := *t
	s.tasks[t.ID] = &cp
	s.history[t.ID] = append(s.history[t.ID], entries...)
	return nil
}

func (s *fakeStore) UpdateTask(_ context.Context, t *model.Task, entries []model.HistoryEntry) error {
	if _, ok := s.tasks[t.ID]; !ok {
		return fmt.Errorf("%w: task %s", model.ErrNotFound, t.ID)
	}
	cp := *t
	s.tasks[t.ID] = &cp
	s.history[t.ID] = append(s.history[t.ID], entries...)
	return nil
}

func (s *fakeStore) DeleteTask(_ context.Context, userID, taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
	}
	delete(s.tasks, taskID)
	delete(s.history, taskID)
	return nil
}

func (s *fakeStore) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) ListTasksByProject(_ context.Context, userID, projectID string) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID && t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) ListHistory(_ context.Context, taskID string, f HistoryFilter) ([]model.HistoryEntry, int, error) {
	all := s.history[taskID]
	filtered := []model.HistoryEntry{}
	for _, e := range all {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		filtered = append(filtered, e)
	}
	total := len(filtered)
	if f.Offset > len(filtered) {
		return []model.HistoryEntry{}, total, nil
	}
	filtered = filtered[f.Offset:]
	if f.Limit > 0 && len(filtered) > f.Limit {
		filtered = filtered[:f.Limit]
	}
	return filtered, total, nil
}

type fakeProjects struct {
	projects map[string]model.Project
}

func (s *fakeProjects) GetProject(_ context.Context, userID, projectID string) (*model.Project, error) {
	p, ok := s.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("%w: project %s", model.ErrNotFound, projectID)
	}
	return &p, nil
}

func (s *fakeProjects) ListProjects(_ context.Context, userID string) ([]model.Project, error) {
	out := []model.Project{}
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type capturedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	events []capturedEvent
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	p.events = append(p.events, capturedEvent{routingKey, payload})
	return nil
}

type fakeCache struct {
	entries     map[string]*model.Task
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*model.Task{}}
}

func (c *fakeCache) Get(_ context.Context, taskID string) (*model.Task, bool) {
	t, ok := c.entries[taskID]
	return t, ok
}

func (c *fakeCache) Set(_ context.Context, t *model.Task) {
	c.entries[t.ID] = t
}

func (c *fakeCache) Invalidate(_ context.Context, taskID string) {
	delete(c.entries, taskID)
	c.invalidated = append(c.invalidated, taskID)
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakePublisher, *fakeCache, fixedClock) {
	t.Helper()
	store := newFakeStore()
	projects := &fakeProjects{projects: map[string]model.Project{
		"p1": {ID: "p1", UserID: "u1", Name: "Work"},
		"p2": {ID: "p2", UserID: "u1", Name: "Home"},
	}}
	events := &fakePublisher{}
	cache := newFakeCache()
	clock := fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewService(store, projects, cache, events, clock, zap.NewNop())
	return svc, store, events, cache, clock
}

func TestServiceCreate(t *testing.T) {
	svc, store, events, _, clock := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{
		Title:     "Write report",
		ProjectID: "p1",
		DueDate:   time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Subtasks:  []SubtaskInput{{Title: "Draft"}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusTodo, created.Status, "status defaults to Todo")
	assert.Equal(t, model.PriorityMedium, created.Priority, "priority defaults to Medium")
	assert.False(t, created.Completed)
	assert.Equal(t, clock.now, created.CreatedAt)
	require.Len(t, created.Subtasks, 1)
	assert.NotEmpty(t, created.Subtasks[0].ID)

	require.Len(t, store.history[created.ID], 1, "creation writes exactly one entry")
	assert.Equal(t, model.ActionCreated, store.history[created.ID][0].Action)

	require.Len(t, events.events, 1)
	assert.Equal(t, "task.created", events.events[0].routingKey)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testActor, CreateTaskInput{ProjectID: "p1"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Create(ctx, testActor, CreateTaskInput{Title: "x"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Create(ctx, testActor, CreateTaskInput{Title: "x", ProjectID: "missing"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Create(ctx, testActor, CreateTaskInput{Title: "x", ProjectID: "p1", Status: "Done"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestServiceUpdateNoOp(t *testing.T) {
	svc, store, events, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)
	events.events = nil

	got, err := svc.Update(ctx, testActor, created.ID, UpdateTaskInput{Title: &created.Title})
	require.NoError(t, err)
	assert.Equal(t, created.UpdatedAt, got.UpdatedAt)
	assert.Len(t, store.history[created.ID], 1, "no-op appends no history")
	assert.Empty(t, events.events, "no-op publishes nothing")
}

func TestServiceUpdateTransition(t *testing.T) {
	svc, store, events, cache, clock := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)
	events.events = nil

	status := model.StatusInProgress
	got, err := svc.Update(ctx, testActor, created.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, model.StatusInProgress, got.Status)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, clock.now, *got.StartDate)

	// Created + StatusChanged + Start Date entries.
	assert.Len(t, store.history[created.ID], 3)
	assert.Contains(t, cache.invalidated, created.ID)

	require.Len(t, events.events, 1)
	assert.Equal(t, "task.updated", events.events[0].routingKey)
}

func TestServiceUpdateUnknownProject(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)

	missing := "nope"
	_, err = svc.Update(ctx, testActor, created.ID, UpdateTaskInput{ProjectID: &missing})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestServiceUpdateNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), testActor, "missing", UpdateTaskInput{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestServiceGetUsesCache(t *testing.T) {
	svc, store, _, cache, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, testActor, created.ID)
	require.NoError(t, err)
	assert.Contains(t, cache.entries, created.ID, "read-through populates the cache")

	// A cached task belonging to someone else must not leak.
	cache.entries["other"] = &model.Task{ID: "other", UserID: "u2"}
	_, err = svc.Get(ctx, testActor, "other")
	assert.ErrorIs(t, err, model.ErrNotFound)

	delete(store.tasks, created.ID)
	got, err = svc.Get(ctx, testActor, created.ID)
	require.NoError(t, err, "cache hit survives store deletion")
	assert.Equal(t, created.ID, got.ID)
}

func TestServiceDelete(t *testing.T) {
	svc, store, events, cache, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)
	events.events = nil

	require.NoError(t, svc.Delete(ctx, testActor, created.ID))
	assert.NotContains(t, store.tasks, created.ID)
	assert.Contains(t, cache.invalidated, created.ID)
	require.Len(t, events.events, 1)
	assert.Equal(t, "task.deleted", events.events[0].routingKey)

	assert.ErrorIs(t, svc.Delete(ctx, testActor, created.ID), model.ErrNotFound)
}

func TestServiceListByProject(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "A", ProjectID: "p1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, testActor, CreateTaskInput{Title: "B", ProjectID: "p2"})
	require.NoError(t, err)

	tasks, err := svc.ListByProject(ctx, testActor, "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Title)

	_, err = svc.ListByProject(ctx, testActor, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestServiceHistory(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)

	status := model.StatusInProgress
	_, err = svc.Update(ctx, testActor, created.ID, UpdateTaskInput{Status: &status})
	require.NoError(t, err)

	page, err := svc.History(ctx, testActor, created.ID, HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 20, page.Limit, "limit defaults to 20")
	assert.Len(t, page.History, 3)

	page, err = svc.History(ctx, testActor, created.ID, HistoryFilter{Action: model.ActionStatusChanged})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = svc.History(ctx, testActor, "missing", HistoryFilter{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestServiceSubtasks(t *testing.T) {
	svc, store, _, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testActor, CreateTaskInput{Title: "Write report", ProjectID: "p1"})
	require.NoError(t, err)

	got, err := svc.AddSubtask(ctx, testActor, created.ID, "Draft")
	require.NoError(t, err)
	require.Len(t, got.Subtasks, 1)
	subtaskID := got.Subtasks[0].ID

	entries := store.history[created.ID]
	assert.Equal(t, model.ActionSubtaskAdded, entries[len(entries)-1].Action)

	done := true
	got, err = svc.UpdateSubtask(ctx, testActor, created.ID, subtaskID, SubtaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, got.Subtasks[0].Completed)

	entries = store.history[created.ID]
	assert.Equal(t, model.ActionSubtaskCompleted, entries[len(entries)-1].Action)

	got, err = svc.DeleteSubtask(ctx, testActor, created.ID, subtaskID)
	require.NoError(t, err)
	assert.Empty(t, got.Subtasks)

	entries = store.history[created.ID]
	assert.Equal(t, model.ActionSubtaskRemoved, entries[len(entries)-1].Action)

	_, err = svc.UpdateSubtask(ctx, testActor, created.ID, "missing", SubtaskPatch{Completed: &done})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.AddSubtask(ctx, testActor, created.ID, "  ")
	assert.ErrorIs(t, err, model.ErrValidation)
}
