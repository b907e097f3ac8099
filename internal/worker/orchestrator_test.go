package worker

import (
	"context"
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
	overdue   []model.Task
	recurring []model.Task

	recurringAsOf time.Time

	inserted []model.Task
	history  [][]model.HistoryEntry
	cleared  []string
}

func (s *fakeStore) ListOverdueTasks(_ context.Context, _ time.Time) ([]model.Task, error) {
	return s.overdue, nil
}

func (s *fakeStore) ListRecurringCompleted(_ context.Context, now time.Time) ([]model.Task, error) {
	s.recurringAsOf = now
	return s.recurring, nil
}

func (s *fakeStore) InsertTask(_ context.Context, t *model.Task, entries []model.HistoryEntry) error {
	s.inserted = append(s.inserted, *t)
	s.history = append(s.history, entries)
	return nil
}

func (s *fakeStore) ClearRecurrence(_ context.Context, taskID string) error {
	s.cleared = append(s.cleared, taskID)
	return nil
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

type fakeDeduper struct {
	seen map[string]bool
}

func (d *fakeDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	key := handler + ":" + id
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

var scanNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestCheckOverdue(t *testing.T) {
	store := &fakeStore{overdue: []model.Task{
		{ID: "t1", UserID: "u1", Title: "Late", DueDate: scanNow.Add(-48 * time.Hour)},
		{ID: "t2", UserID: "u1", Title: "Later", DueDate: scanNow.Add(-24 * time.Hour)},
	}}
	events := &fakePublisher{}
	deduper := &fakeDeduper{seen: map[string]bool{}}
	o := NewOrchestrator(store, events, deduper, fixedClock{scanNow}, zap.NewNop())

	require.NoError(t, o.CheckOverdue(context.Background()))
	require.Len(t, events.events, 2)
	assert.Equal(t, "task.overdue", events.events[0].routingKey)

	// A second scan inside the dedup window publishes nothing new.
	require.NoError(t, o.CheckOverdue(context.Background()))
	assert.Len(t, events.events, 2)
}

func TestCheckOverdueEmpty(t *testing.T) {
	store := &fakeStore{}
	events := &fakePublisher{}
	o := NewOrchestrator(store, events, nil, fixedClock{scanNow}, zap.NewNop())

	require.NoError(t, o.CheckOverdue(context.Background()))
	assert.Empty(t, events.events)
}

func TestGenerateRecurring(t *testing.T) {
	due := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)
	src := model.Task{
		ID:        "t1",
		UserID:    "u1",
		Title:     "Water plants",
		ProjectID: "p1",
		Status:    model.StatusCompleted,
		Priority:  model.PriorityLow,
		Completed: true,
		DueDate:   due,
		Recurrence: &model.RecurrencePattern{
			Type:     model.RecurrenceDaily,
			Interval: 1,
		},
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "Fill watering can", Completed: true, CreatedAt: due.Add(-time.Hour)},
			{ID: "s2", Title: "Water the ferns", Completed: false, CreatedAt: due.Add(-time.Hour)},
		},
	}

	store := &fakeStore{recurring: []model.Task{src}}
	events := &fakePublisher{}
	o := NewOrchestrator(store, events, nil, fixedClock{scanNow}, zap.NewNop())

	require.NoError(t, o.GenerateRecurring(context.Background()))

	require.Len(t, store.inserted, 1)
	next := store.inserted[0]
	assert.NotEqual(t, "t1", next.ID)
	assert.Equal(t, "Water plants", next.Title)
	assert.Equal(t, model.StatusTodo, next.Status)
	assert.False(t, next.Completed)
	assert.Equal(t, due.AddDate(0, 0, 1), next.DueDate)
	require.NotNil(t, next.Recurrence, "pattern moves to the new occurrence")

	assert.Equal(t, scanNow, store.recurringAsOf, "candidates are cut off at the clock's now")

	require.Len(t, next.Subtasks, 2, "subtasks carry over to the new occurrence")
	assert.Equal(t, "Fill watering can", next.Subtasks[0].Title)
	assert.Equal(t, "Water the ferns", next.Subtasks[1].Title)
	for _, st := range next.Subtasks {
		assert.False(t, st.Completed, "carried subtasks come back unchecked")
		assert.NotContains(t, []string{"s1", "s2"}, st.ID, "carried subtasks get fresh ids")
		assert.Equal(t, scanNow, st.CreatedAt)
	}

	require.Len(t, store.history, 1)
	require.Len(t, store.history[0], 1)
	assert.Equal(t, model.ActionCreated, store.history[0][0].Action)
	assert.Equal(t, "u1", store.history[0][0].UserID)

	assert.Equal(t, []string{"t1"}, store.cleared)

	require.Len(t, events.events, 1)
	assert.Equal(t, "task.generated", events.events[0].routingKey)
}

func TestGenerateRecurringEndedPattern(t *testing.T) {
	end := scanNow.Add(-time.Hour)
	src := model.Task{
		ID:      "t1",
		UserID:  "u1",
		DueDate: scanNow.Add(-24 * time.Hour),
		Recurrence: &model.RecurrencePattern{
			Type:     model.RecurrenceDaily,
			Interval: 1,
			EndDate:  &end,
		},
	}

	store := &fakeStore{recurring: []model.Task{src}}
	events := &fakePublisher{}
	o := NewOrchestrator(store, events, nil, fixedClock{scanNow}, zap.NewNop())

	require.NoError(t, o.GenerateRecurring(context.Background()))
	assert.Empty(t, store.inserted)
	assert.Equal(t, []string{"t1"}, store.cleared, "ended pattern is detached")
	assert.Empty(t, events.events)
}
