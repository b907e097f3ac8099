package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
	"taskboard/internal/service/task"
)

// TaskStore is the slice of the task repository the orchestrator needs.
type TaskStore interface {
	ListOverdueTasks(ctx context.Context, now time.Time) ([]model.Task, error)
	ListRecurringCompleted(ctx context.Context, now time.Time) ([]model.Task, error)
	InsertTask(ctx context.Context, t *model.Task, entries []model.HistoryEntry) error
	ClearRecurrence(ctx context.Context, taskID string) error
}

type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Deduper suppresses repeat notifications for the same task within a window.
// It may be nil when the worker runs without redis.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
}

type Clock interface {
	Now() time.Time
}

// Orchestrator runs the periodic scans: overdue detection and recurring-task
// generation.
type Orchestrator struct {
	store     TaskStore
	publisher Publisher
	deduper   Deduper
	clock     Clock
	logger    *zap.Logger
}

func NewOrchestrator(store TaskStore, publisher Publisher, deduper Deduper, clock Clock, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		publisher: publisher,
		deduper:   deduper,
		clock:     clock,
		logger:    logger,
	}
}

// CheckOverdue publishes a task.overdue event for every open task whose due
// date has passed. The deduper keeps one event per task per window.
func (o *Orchestrator) CheckOverdue(ctx context.Context) error {
	o.logger.Info("Checking for overdue tasks...")

	tasks, err := o.store.ListOverdueTasks(ctx, o.clock.Now())
	if err != nil {
		o.logger.Error("Failed to list overdue tasks", zap.Error(err))
		return err
	}

	if len(tasks) == 0 {
		o.logger.Debug("No overdue tasks found")
		return nil
	}

	published := 0
	for _, t := range tasks {
		if o.deduper != nil && !o.deduper.AcquireOnce(ctx, "task.overdue", t.ID) {
			continue
		}
		payload := map[string]any{
			"task_id":  t.ID,
			"user_id":  t.UserID,
			"title":    t.Title,
			"due_date": t.DueDate.Format(time.RFC3339),
		}
		if err := o.publisher.Publish("task.overdue", payload); err != nil {
			o.logger.Error("Failed to publish task.overdue event",
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		published++
		o.logger.Info("Published task.overdue event",
			zap.String("task_id", t.ID),
			zap.String("title", t.Title),
		)
	}

	o.logger.Info("Overdue check completed",
		zap.Int("overdue_count", len(tasks)),
		zap.Int("published", published),
	)
	return nil
}

// GenerateRecurring creates the next occurrence of every completed recurring
// task whose due date has passed. The pattern moves to the new occurrence so
// a task only spawns one successor.
func (o *Orchestrator) GenerateRecurring(ctx context.Context) error {
	o.logger.Info("Generating recurring tasks...")

	tasks, err := o.store.ListRecurringCompleted(ctx, o.clock.Now())
	if err != nil {
		o.logger.Error("Failed to list recurring tasks", zap.Error(err))
		return err
	}

	generated := 0
	for _, t := range tasks {
		if t.Recurrence == nil {
			continue
		}
		nextDue, ok := task.NextOccurrence(*t.Recurrence, t.DueDate)
		if !ok {
			// Pattern has ended; drop it so the task stops showing up here.
			if err := o.store.ClearRecurrence(ctx, t.ID); err != nil {
				o.logger.Error("Failed to clear ended recurrence",
					zap.String("task_id", t.ID),
					zap.Error(err),
				)
			}
			continue
		}

		now := o.clock.Now()
		next := nextTask(&t, nextDue, now)
		actor := model.Actor{ID: t.UserID, Name: "system"}
		created := task.RecordCreation(next, now, actor)
		if err := o.store.InsertTask(ctx, next, []model.HistoryEntry{created}); err != nil {
			o.logger.Error("Failed to insert recurring task",
				zap.String("source_task_id", t.ID),
				zap.Error(err),
			)
			continue
		}

		if err := o.store.ClearRecurrence(ctx, t.ID); err != nil {
			o.logger.Error("Failed to detach recurrence from source task",
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
		}

		generated++
		o.logger.Info("Generated recurring task",
			zap.String("source_task_id", t.ID),
			zap.String("task_id", next.ID),
			zap.Time("due_date", nextDue),
		)
		if err := o.publisher.Publish("task.generated", map[string]any{
			"task_id":        next.ID,
			"source_task_id": t.ID,
			"user_id":        t.UserID,
		}); err != nil {
			o.logger.Error("Failed to publish task.generated event",
				zap.String("task_id", next.ID),
				zap.Error(err),
			)
		}
	}

	o.logger.Info("Recurring generation completed", zap.Int("generated", generated))
	return nil
}

// nextTask clones the source task as a fresh open occurrence. Subtasks come
// back unchecked with new ids; the recurrence pattern moves to the clone.
func nextTask(src *model.Task, due, now time.Time) *model.Task {
	subtasks := make([]model.Subtask, 0, len(src.Subtasks))
	for _, st := range src.Subtasks {
		subtasks = append(subtasks, model.Subtask{
			ID:        uuid.NewString(),
			Title:     st.Title,
			Completed: false,
			CreatedAt: now,
		})
	}
	return &model.Task{
		ID:           uuid.NewString(),
		UserID:       src.UserID,
		Title:        src.Title,
		Description:  src.Description,
		ProjectID:    src.ProjectID,
		Status:       model.StatusTodo,
		Priority:     src.Priority,
		DueDate:      due,
		Completed:    false,
		ParentTaskID: src.ParentTaskID,
		Recurrence:   src.Recurrence,
		Subtasks:     subtasks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
