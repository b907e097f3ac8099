package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskboard/internal/model"
	"taskboard/internal/service/task"
	"taskboard/pkg/metrics"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `id, user_id, project_id, title, description, status, priority, due_date,
        completed, start_date, end_date, parent_task_id, recurrence, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var recurrence []byte
	err := row.Scan(
		&t.ID, &t.UserID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.Completed, &t.StartDate, &t.EndDate, &t.ParentTaskID, &recurrence,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(recurrence) > 0 {
		var p model.RecurrencePattern
		if err := json.Unmarshal(recurrence, &p); err != nil {
			return nil, fmt.Errorf("failed to decode recurrence: %w", err)
		}
		t.Recurrence = &p
	}
	return &t, nil
}

func encodeRecurrence(p *model.RecurrencePattern) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// GetTask returns the task with its subtasks (creation order) and history
// (most recent first).
func (r *TaskRepository) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	start := time.Now()
	defer metrics.RecordDBQueryDuration("get", "tasks", time.Since(start))

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	t, err := scanTask(r.db.QueryRow(ctx, query, taskID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
		}
		r.logger.Error("Failed to query task",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
		return nil, err
	}

	if err := r.loadDetails(ctx, []*model.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	r.logger.Debug("Listing tasks for user", zap.String("user_id", userID))
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`
	return r.listTasks(ctx, query, userID)
}

func (r *TaskRepository) ListTasksByProject(ctx context.Context, userID, projectID string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND project_id = $2 ORDER BY created_at DESC`
	return r.listTasks(ctx, query, userID, projectID)
}

func (r *TaskRepository) listTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	start := time.Now()
	defer metrics.RecordDBQueryDuration("list", "tasks", time.Since(start))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	refs := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		refs = append(refs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadDetails(ctx, refs); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(refs))
	for _, t := range refs {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// loadDetails attaches subtasks and history to the given tasks with two
// batched queries.
func (r *TaskRepository) loadDetails(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*model.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		t.Subtasks = []model.Subtask{}
		t.History = []model.HistoryEntry{}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	subRows, err := r.db.Query(ctx, `
        SELECT task_id, id, title, completed, created_at
        FROM subtasks
        WHERE task_id = ANY($1)
        ORDER BY created_at
    `, ids)
	if err != nil {
		r.logger.Error("Failed to query subtasks", zap.Error(err))
		return err
	}
	defer subRows.Close()
	for subRows.Next() {
		var taskID string
		var st model.Subtask
		if err := subRows.Scan(&taskID, &st.ID, &st.Title, &st.Completed, &st.CreatedAt); err != nil {
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Subtasks = append(t.Subtasks, st)
		}
	}
	if err := subRows.Err(); err != nil {
		return err
	}

	histRows, err := r.db.Query(ctx, `
        SELECT id, task_id, action_type, ts, changes, user_id, user_name
        FROM task_history
        WHERE task_id = ANY($1)
        ORDER BY ts DESC, seq
    `, ids)
	if err != nil {
		r.logger.Error("Failed to query task history", zap.Error(err))
		return err
	}
	defer histRows.Close()
	for histRows.Next() {
		e, err := scanHistoryEntry(histRows)
		if err != nil {
			return err
		}
		if t, ok := byID[e.TaskID]; ok {
			t.History = append(t.History, e)
		}
	}
	return histRows.Err()
}

func scanHistoryEntry(rows pgx.Rows) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	var changes []byte
	if err := rows.Scan(&e.ID, &e.TaskID, &e.Action, &e.Timestamp, &changes, &e.UserID, &e.UserName); err != nil {
		return e, err
	}
	if len(changes) > 0 {
		var ch model.FieldChange
		if err := json.Unmarshal(changes, &ch); err != nil {
			return e, fmt.Errorf("failed to decode history changes: %w", err)
		}
		e.Changes = &ch
	}
	return e, nil
}

// InsertTask persists the task, its subtasks and its creation history entry
// in one transaction.
func (r *TaskRepository) InsertTask(ctx context.Context, t *model.Task, entries []model.HistoryEntry) error {
	start := time.Now()
	defer metrics.RecordDBQueryDuration("insert", "tasks", time.Since(start))

	r.logger.Debug("Inserting task",
		zap.String("user_id", t.UserID),
		zap.String("project_id", t.ProjectID),
		zap.String("title", t.Title),
	)

	recurrence, err := encodeRecurrence(t.Recurrence)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO tasks (id, user_id, project_id, title, description, status, priority, due_date,
            completed, start_date, end_date, parent_task_id, recurrence, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `,
		t.ID, t.UserID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.DueDate,
		t.Completed, t.StartDate, t.EndDate, t.ParentTaskID, recurrence, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.String("user_id", t.UserID),
		)
		return err
	}

	if err := insertSubtasks(ctx, tx, t.ID, t.Subtasks); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	metrics.IncrementTaskMutation("create")
	r.logger.Info("Task inserted successfully",
		zap.String("task_id", t.ID),
		zap.String("user_id", t.UserID),
	)
	return nil
}

// UpdateTask persists the merged fields, the replaced subtask collection and
// the appended history entries atomically. A reader observes either the
// whole update or none of it.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *model.Task, entries []model.HistoryEntry) error {
	start := time.Now()
	defer metrics.RecordDBQueryDuration("update", "tasks", time.Since(start))

	recurrence, err := encodeRecurrence(t.Recurrence)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
        UPDATE tasks
        SET project_id = $1, title = $2, description = $3, status = $4, priority = $5,
            due_date = $6, completed = $7, start_date = $8, end_date = $9,
            recurrence = $10, updated_at = $11
        WHERE id = $12 AND user_id = $13
    `,
		t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
		t.DueDate, t.Completed, t.StartDate, t.EndDate,
		recurrence, t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.Error(err),
			zap.String("task_id", t.ID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", model.ErrNotFound, t.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM subtasks WHERE task_id = $1`, t.ID); err != nil {
		return err
	}
	if err := insertSubtasks(ctx, tx, t.ID, t.Subtasks); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	metrics.IncrementTaskMutation("update")
	r.logger.Info("Task updated successfully",
		zap.String("task_id", t.ID),
		zap.Int("history_entries", len(entries)),
	)
	return nil
}

// DeleteTask removes the task with its subtasks and history rows.
func (r *TaskRepository) DeleteTask(ctx context.Context, userID, taskID string) error {
	start := time.Now()
	defer metrics.RecordDBQueryDuration("delete", "tasks", time.Since(start))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM subtasks WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM task_history WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	result, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	metrics.IncrementTaskMutation("delete")
	r.logger.Info("Task deleted successfully",
		zap.String("task_id", taskID),
		zap.String("user_id", userID),
	)
	return nil
}

// ListHistory returns one page of a task's history, most recent first, plus
// the total row count for the filter.
func (r *TaskRepository) ListHistory(ctx context.Context, taskID string, f task.HistoryFilter) ([]model.HistoryEntry, int, error) {
	where := `WHERE task_id = $1`
	args := []any{taskID}

	if f.Action != "" {
		args = append(args, f.Action)
		where += fmt.Sprintf(" AND action_type = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where += fmt.Sprintf(" AND ts <= $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM task_history `+where, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count task history", zap.Error(err))
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`
        SELECT id, task_id, action_type, ts, changes, user_id, user_name
        FROM task_history
        %s
        ORDER BY ts DESC, seq
        LIMIT $%d OFFSET $%d
    `, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query task history", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// ListOverdueTasks returns uncompleted tasks whose due date has passed,
// for the worker's overdue scan.
func (r *TaskRepository) ListOverdueTasks(ctx context.Context, now time.Time) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + `
        FROM tasks
        WHERE completed = FALSE AND due_date < $1 AND status NOT IN ('Completed', 'Blocked')
        ORDER BY due_date`
	return r.listTasksShallow(ctx, query, now)
}

// ListRecurringCompleted returns completed recurring tasks whose due date
// has passed, for the worker's occurrence generation. Subtasks are loaded so
// the generated occurrence can carry them over.
func (r *TaskRepository) ListRecurringCompleted(ctx context.Context, now time.Time) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + `
        FROM tasks
        WHERE completed = TRUE AND recurrence IS NOT NULL AND due_date < $1
        ORDER BY due_date`
	return r.listTasks(ctx, query, now)
}

// ClearRecurrence detaches the recurrence pattern from a task, used once the
// next occurrence has been generated.
func (r *TaskRepository) ClearRecurrence(ctx context.Context, taskID string) error {
	result, err := r.db.Exec(ctx, `UPDATE tasks SET recurrence = NULL WHERE id = $1`, taskID)
	if err != nil {
		r.logger.Error("Failed to clear recurrence",
			zap.Error(err),
			zap.String("task_id", taskID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
	}
	return nil
}

// listTasksShallow fetches task rows without subtasks or history. The
// overdue scan only needs the core fields.
func (r *TaskRepository) listTasksShallow(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func insertSubtasks(ctx context.Context, tx pgx.Tx, taskID string, subtasks []model.Subtask) error {
	for _, st := range subtasks {
		if _, err := tx.Exec(ctx, `
            INSERT INTO subtasks (id, task_id, title, completed, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, st.ID, taskID, st.Title, st.Completed, st.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, entries []model.HistoryEntry) error {
	for _, e := range entries {
		var changes []byte
		if e.Changes != nil {
			b, err := json.Marshal(e.Changes)
			if err != nil {
				return err
			}
			changes = b
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO task_history (id, task_id, action_type, ts, changes, user_id, user_name)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, e.ID, e.TaskID, e.Action, e.Timestamp, changes, e.UserID, e.UserName); err != nil {
			return err
		}
	}
	return nil
}
