package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

// NotificationStore persists notifications produced from consumed events.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

type TaskOverdueHandler struct {
	notifications NotificationStore
	logger        *zap.Logger
}

func NewTaskOverdueHandler(notifications NotificationStore, logger *zap.Logger) *TaskOverdueHandler {
	return &TaskOverdueHandler{
		notifications: notifications,
		logger:        logger,
	}
}

func (h *TaskOverdueHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p struct {
		TaskID  string `json:"task_id"`
		UserID  string `json:"user_id"`
		Title   string `json:"title"`
		DueDate string `json:"due_date"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		// A malformed body will never parse on redelivery, so drop it
		// instead of bouncing it through the queue forever.
		h.logger.Error("Dropping unparseable task.overdue payload", zap.Error(err))
		return nil
	}

	h.logger.Info("Handling task.overdue event",
		zap.String("task_id", p.TaskID),
		zap.String("user_id", p.UserID),
	)

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		TaskID:    p.TaskID,
		Kind:      "task_overdue",
		Message:   fmt.Sprintf("Task %q is overdue (was due %s)", p.Title, p.DueDate),
		CreatedAt: time.Now(),
	}
	return h.notifications.Insert(ctx, n)
}
