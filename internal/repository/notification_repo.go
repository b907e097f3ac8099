package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, task_id, kind, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, n.TaskID, n.Kind, n.Message, n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Error(err),
			zap.String("task_id", n.TaskID),
		)
		return err
	}
	r.logger.Info("Notification recorded",
		zap.String("user_id", n.UserID),
		zap.String("task_id", n.TaskID),
		zap.String("kind", n.Kind),
	)
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, task_id, kind, message, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query notifications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
