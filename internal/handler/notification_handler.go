package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/model"
)

// NotificationLister reads the notification feed the worker writes.
type NotificationLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)
}

type NotificationHandler struct {
	notifications NotificationLister
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationLister, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// List returns the actor's notifications, most recent first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	notifications, err := h.notifications.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListNotifications: failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
