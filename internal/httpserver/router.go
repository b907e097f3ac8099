package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskboard/internal/handler"
	"taskboard/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	taskHandler *handler.TaskHandler,
	notificationHandler *handler.NotificationHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	// Health endpoints (registered first)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/projects", projectHandler.List)
		auth.GET("/projects/tree", projectHandler.Tree)
		auth.POST("/projects", projectHandler.Create)
		auth.GET("/projects/:id", projectHandler.Get)
		auth.PUT("/projects/:id", projectHandler.Update)
		auth.DELETE("/projects/:id", projectHandler.Delete)
		auth.GET("/projects/:id/tasks", taskHandler.ListByProject)

		auth.GET("/tasks", taskHandler.List)
		auth.POST("/tasks", taskHandler.Create)
		auth.GET("/tasks/:id", taskHandler.Get)
		auth.PUT("/tasks/:id", taskHandler.Update)
		auth.DELETE("/tasks/:id", taskHandler.Delete)
		auth.GET("/tasks/:id/history", taskHandler.History)

		auth.POST("/tasks/:id/subtasks", taskHandler.AddSubtask)
		auth.PUT("/tasks/:id/subtasks/:subtaskId", taskHandler.UpdateSubtask)
		auth.DELETE("/tasks/:id/subtasks/:subtaskId", taskHandler.DeleteSubtask)

		auth.GET("/notifications", notificationHandler.List)
	}

	return &Router{Engine: r}
}
