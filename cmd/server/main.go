package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/cache"
	"taskboard/internal/handler"
	"taskboard/internal/httpserver"
	"taskboard/internal/repository"
	"taskboard/internal/service/auth"
	"taskboard/internal/service/project"
	"taskboard/internal/service/task"
	"taskboard/pkg/config"
	"taskboard/pkg/db"
	"taskboard/pkg/logger"
	"taskboard/pkg/mq"
	"taskboard/pkg/redis"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting taskboard server...",
		zap.String("port", cfg.Server.Port),
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.InitSchema(initCtx, dbConn, log); err != nil {
		initCancel()
		log.Fatal("Failed to init schema", zap.Error(err))
	}
	initCancel()

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	taskCache := cache.NewTaskCache(rdb, log)

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// Services
	clock := task.SystemClock{}
	authSvc := auth.NewService(userRepo, clock, cfg.JWT.Secret)
	projectSvc := project.NewService(projectRepo, clock, log)
	taskSvc := task.NewService(taskRepo, projectRepo, taskCache, publisher, clock, log)

	// HTTP
	authHandler := handler.NewAuthHandler(authSvc, log)
	projectHandler := handler.NewProjectHandler(projectSvc, log)
	taskHandler := handler.NewTaskHandler(taskSvc, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, log)
	router := httpserver.NewRouter(authHandler, projectHandler, taskHandler, notificationHandler, cfg.JWT.Secret, dbConn, publisher, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("taskboard server is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskboard server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("Closing database connection...")
	dbConn.Close()

	log.Info("taskboard server shutdown complete")
}
