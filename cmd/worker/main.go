package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/mqhandler"
	"taskboard/internal/repository"
	"taskboard/internal/service/task"
	"taskboard/internal/util"
	"taskboard/internal/worker"
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

	log.Info("Starting taskboard worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Duration("scan_interval", cfg.Worker.ScanInterval),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)

	// MQ Consumer for task.overdue
	log.Info("Initializing MQ consumer for task.overdue...",
		zap.String("queue", "task.overdue.q"),
		zap.String("routing_key", "task.overdue"),
	)
	overdueConsumer, err := mq.NewConsumer(cfg.MQ.URL, "task.overdue.q", "task.overdue", log)
	if err != nil {
		log.Fatal("Failed to init overdue consumer", zap.Error(err))
	}
	defer overdueConsumer.Close()

	overdueHandler := mqhandler.NewTaskOverdueHandler(notificationRepo, log)
	overdueConsumer.SetHandler(overdueHandler.Handle)

	go func() {
		log.Info("Starting task.overdue consumer...")
		if err := overdueConsumer.StartConsuming(); err != nil {
			log.Fatal("Overdue consumer failed", zap.Error(err))
		}
	}()

	// Periodic scans
	orchestrator := worker.NewOrchestrator(taskRepo, publisher, deduper, task.SystemClock{}, log)

	scanCtx, scanCancel := context.WithCancel(context.Background())
	defer scanCancel()

	go func() {
		ticker := time.NewTicker(cfg.Worker.ScanInterval)
		defer ticker.Stop()

		// Run immediately on startup
		if err := orchestrator.CheckOverdue(scanCtx); err != nil {
			log.Error("Overdue check failed", zap.Error(err))
		}
		if err := orchestrator.GenerateRecurring(scanCtx); err != nil {
			log.Error("Recurring generation failed", zap.Error(err))
		}

		for {
			select {
			case <-scanCtx.Done():
				log.Info("Scan loop stopped")
				return
			case <-ticker.C:
				if err := orchestrator.CheckOverdue(scanCtx); err != nil {
					log.Error("Overdue check failed", zap.Error(err))
				}
				if err := orchestrator.GenerateRecurring(scanCtx); err != nil {
					log.Error("Recurring generation failed", zap.Error(err))
				}
			}
		}
	}()

	log.Info("taskboard worker is fully initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskboard worker gracefully...")
	scanCancel()
	overdueConsumer.Stop()
	dbConn.Close()
	log.Info("taskboard worker shutdown complete")
}
