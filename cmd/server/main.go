package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/satelit-project/satelit-import/internal/api"
	"github.com/satelit-project/satelit-import/internal/config"
	"github.com/satelit-project/satelit-import/internal/job"
	"github.com/satelit-project/satelit-import/internal/repository/postgres"
	"github.com/satelit-project/satelit-import/internal/service"
	"github.com/satelit-project/satelit-import/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(cfg.DB.URL, cfg.DB.MaxConnections, cfg.DB.ConnectionTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	indexStore, err := store.NewIndexStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create index store: %v", err)
	}

	animeStore, err := store.NewAnimeStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create anime store: %v", err)
	}

	importSvc := service.NewImportService(db, indexStore)
	taskSvc := service.NewTaskService(db, animeStore)

	if cfg.RPC.Cleanup {
		if err := taskSvc.CleanupTasks(ctx); err != nil {
			log.Fatalf("Failed to clean up stale tasks: %v", err)
		}
	}

	importRouter := api.NewImportRouter(api.NewImportHandler(importSvc))
	taskRouter := api.NewTaskRouter(api.NewTaskHandler(taskSvc))

	go startServer(importRouter, cfg.RPC.ImportAddr, "import")
	go startServer(taskRouter, cfg.RPC.TaskAddr, "task")

	// background dump imports are optional and need Redis
	var jobServer *asynq.Server
	if cfg.Jobs.RedisAddr != "" {
		jobServer = startJobServer(cfg.Jobs.RedisAddr, importSvc)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := importRouter.Shutdown(shutdownCtx); err != nil {
		log.Printf("Import server shutdown error: %v", err)
	}
	if err := taskRouter.Shutdown(shutdownCtx); err != nil {
		log.Printf("Task server shutdown error: %v", err)
	}
	if jobServer != nil {
		jobServer.Shutdown()
	}
}

func startServer(e *echo.Echo, addr, name string) {
	log.Printf("Starting %s server on %s...", name, addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start %s server: %v", name, err)
	}
}

func startJobServer(redisAddr string, imports *service.ImportService) *asynq.Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: 1},
	)

	mux := asynq.NewServeMux()
	job.NewJobHandlers(imports).RegisterHandlers(mux)

	go func() {
		log.Printf("Starting job server against %s...", redisAddr)
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Failed to start job server: %v", err)
		}
	}()

	return srv
}
