package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"echolot/internal/handlers"
	"echolot/internal/models"
	"echolot/internal/pipeline"
	"echolot/internal/storage"
	"echolot/internal/version"
	"echolot/internal/worker"
)

const (
	uploadsDir    = "uploads"
	recordingsDir = "user_recordings"
)

func main() {
	// Load .env if present.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/echolot.db"
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	taskRepo := storage.NewTaskRepository(db)
	recordingRepo := storage.NewRecordingRepository(db)

	pipe := pipeline.New(taskRepo, uploadsDir)
	w := worker.NewWorker(taskRepo, func(ctx context.Context, task *models.Task) (string, error) {
		return pipe.Process(ctx, task)
	}, 64)
	w.Start(context.Background(), 1)
	defer w.Stop()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	audioHandler := handlers.NewAudioHandler(taskRepo, recordingRepo, w, pipe, uploadsDir, recordingsDir)
	configHandler := handlers.NewConfigHandler()

	api := e.Group("/api")
	api.POST("/audio/upload", audioHandler.Upload)
	api.POST("/audio/process/:task_id", audioHandler.Process)
	api.GET("/audio/status/:task_id", audioHandler.Status)
	api.GET("/audio/result/:task_id", audioHandler.Result)
	api.GET("/audio/download/:task_id/srt", audioHandler.DownloadSRT)
	api.POST("/audio/practice/:task_id/:segment_index", audioHandler.UploadPractice)
	api.GET("/audio/practice/:task_id", audioHandler.ListPractice)
	api.GET("/audio/tasks", audioHandler.ListTasks)
	api.POST("/audio/tasks/:task_id/progress", audioHandler.UpdateProgress)
	api.DELETE("/audio/task/:task_id", audioHandler.Delete)

	api.GET("/config", configHandler.Get)
	api.PATCH("/config", configHandler.Patch)
	api.POST("/config/test-llm", configHandler.TestLLM)
	api.POST("/config/test-tts", configHandler.TestTTS)

	e.Static("/uploads", uploadsDir)
	e.Static("/user_recordings", recordingsDir)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	log.Printf("Starting Echolot v%s on port %s", version.Version, port)
	if err := e.Start(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatal(err)
	}
}
