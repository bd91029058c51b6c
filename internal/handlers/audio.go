package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"echolot/internal/models"
	"echolot/internal/pipeline"
	"echolot/internal/storage"
	"echolot/internal/worker"
)

// AudioHandler handles subtitle task HTTP requests.
type AudioHandler struct {
	taskRepo      *storage.TaskRepository
	recordingRepo *storage.RecordingRepository
	worker        *worker.Worker
	pipe          *pipeline.Pipeline
	uploadsDir    string
	recordingsDir string
}

// NewAudioHandler creates a new AudioHandler.
func NewAudioHandler(
	taskRepo *storage.TaskRepository,
	recordingRepo *storage.RecordingRepository,
	w *worker.Worker,
	pipe *pipeline.Pipeline,
	uploadsDir, recordingsDir string,
) *AudioHandler {
	return &AudioHandler{
		taskRepo:      taskRepo,
		recordingRepo: recordingRepo,
		worker:        w,
		pipe:          pipe,
		uploadsDir:    uploadsDir,
		recordingsDir: recordingsDir,
	}
}

// TaskResponse is the API view of a task.
type TaskResponse struct {
	TaskID               string   `json:"task_id"`
	Status               string   `json:"status"`
	Message              string   `json:"message,omitempty"`
	Progress             float64  `json:"progress"`
	LastPlayedChunkIndex int      `json:"last_played_chunk_index"`
	FilePath             string   `json:"file_path,omitempty"`
	Filename             string   `json:"filename,omitempty"`
	Duration             *float64 `json:"duration,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

func taskResponse(task *models.Task) TaskResponse {
	return TaskResponse{
		TaskID:               task.ID,
		Status:               task.Status,
		Message:              task.Message,
		Progress:             task.Progress,
		LastPlayedChunkIndex: task.LastPlayedChunkIndex,
		FilePath:             task.FilePath,
		Filename:             task.Filename,
		Duration:             task.Duration,
		CreatedAt:            task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Upload stores an uploaded audio or script file and creates a task.
// POST /api/audio/upload
func (h *AudioHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open upload"})
	}
	defer src.Close()

	task := &models.Task{
		Filename: fh.Filename,
		Status:   models.TaskStatusPending,
	}

	// Script uploads go straight to processing; synthesis is part of the
	// pipeline.
	isScript := false
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".txt", ".md":
		isScript = true
		task.Status = models.TaskStatusProcessing
	}

	if err := os.MkdirAll(h.uploadsDir, 0755); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := h.taskRepo.Create(ctx, task); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	storedPath := filepath.Join(h.uploadsDir, task.ID+"_"+filepath.Base(fh.Filename))
	dst, err := os.Create(storedPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	dst.Close()

	if err := h.taskRepo.UpdateFilePath(ctx, task.ID, storedPath); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	task.FilePath = storedPath

	if isScript {
		h.worker.Enqueue(task.ID)
	}

	return c.JSON(http.StatusOK, taskResponse(task))
}

// Process claims a pending task and schedules it.
// POST /api/audio/process/:task_id
func (h *AudioHandler) Process(c echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("task_id")

	task, err := h.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if task == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}

	claimed, err := h.taskRepo.ClaimPending(ctx, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !claimed {
		// Already processing or terminal; report the current state.
		return c.JSON(http.StatusOK, taskResponse(task))
	}

	task.Status = models.TaskStatusProcessing
	h.worker.Enqueue(taskID)

	return c.JSON(http.StatusOK, taskResponse(task))
}

// Status returns the current state of a task.
// GET /api/audio/status/:task_id
func (h *AudioHandler) Status(c echo.Context) error {
	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}
	return c.JSON(http.StatusOK, taskResponse(task))
}

// Result returns the segments of a completed task.
// GET /api/audio/result/:task_id
func (h *AudioHandler) Result(c echo.Context) error {
	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}
	if task.Status != models.TaskStatusCompleted {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "task is not completed"})
	}

	var result pipeline.Result
	if err := json.Unmarshal([]byte(task.Result), &result); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "stored result is corrupt"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"task_id":  task.ID,
		"segments": result.Segments,
	})
}

// DownloadSRT streams the subtitle file of a completed task.
// GET /api/audio/download/:task_id/srt
func (h *AudioHandler) DownloadSRT(c echo.Context) error {
	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}
	if task.Status != models.TaskStatusCompleted {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "task is not completed"})
	}

	path := h.pipe.SRTPath(task.ID)
	if _, err := os.Stat(path); err != nil {
		// Regenerate from the stored result when the file is gone.
		var result pipeline.Result
		if jerr := json.Unmarshal([]byte(task.Result), &result); jerr != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "subtitle file not available"})
		}
		if werr := os.WriteFile(path, []byte(result.SRT), 0o644); werr != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": werr.Error()})
		}
	}

	base := strings.TrimSuffix(task.Filename, filepath.Ext(task.Filename))
	return c.Attachment(path, base+".srt")
}

// UploadPractice stores a per-segment practice clip.
// POST /api/audio/practice/:task_id/:segment_index
func (h *AudioHandler) UploadPractice(c echo.Context) error {
	ctx := c.Request().Context()

	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}

	segmentIndex, err := strconv.Atoi(c.Param("segment_index"))
	if err != nil || segmentIndex < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid segment index"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open upload"})
	}
	defer src.Close()

	if err := os.MkdirAll(h.recordingsDir, 0755); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ".wav"
	}
	storedFilename := fmt.Sprintf("%s_%d%s", task.ID, segmentIndex, ext)
	storedPath := filepath.Join(h.recordingsDir, storedFilename)

	dst, err := os.Create(storedPath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	dst.Close()

	rec := &models.PracticeRecording{
		TaskID:         task.ID,
		SegmentIndex:   segmentIndex,
		StoredFilename: storedFilename,
	}
	if err := h.recordingRepo.Create(ctx, rec); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"filePath": storedPath})
}

// ListPractice lists the practice recordings of a task.
// GET /api/audio/practice/:task_id
func (h *AudioHandler) ListPractice(c echo.Context) error {
	ctx := c.Request().Context()

	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}

	recs, err := h.recordingRepo.ListByTask(ctx, task.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if recs == nil {
		recs = []models.PracticeRecording{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"task_id":    task.ID,
		"recordings": recs,
	})
}

// ListTasks returns tasks newest first.
// GET /api/audio/tasks?skip&limit
func (h *AudioHandler) ListTasks(c echo.Context) error {
	ctx := c.Request().Context()

	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	tasks, err := h.taskRepo.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	responses := make([]TaskResponse, len(tasks))
	for i := range tasks {
		responses[i] = taskResponse(&tasks[i])
	}
	return c.JSON(http.StatusOK, responses)
}

// UpdateProgress records the playback resume position.
// POST /api/audio/tasks/:task_id/progress
func (h *AudioHandler) UpdateProgress(c echo.Context) error {
	ctx := c.Request().Context()

	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}

	var body struct {
		LastPlayedChunkIndex *int `json:"last_played_chunk_index"`
	}
	if err := c.Bind(&body); err != nil || body.LastPlayedChunkIndex == nil || *body.LastPlayedChunkIndex < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid last_played_chunk_index"})
	}

	if err := h.taskRepo.UpdateLastPlayedChunk(ctx, task.ID, *body.LastPlayedChunkIndex); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Delete removes a task, its recordings and its stored files.
// DELETE /api/audio/task/:task_id
func (h *AudioHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	task, err := h.loadTask(c)
	if err != nil || task == nil {
		return err
	}

	recs, err := h.recordingRepo.ListByTask(ctx, task.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := h.taskRepo.Delete(ctx, task.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	// File removal is best-effort; the rows are already gone.
	for _, rec := range recs {
		removeQuietly(filepath.Join(h.recordingsDir, rec.StoredFilename))
	}
	if task.FilePath != "" {
		removeQuietly(task.FilePath)
	}
	removeQuietly(h.pipe.SRTPath(task.ID))

	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// loadTask resolves :task_id. On error or missing task the response is
// already written and a nil task is returned.
func (h *AudioHandler) loadTask(c echo.Context) (*models.Task, error) {
	taskID := c.Param("task_id")
	task, err := h.taskRepo.GetByID(c.Request().Context(), taskID)
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if task == nil {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "task not found"})
	}
	return task, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not remove %s: %v", path, err)
	}
}
