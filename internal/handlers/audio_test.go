package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolot/internal/models"
	"echolot/internal/pipeline"
	"echolot/internal/storage"
	"echolot/internal/worker"
)

type testEnv struct {
	e       *echo.Echo
	tasks   *storage.TaskRepository
	handler *AudioHandler
	worker  *worker.Worker
	uploads string
	handled chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tasks := storage.NewTaskRepository(db)
	recordings := storage.NewRecordingRepository(db)
	uploads := filepath.Join(dir, "uploads")
	pipe := pipeline.New(tasks, uploads)

	handled := make(chan string, 8)
	w := worker.NewWorker(tasks, func(ctx context.Context, task *models.Task) (string, error) {
		handled <- task.ID
		return `{"segments":[],"srt":""}`, nil
	}, 8)
	w.Start(context.Background(), 1)
	t.Cleanup(w.Stop)

	h := NewAudioHandler(tasks, recordings, w, pipe, uploads, filepath.Join(dir, "user_recordings"))

	return &testEnv{e: echo.New(), tasks: tasks, handler: h, worker: w, uploads: uploads, handled: handled}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (env *testEnv) uploadFile(t *testing.T, filename, content string) TaskResponse {
	t.Helper()
	body, contentType := multipartBody(t, "file", filename, content)

	req := httptest.NewRequest(http.MethodPost, "/api/audio/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	require.NoError(t, env.handler.Upload(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadCreatesPendingTask(t *testing.T) {
	env := newTestEnv(t)

	resp := env.uploadFile(t, "lesson.mp3", "fake-audio-bytes")

	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, models.TaskStatusPending, resp.Status)
	assert.Equal(t, "lesson.mp3", resp.Filename)
	assert.True(t, strings.HasPrefix(filepath.Base(resp.FilePath), resp.TaskID))
}

func TestUploadScriptStartsProcessing(t *testing.T) {
	env := newTestEnv(t)

	resp := env.uploadFile(t, "script.txt", "Hallo Welt.")

	assert.Equal(t, models.TaskStatusProcessing, resp.Status)

	select {
	case id := <-env.handled:
		assert.Equal(t, resp.TaskID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("script task never reached the worker")
	}
}

func TestProcessClaimsTask(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.Process(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.TaskStatusProcessing, got.Status)

	select {
	case id := <-env.handled:
		assert.Equal(t, resp.TaskID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("task never reached the worker")
	}
}

func TestStatusUnknownTask(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues("does-not-exist")

	require.NoError(t, env.handler.Status(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultBeforeCompletionRejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.Result(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	ctx := context.Background()
	_, err := env.tasks.ClaimPending(ctx, resp.TaskID)
	require.NoError(t, err)
	require.NoError(t, env.tasks.Complete(ctx, resp.TaskID,
		`{"segments":[{"start":0,"end":1.5,"text":"hallo","translation":""}],"srt":"1\n..."}`))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.Result(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TaskID   string `json:"task_id"`
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, resp.TaskID, body.TaskID)
	require.Len(t, body.Segments, 1)
	assert.Equal(t, "hallo", body.Segments[0].Text)
}

func TestUpdateProgressValidation(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"last_played_chunk_index":-1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.UpdateProgress(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProgressStoresIndex(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"last_played_chunk_index":4}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.UpdateProgress(c))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.tasks.GetByID(context.Background(), resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.LastPlayedChunkIndex)
}

func TestDeleteRemovesTaskAndUpload(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.Delete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := env.tasks.GetByID(context.Background(), resp.TaskID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoFileExists(t, resp.FilePath)
}

func TestListTasks(t *testing.T) {
	env := newTestEnv(t)
	env.uploadFile(t, "a.mp3", "x")
	env.uploadFile(t, "b.mp3", "y")

	req := httptest.NewRequest(http.MethodGet, "/api/audio/tasks?skip=0&limit=10", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	require.NoError(t, env.handler.ListTasks(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestUploadPracticeAndList(t *testing.T) {
	env := newTestEnv(t)
	resp := env.uploadFile(t, "lesson.mp3", "audio")

	body, contentType := multipartBody(t, "file", "clip.wav", "pcm-bytes")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("task_id", "segment_index")
	c.SetParamValues(resp.TaskID, "3")

	require.NoError(t, env.handler.UploadPractice(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var uploaded map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.FileExists(t, uploaded["filePath"])

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = env.e.NewContext(req, rec)
	c.SetParamNames("task_id")
	c.SetParamValues(resp.TaskID)

	require.NoError(t, env.handler.ListPractice(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Recordings []models.PracticeRecording `json:"recordings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Recordings, 1)
	assert.Equal(t, 3, listed.Recordings[0].SegmentIndex)
}
