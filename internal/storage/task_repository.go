package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"echolot/internal/models"
)

// TaskRepository is the data access layer for tasks.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, status, progress, message, filename, file_path, duration, result, last_played_chunk_index, created_at, updated_at`

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, status, progress, message, filename, file_path, duration, result, last_played_chunk_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Status, task.Progress, nullString(task.Message),
		task.Filename, task.FilePath, task.Duration, nullString(task.Result),
		task.LastPlayedChunkIndex, task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// GetByID returns the task with the given id, or nil when absent.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns tasks newest first with offset pagination.
func (r *TaskRepository) List(ctx context.Context, skip, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ClaimPending atomically moves a pending task to processing. It reports
// whether this caller won the claim.
func (r *TaskRepository) ClaimPending(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.TaskStatusProcessing, time.Now(), id, models.TaskStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateProgress sets the fractional progress of a task.
func (r *TaskRepository) UpdateProgress(ctx context.Context, id string, progress float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, time.Now(), id)
	return err
}

// UpdateDuration records the audio duration in seconds.
func (r *TaskRepository) UpdateDuration(ctx context.Context, id string, duration float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET duration = ?, updated_at = ? WHERE id = ?`,
		duration, time.Now(), id)
	return err
}

// UpdateFilePath points the task at a different stored file. Used when a
// text upload is replaced by its synthesized audio.
func (r *TaskRepository) UpdateFilePath(ctx context.Context, id, filePath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET file_path = ?, updated_at = ? WHERE id = ?`,
		filePath, time.Now(), id)
	return err
}

// Complete marks the task finished and stores the serialized result.
func (r *TaskRepository) Complete(ctx context.Context, id, result string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, progress = 1.0, result = ?, message = NULL, updated_at = ?
		WHERE id = ?`,
		models.TaskStatusCompleted, result, time.Now(), id)
	return err
}

// Fail marks the task failed with an error message.
func (r *TaskRepository) Fail(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		models.TaskStatusFailed, message, time.Now(), id)
	return err
}

// UpdateLastPlayedChunk records the playback resume position.
func (r *TaskRepository) UpdateLastPlayedChunk(ctx context.Context, id string, index int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET last_played_chunk_index = ?, updated_at = ? WHERE id = ?`,
		index, time.Now(), id)
	return err
}

// Delete removes a task. Practice recordings cascade.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var message, result sql.NullString
	var duration sql.NullFloat64

	err := row.Scan(&task.ID, &task.Status, &task.Progress, &message,
		&task.Filename, &task.FilePath, &duration, &result,
		&task.LastPlayedChunkIndex, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Message = message.String
	task.Result = result.String
	if duration.Valid {
		task.Duration = &duration.Float64
	}
	return &task, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
